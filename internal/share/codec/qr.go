package codec

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	dErrors "proofshare/pkg/domain-errors"
)

// ECLevel is a QR error-correction level. Higher levels tolerate more visual
// damage at the cost of payload capacity; the choice is independent of
// protocol correctness.
type ECLevel string

const (
	ECLevelLow     ECLevel = "L"
	ECLevelMedium  ECLevel = "M"
	ECLevelQuarter ECLevel = "Q"
	ECLevelHigh    ECLevel = "H"
)

// IsValid reports whether the level is one of L, M, Q, H.
func (l ECLevel) IsValid() bool {
	switch l {
	case ECLevelLow, ECLevelMedium, ECLevelQuarter, ECLevelHigh:
		return true
	}
	return false
}

// ParseECLevel validates a configured error-correction level string.
func ParseECLevel(s string) (ECLevel, error) {
	level := ECLevel(s)
	if !level.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput,
			fmt.Sprintf("unsupported error correction level %q, expected L, M, Q or H", s))
	}
	return level, nil
}

func (l ECLevel) recoveryLevel() qrcode.RecoveryLevel {
	switch l {
	case ECLevelLow:
		return qrcode.Low
	case ECLevelQuarter:
		return qrcode.High
	case ECLevelHigh:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// RenderQR renders a serialized envelope as a PNG QR image using the codec's
// configured error-correction level and pixel size.
func (c *Codec) RenderQR(raw []byte) ([]byte, error) {
	png, err := qrcode.Encode(string(raw), c.qrLevel.recoveryLevel(), c.qrSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "could not render QR code")
	}
	return png, nil
}
