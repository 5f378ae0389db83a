package codec

import (
	"encoding/json"

	dErrors "proofshare/pkg/domain-errors"
)

// Canonicalize serializes v into a deterministic, field-order-independent
// JSON form: objects are re-marshaled through generic maps so keys come out
// sorted at every nesting level. Checksums and signatures are computed over
// this form only, never over the checksum or signature fields themselves.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not serialize payload")
	}
	return CanonicalizeRaw(raw)
}

// CanonicalizeRaw re-canonicalizes already-serialized JSON. Used on decode so
// a payload whose fields were reordered in transit still checksums the same.
func CanonicalizeRaw(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "payload is not valid JSON")
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "could not canonicalize payload")
	}
	return canonical, nil
}
