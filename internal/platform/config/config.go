package config

import (
	"crypto/ed25519"
	"encoding/base64"
	"os"
	"strconv"
	"time"

	dErrors "proofshare/pkg/domain-errors"
)

// Server captures process-level configuration for the sharing service.
type Server struct {
	Addr    string
	BaseURL string

	// Codec
	MaxDataSize          int
	ErrorCorrectionLevel string
	EnableSigning        bool
	SigningKeySeed       string // base64-encoded Ed25519 seed
	QRSize               int

	// Session manager
	DefaultSessionTTL time.Duration
	MaxActiveSessions int
	CleanupInterval   time.Duration

	// Transport
	JWTSigningKey        string
	APISecretHash        string // bcrypt hash of the requester API secret
	DeviceFingerprinting bool
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:                 envOr("SHARE_ADDR", ":8080"),
		BaseURL:              envOr("SHARE_BASE_URL", "http://localhost:8080"),
		MaxDataSize:          envInt("SHARE_MAX_DATA_SIZE", 2953),
		ErrorCorrectionLevel: envOr("SHARE_ERROR_CORRECTION_LEVEL", "M"),
		EnableSigning:        os.Getenv("SHARE_ENABLE_SIGNING") == "true",
		SigningKeySeed:       os.Getenv("SHARE_SIGNING_KEY"),
		QRSize:               envInt("SHARE_QR_SIZE", 256),
		DefaultSessionTTL:    envDuration("SHARE_DEFAULT_SESSION_TTL", 15*time.Minute),
		MaxActiveSessions:    envInt("SHARE_MAX_ACTIVE_SESSIONS", 1000),
		CleanupInterval:      envDuration("SHARE_CLEANUP_INTERVAL", time.Minute),
		JWTSigningKey:        os.Getenv("SHARE_JWT_SIGNING_KEY"),
		APISecretHash:        os.Getenv("SHARE_API_SECRET_HASH"),
		DeviceFingerprinting: os.Getenv("SHARE_DEVICE_FINGERPRINTING") != "false",
	}
	if cfg.JWTSigningKey == "" {
		// Development default - must be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	return cfg
}

// SigningKey decodes the configured Ed25519 seed into a private key.
// Returns nil when signing is disabled.
func (s Server) SigningKey() (ed25519.PrivateKey, error) {
	if !s.EnableSigning {
		return nil, nil
	}
	seed, err := base64.StdEncoding.DecodeString(s.SigningKeySeed)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "signing key is not valid base64")
	}
	if len(seed) != ed25519.SeedSize {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "signing key seed must be 32 bytes")
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// envDuration accepts Go duration strings ("90s") or bare integers meaning
// milliseconds ("90000").
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
