package idm

import (
	"errors"
	"time"
)

// Config holds every tunable of the engine. Instances are configured during
// initialization and then treated as immutable; Build copies what it needs.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Refresh  RefreshConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls the signed access tokens the engine issues. Keys are
// ed25519: raw seed, raw 64-byte private key, or PEM for PrivateKey; raw
// 32-byte key or PEM for PublicKey.
type JWTConfig struct {
	AccessTTL  time.Duration
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig controls the PBKDF2-HMAC-SHA512 password hashing
// parameters. Lengths are in bytes.
type PasswordConfig struct {
	Iterations int
	SaltLength int
	KeyLength  int
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls refresh token lifetimes. Window is the sliding
// inactivity window granted per use; MaxLifetime is the absolute cap from
// issuance after which no extension or rotation occurs.
type RefreshConfig struct {
	Window      time.Duration
	MaxLifetime time.Duration
}

// AuditConfig controls the asynchronous audit pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration Build starts from. Callers still
// need to supply signing keys.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL: 15 * time.Minute,
			Issuer:    "",
			Leeway:    0,
		},
		Password: PasswordConfig{
			Iterations: 10000,
			SaltLength: 16,
			KeyLength:  64,
		},
		Refresh: RefreshConfig{
			Window:      1 * time.Hour,
			MaxLifetime: 12 * time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks the configuration for internally inconsistent or insecure
// values. Build calls it; callers may also invoke it directly.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if len(c.JWT.PublicKey) == 0 {
		return errors.New("JWT requires PublicKey")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	// Password
	if c.Password.Iterations < 10000 {
		return errors.New("Password Iterations must be >= 10000")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 32 {
		return errors.New("Password KeyLength must be >= 32")
	}

	// Refresh
	if c.Refresh.Window <= 0 {
		return errors.New("Refresh Window must be > 0")
	}
	if c.Refresh.MaxLifetime <= c.Refresh.Window {
		return errors.New("Refresh MaxLifetime must be > Window")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}
