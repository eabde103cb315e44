package jwt

import (
	"crypto/ed25519"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired reports a well-formed, correctly signed token whose
// expiration instant has passed.
var ErrTokenExpired = errors.New("access token expired")

// ErrTokenInvalid reports a token that is malformed, carries a bad
// signature, or fails any non-expiry claim check.
var ErrTokenInvalid = errors.New("access token invalid")

// Config carries the signing material and validation bounds for a Manager.
// The keypair is loaded once and treated as immutable for the process
// lifetime.
type Config struct {
	AccessTTL  time.Duration
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Leeway     time.Duration

	// TimeFunc overrides the clock used for issuance and expiry checks.
	// Nil means time.Now.
	TimeFunc func() time.Time
}

// AccessClaims is the identity claim set embedded in every access token:
// subject is the account email, UID the numeric account id, Roles the
// authorization role tags.
type AccessClaims struct {
	UID   int64    `json:"uid"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Manager signs and verifies access tokens. Immutable after construction,
// safe for concurrent use.
type Manager struct {
	config    Config
	signKey   ed25519.PrivateKey
	verifyKey ed25519.PublicKey
	now       func() time.Time
}

// NewManager validates cfg, parses the keypair, and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if len(cfg.PublicKey) == 0 {
		return nil, errors.New("ed25519 public key required")
	}

	verifyKey, err := parseEdPublicKey(cfg.PublicKey)
	if err != nil {
		return nil, err
	}

	var signKey ed25519.PrivateKey
	if len(cfg.PrivateKey) > 0 {
		signKey, err = parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
	}

	now := cfg.TimeFunc
	if now == nil {
		now = time.Now
	}

	return &Manager{
		config:    cfg,
		signKey:   signKey,
		verifyKey: verifyKey,
		now:       now,
	}, nil
}

// Issue builds and signs an access token for the given identity. The claim
// set carries subject, uid, roles, issued-at, and expiration at now plus the
// configured TTL.
func (m *Manager) Issue(email string, accountID int64, roles []string) (string, error) {
	if len(m.signKey) == 0 {
		return "", errors.New("manager has no private key; verification only")
	}

	now := m.now()
	claims := AccessClaims{
		UID:   accountID,
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
		},
	}
	if m.config.Issuer != "" {
		claims.Issuer = m.config.Issuer
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(m.signKey)
}

// Verify checks the signature and time bounds of tokenStr and returns the
// embedded claims. Failures collapse to ErrTokenExpired or ErrTokenInvalid.
func (m *Manager) Verify(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		return m.verifyKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
