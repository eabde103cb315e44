package token

import "time"

// Status is the lifecycle state of a refresh token. The numeric values
// match the token_status_id column of the backing store.
type Status uint8

const (
	// StatusActive marks a token usable for refresh.
	StatusActive Status = iota + 1
	// StatusExpired marks a token that outlived its window. Terminal.
	StatusExpired
	// StatusRevoked marks a token invalidated by rotation. Terminal.
	StatusRevoked
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "ACTIVE"
	case StatusExpired:
		return "EXPIRED"
	case StatusRevoked:
		return "REVOKED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool {
	return s == StatusExpired || s == StatusRevoked
}

// ValidTransition reports whether a status change from prior to next is
// legal. Staying on ACTIVE is allowed (expire-time slides mutate the record
// without a status change).
func ValidTransition(prior, next Status) bool {
	if prior == StatusActive {
		return next == StatusActive || next == StatusExpired || next == StatusRevoked
	}
	return false
}

// Token is a stored refresh-token record. Value is the 128-bit random
// opaque string the client holds; ExpireTime slides forward on use while
// MaxLifeTime is fixed at issuance. ExpireTime <= MaxLifeTime holds after
// every update.
type Token struct {
	ID          int64
	Value       string
	AccountID   int64
	Status      Status
	ExpireTime  time.Time
	MaxLifeTime time.Time
}
