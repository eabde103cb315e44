package token

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that no record exists for a token value. This is a
// security-relevant negative signal, not a retryable condition.
var ErrNotFound = errors.New("refresh token not found")

// ErrConflict reports a conditional update that lost to a concurrent
// mutation of the same record. Retryable after a fresh read.
var ErrConflict = errors.New("refresh token concurrently modified")

// ErrIllegalTransition reports an attempted status change that
// ValidTransition forbids. Always a programming error, never data-driven.
var ErrIllegalTransition = errors.New("illegal refresh token status transition")

// Expected is the prior state a conditional update asserts: the update may
// only succeed while the stored status and expire time still equal these.
type Expected struct {
	Status     Status
	ExpireTime time.Time
}

// Store is the durable keyed storage contract for refresh-token records.
// Implementations assign Token.ID on insert and must make ConditionalUpdate
// atomic with respect to concurrent callers.
type Store interface {
	// Insert persists a new record and assigns its storage id.
	Insert(ctx context.Context, t *Token) error

	// FindByValue fetches a record by exact token-value match, or
	// ErrNotFound.
	FindByValue(ctx context.Context, value string) (*Token, error)

	// ConditionalUpdate writes t's status and expire time, succeeding only
	// if the stored record still matches prior. Returns ErrConflict when it
	// does not, ErrNotFound when the record vanished, ErrIllegalTransition
	// when the status change violates the state machine. MaxLifeTime is
	// never written.
	ConditionalUpdate(ctx context.Context, t *Token, prior Expected) error
}

// SameInstant reports whether two timestamps identify the same instant at
// the store's precision. Conditional updates compare expire times with this
// rather than == so wall-clock monotonic readings never affect equality.
func SameInstant(a, b time.Time) bool {
	return a.UnixNano() == b.UnixNano()
}
