package idm

import "context"

// AccountStatus is the lifecycle state of an account. The numeric values
// match the status_id column of the backing store. Status is set to ACTIVE
// at creation and mutated only by an external administrative process.
type AccountStatus int32

const (
	// AccountActive marks a normally usable account.
	AccountActive AccountStatus = iota + 1
	// AccountLocked marks an account barred from authenticating, e.g.
	// pending administrative review.
	AccountLocked
	// AccountBanned marks an account permanently barred from
	// authenticating.
	AccountBanned
)

func (s AccountStatus) String() string {
	switch s {
	case AccountActive:
		return "ACTIVE"
	case AccountLocked:
		return "LOCKED"
	case AccountBanned:
		return "BANNED"
	default:
		return "UNKNOWN"
	}
}

// Account is a stored identity record. Salt is unique per account and
// immutable; HashedPassword is the derived key, never plaintext. Roles are
// opaque authorization tags embedded into issued access tokens.
type Account struct {
	ID             int64
	Email          string
	Status         AccountStatus
	Salt           []byte
	HashedPassword []byte
	Roles          []string
}

// AccountStore is the durable account storage the Engine consumes. The
// store/pgstore package provides a Postgres implementation; integrators may
// supply their own.
type AccountStore interface {
	// FindByEmail returns the account registered under email, or
	// ErrUserNotFound.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Create inserts a new ACTIVE account with the given credential
	// material and assigns its id. Returns ErrUserExists when the email is
	// taken.
	Create(ctx context.Context, email string, salt, hash []byte) (*Account, error)

	// FindByID returns the account with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, id int64) (*Account, error)
}

// TokenPair is the credential pair returned by Login and Refresh: a signed
// self-contained access token and an opaque stored refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is returned by [Engine.VerifyAccess]: the identity claims
// embedded in a verified access token. No storage lookup backs these.
type AuthResult struct {
	Email     string
	AccountID int64
	Roles     []string
}
