package idm

import "errors"

var (
	// ErrInvalidCredentials reports a password that does not match the
	// stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound reports an email with no registered account.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserLocked reports an account in the LOCKED state.
	ErrUserLocked = errors.New("user is locked")
	// ErrUserBanned reports an account in the BANNED state.
	ErrUserBanned = errors.New("user is banned")
	// ErrUserExists reports a registration against an already-taken email.
	// Expected under concurrent registration races.
	ErrUserExists = errors.New("user already exists")

	// ErrTokenNotFound reports a refresh-token value with no stored record.
	ErrTokenNotFound = errors.New("refresh token not found")
	// ErrTokenExpired reports an expired refresh or access token.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked reports a refresh token invalidated by rotation.
	ErrTokenRevoked = errors.New("refresh token revoked")
	// ErrTokenInvalid reports an access token with a bad signature or
	// malformed structure.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrAccountNotFound reports a refresh token whose owning account no
	// longer exists. A data-integrity fault, not a normal outcome.
	ErrAccountNotFound = errors.New("account for refresh token not found")
	// ErrConflict reports a refresh that lost its concurrency retry budget.
	// Retryable by the caller.
	ErrConflict = errors.New("concurrent token modification")

	// ErrEngineNotReady reports use of an Engine that was not built.
	ErrEngineNotReady = errors.New("engine not initialized")
)
