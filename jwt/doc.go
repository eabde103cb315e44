// Package jwt manages access-token issuance and verification against a
// single externally supplied ed25519 keypair.
//
// Access tokens are self-contained: verification needs the public key and
// the clock, never a storage lookup. The verify path distinguishes exactly
// two failure kinds — [ErrTokenExpired] for structurally valid tokens past
// their expiration, [ErrTokenInvalid] for everything else — so callers never
// have to inspect library internals.
package jwt
