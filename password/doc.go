// Package password implements salted password derivation and verification
// with PBKDF2-HMAC-SHA512.
//
// # Storage model
//
// Unlike PHC-encoded schemes, the salt and the derived key are kept as two
// separate values; the account store persists both. Derivation parameters are
// fixed per [KDF] instance so every stored hash remains comparable across
// calls for the lifetime of the deployment.
//
// # Architecture boundaries
//
// This package owns derivation and comparison only. Password policy, salt
// persistence, and account lookup belong to the Engine and its stores.
//
// # What this package must NOT do
//
//   - Store or retrieve credential material — callers supply plaintext and
//     salts and receive derived keys.
//   - Import any other IDM-Service package.
//   - Log plaintext passwords or derived keys.
package password
