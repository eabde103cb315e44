// Package idm is the engine core of an identity-management service: salted
// password credentials, short-lived signed access tokens, and long-lived
// refresh tokens driven through a sliding-expiration, capped-lifetime
// rotation protocol.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// idm is the public surface. It exposes [Engine], [Builder], [Config], the
// [Account] model, and the [AccountStore] contract. Credential derivation
// lives in password/, access-token signing in jwt/, and the refresh-token
// state machine in token/; ready-made store implementations live under
// store/.
//
// # What this package must NOT do
//
//   - Own an HTTP surface, parse request bodies, or validate field formats;
//     it is a library invoked by a server process.
//   - Manage schema or connections of its stores beyond the contracts it
//     consumes.
//   - Rotate or provision the signing keypair; key material is supplied
//     externally and read-only for the process lifetime.
package idm
