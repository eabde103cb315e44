// Package token owns the refresh-token state machine: issuance, lookup, and
// the sliding-expiration / capped-lifetime refresh protocol.
//
// # State machine
//
// A token is ACTIVE on issuance. EXPIRED and REVOKED are terminal. The only
// legal transitions are ACTIVE→EXPIRED (lazy expiry at next use) and
// ACTIVE→REVOKED (rotation); [ValidTransition] is the single source of truth
// and store implementations must reject anything else.
//
// # Concurrency
//
// Every mutation goes through [Store.ConditionalUpdate], which succeeds only
// if the stored status and expire time still match what the caller read.
// Two racing refreshes of the same token therefore resolve to exactly one
// winner; the loser re-reads once, re-runs the decision, and surfaces
// [ErrConflict] if it loses again.
//
// # What this package must NOT do
//
//   - Touch account records — the Engine resolves token ownership.
//   - Issue or verify access tokens.
//   - Delete token records; archival of terminal records is external
//     housekeeping.
package token
