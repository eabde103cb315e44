// Package redisstore implements the refresh-token store contract on Redis.
//
// Each record is a hash keyed by token value, with ids assigned from an
// INCR sequence. Records carry no TTL: EXPIRED and REVOKED rows stay until
// external housekeeping removes them, so a replayed token value is always
// answered with its terminal status rather than a not-found.
//
// The conditional update runs as a single Lua script, making the
// read-compare-write decision atomic on the server. That script is the
// store-side half of the single-winner guarantee for concurrent refreshes.
package redisstore
