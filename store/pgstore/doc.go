// Package pgstore implements the account and refresh-token store contracts
// on PostgreSQL, over database/sql with the pgx stdlib driver.
//
// The schema lives in embedded goose migrations under migrations/ and
// mirrors the entity shapes of the core: idm.account, idm.role,
// idm.account_role, and idm.refresh_token with a token_status_id column.
// Salt and password hash are persisted base64-encoded in text columns.
//
// The conditional token update compiles to a single UPDATE whose WHERE
// clause re-asserts the prior status and expire time; a zero rows-affected
// result is reported as token.ErrConflict. Timestamps are truncated to
// microseconds on write so that values read back compare equal in that
// WHERE clause.
package pgstore
