package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/CitoC/IDM-Service/token"
)

// Insert persists a new refresh-token record and assigns its id.
func (s *Store) Insert(ctx context.Context, t *token.Token) error {
	query := `
		INSERT INTO idm.refresh_token (token, account_id, token_status_id, expire_time, max_life_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := s.db.QueryRowContext(ctx, query,
		t.Value,
		t.AccountID,
		int32(t.Status),
		pgTime(t.ExpireTime),
		pgTime(t.MaxLifeTime),
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// FindByValue fetches a record by exact token-value match, or
// token.ErrNotFound.
func (s *Store) FindByValue(ctx context.Context, value string) (*token.Token, error) {
	query := `
		SELECT id, token, account_id, token_status_id, expire_time, max_life_time
		FROM idm.refresh_token
		WHERE token = $1
	`

	var (
		t        token.Token
		statusID int32
	)
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&t.ID, &t.Value, &t.AccountID, &statusID, &t.ExpireTime, &t.MaxLifeTime,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, token.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	t.Status = token.Status(statusID)
	return &t, nil
}

// ConditionalUpdate writes t's status and expire time only while the stored
// row still matches prior; the WHERE clause carries the comparison so the
// decision is a single atomic statement. Zero rows affected reports
// token.ErrConflict.
func (s *Store) ConditionalUpdate(ctx context.Context, t *token.Token, prior token.Expected) error {
	if !token.ValidTransition(prior.Status, t.Status) {
		return token.ErrIllegalTransition
	}

	query := `
		UPDATE idm.refresh_token
		SET token_status_id = $1, expire_time = $2
		WHERE id = $3 AND token_status_id = $4 AND expire_time = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		int32(t.Status),
		pgTime(t.ExpireTime),
		t.ID,
		int32(prior.Status),
		pgTime(prior.ExpireTime),
	)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return token.ErrConflict
	}
	return nil
}

// pgTime normalizes timestamps to the column precision so written values
// compare equal when read back into a conditional update.
func pgTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
