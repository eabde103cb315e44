package pgstore

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"

	idm "github.com/CitoC/IDM-Service"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Create inserts a new ACTIVE account and returns it with its assigned id.
// A unique-violation on email maps to idm.ErrUserExists; concurrent
// registration races are expected to land here.
func (s *Store) Create(ctx context.Context, email string, salt, hash []byte) (*idm.Account, error) {
	query := `
		INSERT INTO idm.account (email, status_id, salt, hashed_password)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		email,
		int32(idm.AccountActive),
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(hash),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, idm.ErrUserExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return &idm.Account{
		ID:             id,
		Email:          email,
		Status:         idm.AccountActive,
		Salt:           salt,
		HashedPassword: hash,
	}, nil
}

// FindByEmail returns the account registered under email, or
// idm.ErrUserNotFound.
func (s *Store) FindByEmail(ctx context.Context, email string) (*idm.Account, error) {
	query := `
		SELECT id, email, status_id, salt, hashed_password
		FROM idm.account
		WHERE email = $1
	`
	return s.scanAccount(ctx, s.db.QueryRowContext(ctx, query, email))
}

// FindByID returns the account with the given id, or idm.ErrUserNotFound.
func (s *Store) FindByID(ctx context.Context, id int64) (*idm.Account, error) {
	query := `
		SELECT id, email, status_id, salt, hashed_password
		FROM idm.account
		WHERE id = $1
	`
	return s.scanAccount(ctx, s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) scanAccount(ctx context.Context, row *sql.Row) (*idm.Account, error) {
	var (
		account  idm.Account
		statusID int32
		saltB64  string
		hashB64  string
	)
	if err := row.Scan(&account.ID, &account.Email, &statusID, &saltB64, &hashB64); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, idm.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return nil, fmt.Errorf("corrupt salt for account %d: %w", account.ID, err)
	}
	hash, err := base64.StdEncoding.DecodeString(hashB64)
	if err != nil {
		return nil, fmt.Errorf("corrupt password hash for account %d: %w", account.ID, err)
	}

	account.Status = idm.AccountStatus(statusID)
	account.Salt = salt
	account.HashedPassword = hash

	roles, err := s.rolesFor(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	account.Roles = roles

	return &account, nil
}

func (s *Store) rolesFor(ctx context.Context, accountID int64) ([]string, error) {
	query := `
		SELECT r.name
		FROM idm.role r
		JOIN idm.account_role ar ON ar.role_id = r.id
		WHERE ar.account_id = $1
		ORDER BY r.id
	`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		roles = append(roles, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return roles, nil
}
