package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrExpired reports a refresh attempt on an expired token. When the expiry
// is discovered lazily during Refresh, the terminal transition is persisted
// before this error is returned.
var ErrExpired = errors.New("refresh token expired")

// ErrRevoked reports a refresh attempt on a token invalidated by rotation.
var ErrRevoked = errors.New("refresh token revoked")

// Config bounds the refresh protocol. Window is the sliding deadline added
// on each successful refresh; MaxLifetime is the absolute session ceiling
// fixed at issuance. Window < MaxLifetime is a construction invariant.
type Config struct {
	Window      time.Duration
	MaxLifetime time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock overrides the time source. Used by tests to pin slide/rotate
// decisions; production code leaves it at time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager drives the refresh-token state machine over a Store. Immutable
// after construction, safe for concurrent use.
type Manager struct {
	store       Store
	window      time.Duration
	maxLifetime time.Duration
	now         func() time.Time
}

// NewManager validates cfg and returns a Manager bound to store.
func NewManager(store Store, cfg Config, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("token store required")
	}
	if cfg.Window <= 0 {
		return nil, errors.New("refresh window must be positive")
	}
	if cfg.MaxLifetime <= cfg.Window {
		return nil, errors.New("max lifetime must exceed refresh window")
	}

	m := &Manager{
		store:       store,
		window:      cfg.Window,
		maxLifetime: cfg.MaxLifetime,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// Issue mints a fresh ACTIVE token for accountID: a random 128-bit value,
// expire time now+Window, max lifetime now+MaxLifetime.
func (m *Manager) Issue(ctx context.Context, accountID int64) (*Token, error) {
	now := m.now()
	t := &Token{
		Value:       uuid.NewString(),
		AccountID:   accountID,
		Status:      StatusActive,
		ExpireTime:  now.Add(m.window),
		MaxLifeTime: now.Add(m.maxLifetime),
	}
	if err := m.store.Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Lookup fetches the record holding value, or ErrNotFound.
func (m *Manager) Lookup(ctx context.Context, value string) (*Token, error) {
	return m.store.FindByValue(ctx, value)
}

// Refresh runs the refresh protocol against t and returns the token the
// client should hold afterwards: t itself with a slid expire time, or a
// brand-new token when continued sliding would exceed the lifetime ceiling
// (rotation; the old token is revoked first and permanently unusable).
//
// A conditional-update conflict is retried exactly once from a fresh read;
// a second loss surfaces ErrConflict to the caller as retryable.
func (m *Manager) Refresh(ctx context.Context, t *Token) (*Token, error) {
	renewed, err := m.refreshOnce(ctx, t)
	if !errors.Is(err, ErrConflict) {
		return renewed, err
	}

	fresh, err := m.store.FindByValue(ctx, t.Value)
	if err != nil {
		return nil, err
	}
	return m.refreshOnce(ctx, fresh)
}

// refreshOnce evaluates the protocol in its fixed order: terminal status
// checks, lazy expiry, then slide or rotate.
func (m *Manager) refreshOnce(ctx context.Context, t *Token) (*Token, error) {
	switch t.Status {
	case StatusExpired:
		return nil, ErrExpired
	case StatusRevoked:
		return nil, ErrRevoked
	}

	now := m.now()
	prior := Expected{Status: t.Status, ExpireTime: t.ExpireTime}

	if now.After(t.ExpireTime) || now.After(t.MaxLifeTime) {
		// Lazy expiry: the token silently outlived its window and is
		// expired at this use, not proactively.
		expired := *t
		expired.Status = StatusExpired
		if err := m.store.ConditionalUpdate(ctx, &expired, prior); err != nil {
			return nil, err
		}
		t.Status = StatusExpired
		return nil, ErrExpired
	}

	candidate := now.Add(m.window)

	if candidate.After(t.MaxLifeTime) {
		// Rotation: extending would break expire <= maxLife, so revoke the
		// current lineage and start a new one for the same account.
		revoked := *t
		revoked.Status = StatusRevoked
		if err := m.store.ConditionalUpdate(ctx, &revoked, prior); err != nil {
			return nil, err
		}
		t.Status = StatusRevoked
		return m.Issue(ctx, t.AccountID)
	}

	slid := *t
	slid.ExpireTime = candidate
	if err := m.store.ConditionalUpdate(ctx, &slid, prior); err != nil {
		return nil, err
	}
	t.ExpireTime = candidate
	return t, nil
}
