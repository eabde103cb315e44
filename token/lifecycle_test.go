package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory Store with the same conditional-update contract
// the real stores implement.
type memStore struct {
	mu    sync.Mutex
	seq   int64
	byVal map[string]*Token

	// conflicts forces the next n ConditionalUpdate calls to lose.
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{byVal: make(map[string]*Token)}
}

func (s *memStore) Insert(_ context.Context, t *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t.ID = s.seq
	cp := *t
	s.byVal[t.Value] = &cp
	return nil
}

func (s *memStore) FindByValue(_ context.Context, value string) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byVal[value]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cur
	return &cp, nil
}

func (s *memStore) ConditionalUpdate(_ context.Context, t *Token, prior Expected) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return ErrConflict
	}

	cur, ok := s.byVal[t.Value]
	if !ok {
		return ErrNotFound
	}
	if !ValidTransition(prior.Status, t.Status) {
		return ErrIllegalTransition
	}
	if cur.Status != prior.Status || !SameInstant(cur.ExpireTime, prior.ExpireTime) {
		return ErrConflict
	}

	cur.Status = t.Status
	cur.ExpireTime = t.ExpireTime
	return nil
}

func (s *memStore) get(t *testing.T, value string) Token {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.byVal[value]
	if !ok {
		t.Fatalf("token %q not in store", value)
	}
	return *cur
}

func newTestManager(t *testing.T, store Store, cfg Config, clock func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(store, cfg, WithClock(clock))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueSetsWindows(t *testing.T) {
	store := newMemStore()
	base := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 10 * time.Hour}, func() time.Time { return base })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if tok.ID == 0 {
		t.Fatal("store did not assign an id")
	}
	if tok.Status != StatusActive {
		t.Fatalf("expected ACTIVE, got %v", tok.Status)
	}
	if !tok.ExpireTime.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected expire time %v", tok.ExpireTime)
	}
	if !tok.MaxLifeTime.Equal(base.Add(10 * time.Hour)) {
		t.Fatalf("unexpected max lifetime %v", tok.MaxLifeTime)
	}
	if tok.ExpireTime.After(tok.MaxLifeTime) {
		t.Fatal("expire time exceeds max lifetime at issuance")
	}
}

func TestRefreshSlides(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 10 * time.Hour}, func() time.Time { return now })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	now = now.Add(30 * time.Minute)
	renewed, err := m.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if renewed.Value != tok.Value {
		t.Fatal("slide must keep the token value")
	}
	if renewed.Status != StatusActive {
		t.Fatalf("expected ACTIVE after slide, got %v", renewed.Status)
	}
	if !renewed.ExpireTime.Equal(now.Add(time.Hour)) {
		t.Fatalf("expire time did not slide: %v", renewed.ExpireTime)
	}
	if renewed.ExpireTime.After(renewed.MaxLifeTime) {
		t.Fatal("slide broke expire <= maxLife")
	}

	stored := store.get(t, tok.Value)
	if !stored.ExpireTime.Equal(renewed.ExpireTime) {
		t.Fatal("slide was not persisted")
	}
}

func TestRefreshRotatesAtLifetimeCeiling(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 90 * time.Minute}, func() time.Time { return now })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Before maxLife, but now+window would overshoot it.
	now = now.Add(45 * time.Minute)
	renewed, err := m.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if renewed.Value == tok.Value {
		t.Fatal("rotation must mint a distinct token value")
	}
	if renewed.Status != StatusActive {
		t.Fatalf("expected new ACTIVE token, got %v", renewed.Status)
	}
	if renewed.AccountID != tok.AccountID {
		t.Fatal("rotation changed the owning account")
	}

	old := store.get(t, tok.Value)
	if old.Status != StatusRevoked {
		t.Fatalf("expected old token REVOKED, got %v", old.Status)
	}

	// The old value is permanently unusable.
	reread, err := m.Lookup(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := m.Refresh(context.Background(), reread); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked for rotated-out token, got %v", err)
	}
}

func TestRefreshLazyExpiry(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 10 * time.Hour}, func() time.Time { return now })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := m.Refresh(context.Background(), tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	stored := store.get(t, tok.Value)
	if stored.Status != StatusExpired {
		t.Fatalf("lazy expiry not persisted, status %v", stored.Status)
	}

	// Subsequent refreshes fail on the terminal status without another write.
	reread, err := m.Lookup(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := m.Refresh(context.Background(), reread); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired on terminal token, got %v", err)
	}
}

func TestRefreshPastMaxLifetimeExpires(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: 4 * time.Hour, MaxLifetime: 6 * time.Hour}, func() time.Time { return now })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Slide once so the expire window now reaches close to the ceiling.
	now = now.Add(time.Hour)
	if _, err := m.Refresh(context.Background(), tok); err != nil {
		t.Fatalf("slide failed: %v", err)
	}

	// Jump past maxLife while still inside the last slid window's reach.
	now = now.Add(7 * time.Hour)
	reread, err := m.Lookup(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if _, err := m.Refresh(context.Background(), reread); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired past max lifetime, got %v", err)
	}
}

func TestRefreshTerminalStatuses(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 10 * time.Hour}, func() time.Time { return now })

	expired := &Token{Value: "v-expired", AccountID: 1, Status: StatusExpired}
	if _, err := m.Refresh(context.Background(), expired); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}

	revoked := &Token{Value: "v-revoked", AccountID: 1, Status: StatusRevoked}
	if _, err := m.Refresh(context.Background(), revoked); !errors.Is(err, ErrRevoked) {
		t.Fatalf("expected ErrRevoked, got %v", err)
	}
}

func TestRefreshRetriesConflictOnce(t *testing.T) {
	store := newMemStore()
	now := time.Unix(1_700_000_000, 0)
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 10 * time.Hour}, func() time.Time { return now })

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	now = now.Add(10 * time.Minute)

	store.conflicts = 1
	renewed, err := m.Refresh(context.Background(), tok)
	if err != nil {
		t.Fatalf("expected single-conflict refresh to recover, got %v", err)
	}
	if renewed.Value != tok.Value {
		t.Fatal("recovered refresh should have slid the same token")
	}

	// Two consecutive losses exhaust the retry budget.
	fresh, err := m.Lookup(context.Background(), tok.Value)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	store.conflicts = 2
	if _, err := m.Refresh(context.Background(), fresh); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after exhausted retry, got %v", err)
	}
}

func TestConcurrentRotationSingleWinner(t *testing.T) {
	store := newMemStore()
	var mu sync.Mutex
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	m := newTestManager(t, store, Config{Window: time.Hour, MaxLifetime: 90 * time.Minute}, clock)

	tok, err := m.Issue(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	// Position the clock so every refresh decision is a rotation.
	mu.Lock()
	now = now.Add(45 * time.Minute)
	mu.Unlock()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			read, err := m.Lookup(context.Background(), tok.Value)
			if err != nil {
				results <- err
				return
			}
			_, err = m.Refresh(context.Background(), read)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for err := range results {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrRevoked), errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected refresh error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly one rotation winner, got %d", success)
	}

	old := store.get(t, tok.Value)
	if old.Status != StatusRevoked {
		t.Fatalf("expected old token REVOKED, got %v", old.Status)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	store := newMemStore()

	if _, err := NewManager(nil, Config{Window: time.Hour, MaxLifetime: 2 * time.Hour}); err == nil {
		t.Fatal("expected rejection of nil store")
	}
	if _, err := NewManager(store, Config{Window: 0, MaxLifetime: time.Hour}); err == nil {
		t.Fatal("expected rejection of zero window")
	}
	if _, err := NewManager(store, Config{Window: time.Hour, MaxLifetime: time.Hour}); err == nil {
		t.Fatal("expected rejection of window >= max lifetime")
	}
}

func TestValidTransition(t *testing.T) {
	cases := []struct {
		prior, next Status
		ok          bool
	}{
		{StatusActive, StatusActive, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusRevoked, true},
		{StatusExpired, StatusActive, false},
		{StatusExpired, StatusRevoked, false},
		{StatusRevoked, StatusActive, false},
		{StatusRevoked, StatusExpired, false},
	}
	for _, tc := range cases {
		if got := ValidTransition(tc.prior, tc.next); got != tc.ok {
			t.Fatalf("ValidTransition(%v, %v) = %v, want %v", tc.prior, tc.next, got, tc.ok)
		}
	}
}
