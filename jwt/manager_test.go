package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"sync"
	"testing"
	"time"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, clock *testClock) *Manager {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL:  15 * time.Minute,
		PrivateKey: priv,
		PublicKey:  pub,
		Issuer:     "idm-test",
		TimeFunc:   clock.Now,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(t, clock)

	tokenStr, err := m.Issue("a@b.com", 42, []string{"ADMIN", "PREMIUM"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := m.Verify(tokenStr)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Subject != "a@b.com" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
	if claims.UID != 42 {
		t.Fatalf("unexpected uid %d", claims.UID)
	}
	if len(claims.Roles) != 2 || claims.Roles[0] != "ADMIN" || claims.Roles[1] != "PREMIUM" {
		t.Fatalf("unexpected roles %v", claims.Roles)
	}
}

func TestVerifyExpired(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(t, clock)

	tokenStr, err := m.Issue("a@b.com", 1, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.Advance(16 * time.Minute)

	if _, err := m.Verify(tokenStr); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyBeforeExpiry(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(t, clock)

	tokenStr, err := m.Issue("a@b.com", 1, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	clock.Advance(14 * time.Minute)

	if _, err := m.Verify(tokenStr); err != nil {
		t.Fatalf("verify before expiry failed: %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(t, clock)

	if _, err := m.Verify("not-a-jwt"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyWrongKey(t *testing.T) {
	clock := &testClock{now: time.Now()}
	m := newTestManager(t, clock)
	other := newTestManager(t, clock)

	tokenStr, err := other.Issue("a@b.com", 1, nil)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := m.Verify(tokenStr); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for foreign signature, got %v", err)
	}
}

func TestVerificationOnlyManager(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	m, err := NewManager(Config{
		AccessTTL: time.Minute,
		PublicKey: pub,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	if _, err := m.Issue("a@b.com", 1, nil); err == nil {
		t.Fatal("expected issue to fail without a private key")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("keygen failed: %v", err)
	}

	if _, err := NewManager(Config{PrivateKey: priv, PublicKey: pub}); err == nil {
		t.Fatal("expected rejection of zero TTL")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, PrivateKey: priv}); err == nil {
		t.Fatal("expected rejection of missing public key")
	}
	if _, err := NewManager(Config{AccessTTL: time.Minute, PrivateKey: []byte("short"), PublicKey: pub}); err == nil {
		t.Fatal("expected rejection of malformed private key")
	}
}
