package idm

import (
	"context"
	"errors"
	"strings"

	"github.com/CitoC/IDM-Service/jwt"
	"github.com/CitoC/IDM-Service/password"
	"github.com/CitoC/IDM-Service/token"
)

// Engine is the identity core. Construct it with Builder.Build; the zero
// value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config       Config
	accountStore AccountStore
	tokens       *token.Manager
	jwtManager   *jwt.Manager
	kdf          *password.KDF
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close flushes and stops the audit pipeline. Safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Register creates a new ACTIVE account for email with the given password.
// The email is normalized to lower case before storage so lookups are case
// insensitive.
func (e *Engine) Register(ctx context.Context, email, pass string) (*Account, error) {
	if e == nil || e.kdf == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)
	if email == "" || pass == "" {
		return nil, ErrInvalidCredentials
	}

	salt, err := e.kdf.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash := e.kdf.Derive(pass, salt)
	pass = ""

	acct, err := e.accountStore.Create(ctx, email, salt, hash)
	if err != nil {
		if errors.Is(err, ErrUserExists) {
			e.metricInc(MetricRegisterDuplicate)
		}
		e.emitAudit(ctx, auditEventRegisterFailure, false, email, 0, 0, err)
		return nil, err
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, email, acct.ID, 0, nil)
	return acct, nil
}

// Authenticate verifies email and password and returns the account. The
// password is always checked before the account status so that a locked or
// banned response never leaks whether the password was right.
func (e *Engine) Authenticate(ctx context.Context, email, pass string) (*Account, error) {
	if e == nil || e.kdf == nil {
		return nil, ErrEngineNotReady
	}
	email = normalizeEmail(email)

	acct, err := e.accountStore.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metricInc(MetricLoginFailure)
			e.emitAudit(ctx, auditEventLoginFailure, false, email, 0, 0, ErrUserNotFound)
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if !e.kdf.Verify(pass, acct.Salt, acct.HashedPassword) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, acct.ID, 0, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}
	pass = ""

	if statusErr := accountStatusToError(acct.Status); statusErr != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, email, acct.ID, 0, statusErr)
		return nil, statusErr
	}

	return acct, nil
}

// Login authenticates the credentials and, on success, issues a signed
// access token and a fresh refresh token.
func (e *Engine) Login(ctx context.Context, email, pass string) (*TokenPair, error) {
	acct, err := e.Authenticate(ctx, email, pass)
	if err != nil {
		return nil, err
	}

	access, err := e.jwtManager.Issue(acct.Email, acct.ID, acct.Roles)
	if err != nil {
		return nil, err
	}

	rt, err := e.tokens.Issue(ctx, acct.ID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, acct.Email, acct.ID, rt.ID, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rt.Value,
	}, nil
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token's expiry slides forward by the configured window; when the slide
// would push past the token's maximum lifetime the token is revoked and a
// replacement is issued instead. The returned pair always carries the
// refresh token the caller should present next time.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if e == nil || e.tokens == nil {
		return nil, ErrEngineNotReady
	}

	current, err := e.tokens.Lookup(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", 0, 0, ErrTokenNotFound)
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	next, err := e.tokens.Refresh(ctx, current)
	if err != nil {
		mapped := refreshErrorToPublic(err)
		if errors.Is(mapped, ErrConflict) {
			e.metricInc(MetricRefreshConflict)
		} else {
			e.metricInc(MetricRefreshFailure)
		}
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", current.AccountID, current.ID, mapped)
		return nil, mapped
	}

	acct, err := e.accountFor(ctx, next.AccountID)
	if err != nil {
		return nil, err
	}

	access, err := e.jwtManager.Issue(acct.Email, acct.ID, acct.Roles)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	if next.Value != current.Value {
		e.metricInc(MetricRefreshRotated)
	}
	e.emitAudit(ctx, auditEventRefreshSuccess, true, acct.Email, acct.ID, next.ID, nil)

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: next.Value,
	}, nil
}

// VerifyAccess validates a signed access token and returns the identity it
// carries. No storage is consulted.
func (e *Engine) VerifyAccess(accessToken string) (*AuthResult, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	claims, err := e.jwtManager.Verify(accessToken)
	if err != nil {
		e.metricInc(MetricVerifyFailure)
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	e.metricInc(MetricVerifySuccess)
	return &AuthResult{
		Email:     claims.Subject,
		AccountID: claims.UID,
		Roles:     claims.Roles,
	}, nil
}

func (e *Engine) accountFor(ctx context.Context, accountID int64) (*Account, error) {
	acct, err := e.accountStore.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func refreshErrorToPublic(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrRevoked):
		return ErrTokenRevoked
	case errors.Is(err, token.ErrNotFound):
		return ErrTokenNotFound
	case errors.Is(err, token.ErrConflict):
		return ErrConflict
	default:
		return err
	}
}

func accountStatusToError(s AccountStatus) error {
	switch s {
	case AccountLocked:
		return ErrUserLocked
	case AccountBanned:
		return ErrUserBanned
	default:
		return nil
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
