package idm

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess    = "login_success"
	auditEventLoginFailure    = "login_failure"
	auditEventRegisterSuccess = "register_success"
	auditEventRegisterFailure = "register_failure"
	auditEventRefreshSuccess  = "refresh_success"
	auditEventRefreshInvalid  = "refresh_invalid"
)

// AuditErrorCode is the stable error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrUserNotFound       AuditErrorCode = "user_not_found"
	auditErrUserLocked         AuditErrorCode = "user_locked"
	auditErrUserBanned         AuditErrorCode = "user_banned"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrTokenNotFound      AuditErrorCode = "token_not_found"
	auditErrTokenExpired       AuditErrorCode = "token_expired"
	auditErrTokenRevoked       AuditErrorCode = "token_revoked"
	auditErrTokenInvalid       AuditErrorCode = "token_invalid"
	auditErrConflict           AuditErrorCode = "conflict"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	email string,
	accountID int64,
	tokenID int64,
	err error,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Email:     email,
		AccountID: accountID,
		TokenID:   tokenID,
		Success:   success,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrAccountNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrUserLocked):
		return auditErrUserLocked
	case errors.Is(err, ErrUserBanned):
		return auditErrUserBanned
	case errors.Is(err, ErrUserExists):
		return auditErrDuplicate
	case errors.Is(err, ErrTokenNotFound):
		return auditErrTokenNotFound
	case errors.Is(err, ErrTokenExpired):
		return auditErrTokenExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrTokenRevoked
	case errors.Is(err, ErrTokenInvalid):
		return auditErrTokenInvalid
	case errors.Is(err, ErrConflict):
		return auditErrConflict
	default:
		return auditErrInternal
	}
}
