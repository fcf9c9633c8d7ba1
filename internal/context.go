package internal

import (
	"context"
	"time"
)

type ctxKey string

const (
	ContextCredentialsKey ctxKey = "credentials"
	ContextUserKey        ctxKey = "userID"
	ContextRahatRoleKey   ctxKey = "rahatRole"
)

// Credentials is what the browser presented to the dashboard and what gets
// forwarded to the relief backend on every call.
type Credentials struct {
	Cookie string
}

func (c Credentials) IsZero() bool {
	return c.Cookie == ""
}

func ContextWithCredentials(ctx context.Context, creds Credentials) context.Context {
	return context.WithValue(ctx, ContextCredentialsKey, creds)
}

func CredentialsFromContext(ctx context.Context) Credentials {
	if ctx == nil {
		return Credentials{}
	}
	if creds, ok := ctx.Value(ContextCredentialsKey).(Credentials); ok {
		return creds
	}
	return Credentials{}
}

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if userID, ok := ctx.Value(ContextUserKey).(string); ok {
		return userID
	}
	return ""
}

func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserKey, userID)
}

func ContextWithRahatRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextRahatRoleKey, role)
}

func RahatRoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if role, ok := ctx.Value(ContextRahatRoleKey).(string); ok {
		return role
	}
	return ""
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
