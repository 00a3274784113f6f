package utils

import (
	"context"

	"github.com/mmdatafocus/fieldsales_backend/appctx"
)

// Alias the shared context key type so existing code keeps working.
type contextKey = appctx.ContextKey

var (
	ContextKeyRepresentativeCode = appctx.ContextKeyRepresentativeCode
	ContextKeyRepresentativeName = appctx.ContextKeyRepresentativeName
	ContextKeyCorrelationId      = appctx.ContextKeyCorrelationId
	ContextKeyRunId              = appctx.ContextKeyRunId

	ContextKeySkipOwnerScope = appctx.ContextKeySkipOwnerScope
)

func GetRepresentativeCodeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRepresentativeCode)
}

func GetRepresentativeNameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRepresentativeName)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func GetRunIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRunId)
}

func SetRepresentativeCodeInContext(ctx context.Context, code string) context.Context {
	return appctx.Set(ctx, ContextKeyRepresentativeCode, code)
}

func SetRepresentativeNameInContext(ctx context.Context, name string) context.Context {
	return appctx.Set(ctx, ContextKeyRepresentativeName, name)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func SetRunIdInContext(ctx context.Context, runId string) context.Context {
	return appctx.Set(ctx, ContextKeyRunId, runId)
}

func GetSkipOwnerScopeFromContext(ctx context.Context) (bool, bool) {
	return appctx.GetBool(ctx, ContextKeySkipOwnerScope)
}

func SetSkipOwnerScopeInContext(ctx context.Context, skip bool) context.Context {
	return appctx.Set(ctx, ContextKeySkipOwnerScope, skip)
}

// RequireRepresentativeCode returns the session code stamped on ctx or ErrNoActiveSession.
func RequireRepresentativeCode(ctx context.Context) (string, error) {
	code, ok := GetRepresentativeCodeFromContext(ctx)
	if !ok || code == "" {
		return "", ErrNoActiveSession
	}
	return code, nil
}
