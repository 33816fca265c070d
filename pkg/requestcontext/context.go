// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Middleware sets these values; services consume them. Keeping this package
// free of net/http dependencies means the provisioning core can be tested
// without a live operator session:
//
//	operatorID := requestcontext.OperatorID(ctx)
//	now := requestcontext.Now(ctx)
//
//	ctx = requestcontext.WithOperator(ctx, operatorID, institutionID)
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	operatorIDKey    struct{}
	institutionIDKey struct{}
	authTokenKey     struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// OperatorID retrieves the authenticated operator ID from the context.
// Returns "" if not set.
func OperatorID(ctx context.Context) string {
	if v, ok := ctx.Value(operatorIDKey{}).(string); ok {
		return v
	}
	return ""
}

// InstitutionID retrieves the operator's institution from the context.
// Every provisioned identity is scoped to it.
func InstitutionID(ctx context.Context) string {
	if v, ok := ctx.Value(institutionIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithOperator injects the authenticated operator and institution into the
// context. Set by the auth middleware; injected directly in tests.
func WithOperator(ctx context.Context, operatorID, institutionID string) context.Context {
	ctx = context.WithValue(ctx, operatorIDKey{}, operatorID)
	return context.WithValue(ctx, institutionIDKey{}, institutionID)
}

// AuthToken retrieves the operator's bearer token. External account-service
// calls must carry it; the token is request-scoped, never stored.
func AuthToken(ctx context.Context) string {
	if v, ok := ctx.Value(authTokenKey{}).(string); ok {
		return v
	}
	return ""
}

// WithAuthToken injects the operator's bearer token into the context.
func WithAuthToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, authTokenKey{}, token)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context, falling back to
// time.Now() for non-HTTP contexts (workers, tests that don't care).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and for workers that need consistent time within one batch.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
