// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	actorID := requestcontext.ActorID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithActorID(ctx, actorID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithResidentialID(ctx, residentialID)
package requestcontext

import (
	"context"
	"time"

	id "domio/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	actorIDKey       struct{}
	residentialIDKey struct{}
	requestIDKey     struct{}
	requestTimeKey   struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyActorID       = actorIDKey{}
	ContextKeyResidentialID = residentialIDKey{}
	ContextKeyRequestID     = requestIDKey{}
	ContextKeyRequestTime   = requestTimeKey{}
)

// ActorID retrieves the acting administrator's user ID from the context.
// Returns the zero value (nil UUID) if not set.
func ActorID(ctx context.Context) id.UserID {
	if actorID, ok := ctx.Value(ContextKeyActorID).(id.UserID); ok {
		return actorID
	}
	return id.UserID{}
}

// WithActorID injects the acting administrator's user ID into the context.
func WithActorID(ctx context.Context, actorID id.UserID) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// ResidentialID retrieves the residential (property group) scope from the context.
// Returns the zero value (nil UUID) if not set.
func ResidentialID(ctx context.Context) id.ResidentialID {
	if residentialID, ok := ctx.Value(ContextKeyResidentialID).(id.ResidentialID); ok {
		return residentialID
	}
	return id.ResidentialID{}
}

// WithResidentialID injects the residential scope into the context.
func WithResidentialID(ctx context.Context, residentialID id.ResidentialID) context.Context {
	return context.WithValue(ctx, ContextKeyResidentialID, residentialID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Repair passes that need a consistent time across a batch
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
