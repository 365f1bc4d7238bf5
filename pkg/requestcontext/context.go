// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getters live here, free of net/http, so services and
// stores can read request metadata without importing transport code.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey   struct{}
	requestTimeKey struct{}
	actorEmailKey  struct{}
	clientIPKey    struct{}
	scannerInfoKey struct{}
)

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now retrieves the request-scoped time from context. All operations within a
// single request observe the same "now", which keeps the attendance dedup
// window and audit timestamps consistent. Falls back to time.Now() outside
// HTTP (workers, CLI, tests that don't inject a time).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by service tests that walk the dedup window.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}

// ActorEmail retrieves the authenticated account email from the context.
func ActorEmail(ctx context.Context) string {
	if email, ok := ctx.Value(actorEmailKey{}).(string); ok {
		return email
	}
	return ""
}

// WithActorEmail injects the authenticated account email into the context.
func WithActorEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, actorEmailKey{}, email)
}

// ClientIP retrieves the client IP address from the context.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok {
		return ip
	}
	return ""
}

// WithClientIP injects a client IP into the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ScannerInfo retrieves the summarized scanner device description (browser
// and OS of the scan front-end) from the context.
func ScannerInfo(ctx context.Context) string {
	if info, ok := ctx.Value(scannerInfoKey{}).(string); ok {
		return info
	}
	return ""
}

// WithScannerInfo injects a scanner device description into the context.
func WithScannerInfo(ctx context.Context, info string) context.Context {
	return context.WithValue(ctx, scannerInfoKey{}, info)
}
