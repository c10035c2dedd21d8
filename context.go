package tuplekit

import (
	"context"
)

// Context keys for TupleKit values.
type contextKey string

const (
	contextKeyUser        contextKey = "tuplekit:user"
	contextKeyConsistency contextKey = "tuplekit:consistency"
	contextKeyAuthorizer  contextKey = "tuplekit:authorizer"
)

// WithUser adds a user reference to the context.
// This is the subject permission checks run against, e.g. "user:alice".
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// GetUser retrieves the user reference from context.
// Returns empty string if not set.
func GetUser(ctx context.Context) string {
	if v := ctx.Value(contextKeyUser); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// MustGetUser retrieves the user reference from context.
// Panics if not set.
func MustGetUser(ctx context.Context) string {
	user := GetUser(ctx)
	if user == "" {
		panic("tuplekit: user not in context")
	}
	return user
}

// WithConsistency adds a consistency token to the context. Checks built from
// this context require the store to have seen at least this transaction id.
func WithConsistency(ctx context.Context, txid int64) context.Context {
	return context.WithValue(ctx, contextKeyConsistency, txid)
}

// GetConsistency retrieves the consistency token from context.
// Returns zero if not set, meaning no freshness requirement.
func GetConsistency(ctx context.Context) int64 {
	if v := ctx.Value(contextKeyConsistency); v != nil {
		if txid, ok := v.(int64); ok {
			return txid
		}
	}
	return 0
}

// WithAuthorizer adds an Authorizer to the context.
// This is set by middleware and can be retrieved in handlers.
func WithAuthorizer(ctx context.Context, a Authorizer) context.Context {
	return context.WithValue(ctx, contextKeyAuthorizer, a)
}

// GetAuthorizer retrieves the Authorizer from context.
// Returns nil if not set.
func GetAuthorizer(ctx context.Context) Authorizer {
	if v := ctx.Value(contextKeyAuthorizer); v != nil {
		if a, ok := v.(Authorizer); ok {
			return a
		}
	}
	return nil
}

// FromContext retrieves the Authorizer from context.
// Alias for GetAuthorizer for convenience.
func FromContext(ctx context.Context) Authorizer {
	return GetAuthorizer(ctx)
}

// RequestScope bundles the per-request values the middleware manages.
type RequestScope struct {
	User        string
	Consistency int64
}

// GetRequestScope extracts the request scope from context.
func GetRequestScope(ctx context.Context) RequestScope {
	return RequestScope{
		User:        GetUser(ctx),
		Consistency: GetConsistency(ctx),
	}
}

// WithRequestScope adds the request scope to context at once.
func WithRequestScope(ctx context.Context, rs RequestScope) context.Context {
	if rs.User != "" {
		ctx = WithUser(ctx, rs.User)
	}
	if rs.Consistency > 0 {
		ctx = WithConsistency(ctx, rs.Consistency)
	}
	return ctx
}
