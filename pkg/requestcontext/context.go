// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; the audit core reads them
// without pulling in net/http.
//
// Usage in services (read values):
//
//	subjectID := requestcontext.SubjectID(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithSubjectID(ctx, subjectID)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import "context"

// Context key types (unexported for encapsulation).
type (
	subjectIDKey struct{}
	requestIDKey struct{}
)

// SubjectID retrieves the identifier of the actor initiating the change.
// Returns "" when the context is unauthenticated, which is a valid state:
// audit records may carry no subject.
func SubjectID(ctx context.Context) string {
	if subjectID, ok := ctx.Value(subjectIDKey{}).(string); ok {
		return subjectID
	}
	return ""
}

// WithSubjectID injects a subject identifier into the context.
func WithSubjectID(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectIDKey{}, subjectID)
}

// RequestID retrieves the request correlation identifier from the context.
func RequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		return requestID
	}
	return ""
}

// WithRequestID injects a request identifier into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}
