package middleware

import "context"

type contextKey struct{ name string }

var subjectKey = contextKey{"subject"}

// WithSubject returns a context carrying the authenticated client's subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// Subject returns the subject from ctx and true if set; otherwise "", false.
func Subject(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(subjectKey).(string)
	return v, ok
}
