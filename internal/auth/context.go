// ABOUTME: Caller identity carried through request handlers
// ABOUTME: Provides WithSubject/SubjectFromContext for propagating the verified token subject

package auth

import "context"

// subjectKey is the key type for storing the verified subject in context.Context.
type subjectKey struct{}

// WithSubject returns a new context carrying the verified caller subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the verified subject, or "" when the request was not authenticated.
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
