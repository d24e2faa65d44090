package txsession

import "context"

// Using an unexported type prevents key collisions from other packages.
type currentKey struct{}

// WithCurrent returns a copy of ctx carrying s as the current session.
// Passing a nil session marks the slot as unset again.
func WithCurrent(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, currentKey{}, s)
}

// Current returns the current session of the flow, or nil when unset.
func Current(ctx context.Context) Session {
	s, _ := ctx.Value(currentKey{}).(Session)
	return s
}

// CurrentAs returns the current session as the backend specific type T.
func CurrentAs[T Session](ctx context.Context) (T, bool) {
	s, ok := Current(ctx).(T)
	return s, ok
}
