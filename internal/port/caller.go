package port

import "context"

// Caller is the authenticated identity behind a request.
type Caller struct {
	Admin         bool
	ApplicationID int64
	Token         string
}

// ApplicationRef returns the caller's application id, or nil for administrators.
func (c Caller) ApplicationRef() *int64 {
	if c.Admin {
		return nil
	}
	id := c.ApplicationID
	return &id
}

type callerKey struct{}

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
