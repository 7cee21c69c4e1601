package upstream

import "context"

// Caller sends a payload to one upstream service.
type Caller interface {
	Call(ctx context.Context, payload []byte) ([]byte, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}
