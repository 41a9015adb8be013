package trace

import "context"

type tracerKey struct{}

// FromContext returns the tracer attached by WithTracer, or Nop.
func FromContext(ctx context.Context) Tracer {
	if ctx == nil {
		return Nop
	}
	if t, ok := ctx.Value(tracerKey{}).(Tracer); ok {
		return t
	}
	return Nop
}

// WithTracer attaches t to ctx; a nil t attaches Nop.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, tracerKey{}, t)
}

type parentKey struct{}

// WithParent records the span that fixture runs started under ctx hang
// from: the command span for `regionck solve`, the directory span for
// `regionck check`.
func WithParent(ctx context.Context, spanID uint64) context.Context {
	if ctx == nil || spanID == 0 {
		return ctx
	}
	return context.WithValue(ctx, parentKey{}, spanID)
}

// ParentFrom is the span id recorded by WithParent, 0 if there is none.
func ParentFrom(ctx context.Context) uint64 {
	if ctx == nil {
		return 0
	}
	id, _ := ctx.Value(parentKey{}).(uint64)
	return id
}
