package logging

import (
	"context"

	"go.uber.org/zap"
)

// Request-scoped loggers: the HTTP middleware seeds one tagged with the
// request id and order handling narrows it to a single order.

type loggerKey struct{}

// WithRequest stores base, tagged with requestID, in ctx.
func WithRequest(ctx context.Context, base *zap.Logger, requestID string) context.Context {
	if base == nil {
		base = zap.L()
	}
	return context.WithValue(ctx, loggerKey{}, base.With(zap.String("rid", requestID)))
}

// WithOrder narrows the context logger to one order.
func WithOrder(ctx context.Context, orderID string) context.Context {
	return context.WithValue(ctx, loggerKey{}, FromContext(ctx).With(zap.String("order_id", orderID)))
}

// FromContext returns the request logger, or zap.L() outside a request.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.L()
}
