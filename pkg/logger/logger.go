// Package logger builds the structured logger every IgniteDB component
// uses. It wraps go.uber.org/zap behind a single constructor so call sites
// never configure zap directly — they just name the service they're
// logging for.
package logger

import "go.uber.org/zap"

// New builds a production-configured, sugared logger tagged with service.
// Callers that want no log output at all (mostly tests) use Nop instead.
func New(service string) *zap.SugaredLogger {
	base, err := zap.NewProduction()
	if err != nil {
		// zap.NewProduction only fails if it can't build its own internal
		// sinks, which does not happen with the defaults used here.
		base = zap.NewNop()
	}
	return base.Sugar().With("service", service)
}

// Nop returns a logger that discards everything. Useful for tests that
// want to construct engine internals without a zap dependency check.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
