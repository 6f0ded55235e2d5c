package log

import "context"

// Logger is the logging contract the lifecycle engine and its drivers
// depend on. It is always constructor-injected, never reached through a
// package-level global, so the core stays testable in isolation.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	// With returns a new logger with the fields added to its context.
	With(fields map[string]interface{}) Logger
}
