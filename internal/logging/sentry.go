package logging

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
)

func shouldIgnore(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// CaptureError logs err and reports it to Sentry. Use it for failures outside
// a request, such as scheduled sweeps. Without a Sentry client only the log
// line is written.
func CaptureError(err error, message string, args ...any) {
	if err == nil {
		return
	}
	slog.Error(message, append(args, "error", err)...)
	if shouldIgnore(err) {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetExtra("message", message)
		for i := 0; i+1 < len(args); i += 2 {
			if key, ok := args[i].(string); ok {
				scope.SetExtra(key, args[i+1])
			}
		}
		sentry.CaptureException(err)
	})
}
