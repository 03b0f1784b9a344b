package service

import (
	"context"

	"github.com/sirupsen/logrus"
)

type loggerKey struct{}

// WithLogger attaches a request- or pass-scoped log entry to ctx.
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, entry)
}

// LoggerFrom returns the entry attached by WithLogger, or the standard logger.
func LoggerFrom(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(loggerKey{}).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// RecoverAndLog stops a panic in a detached goroutine and logs it. It must
// be deferred directly.
func RecoverAndLog(log *logrus.Entry, what string) {
	if rec := recover(); rec != nil {
		log.WithField("panic", rec).Errorf("%s panicked", what)
	}
}
