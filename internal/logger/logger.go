package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

type Options struct {
	Development bool
	SentryDSN   string
	Output      io.Writer
}

// New builds the process logger.
// Development: text format with debug level
// Production: JSON format with info level
// With a Sentry DSN, error records are also reported to Sentry.
func New(opts Options) (*slog.Logger, error) {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handlers []slog.Handler

	if opts.Development {
		handlers = append(handlers, slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	} else {
		handlers = append(handlers, slog.NewJSONHandler(out, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	if opts.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              opts.SentryDSN,
			AttachStacktrace: true,
		})
		if err != nil {
			return nil, fmt.Errorf("init sentry: %w", err)
		}

		handlers = append(handlers, slogsentry.Option{
			Level: slog.LevelError,
		}.NewSentryHandler())
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), nil
	}
	return slog.New(slogmulti.Fanout(handlers...)), nil
}

// Init installs the logger as the slog default. A Sentry failure is logged and
// the process continues with stdout logging only.
func Init(isDev bool, sentryDSN string) {
	log, err := New(Options{Development: isDev, SentryDSN: sentryDSN})
	if err != nil {
		log, _ = New(Options{Development: isDev})
		log.Warn("sentry disabled", "error", err)
	}

	slog.SetDefault(log)
}

// Flush waits for buffered Sentry events before shutdown.
func Flush() {
	sentry.Flush(2 * time.Second)
}
