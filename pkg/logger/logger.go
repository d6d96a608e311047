package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/petfinder-app/petfinder-backend/pkg/config"
	"github.com/petfinder-app/petfinder-backend/pkg/instance"
)

const redacted = "[redacted]"

// Options configures the structured logger. Env and Instance become base
// fields on every line. Format is "json" or "console"; empty falls back to
// PETFINDER_LOG_FORMAT so the bootstrap logger honors it before config loads.
type Options struct {
	ServiceName string
	Env         string
	Instance    string
	Format      string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
}

type Logger struct {
	base      *zerolog.Logger
	warnStack bool
}

type ctxKey struct{}

func New(opts Options) *Logger {
	if opts.Level == zerolog.NoLevel {
		opts.Level = zerolog.InfoLevel
	}
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = os.Getenv("PETFINDER_LOG_FORMAT")
	}
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	fields := zerolog.New(out).With().Timestamp().Str("service", opts.ServiceName)
	if opts.Env != "" {
		fields = fields.Str("env", opts.Env)
	}
	if opts.Instance != "" {
		fields = fields.Str("instance", opts.Instance)
	}
	base := fields.Logger().Level(opts.Level)
	return &Logger{base: &base, warnStack: opts.WarnStack}
}

// ForApp builds the logger a petfinder binary runs with once config is loaded.
func ForApp(service string, app config.AppConfig) *Logger {
	return New(Options{
		ServiceName: service,
		Env:         app.Env,
		Instance:    instance.ID(service),
		Format:      app.LogFormat,
		Level:       ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack,
	})
}

func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) loggerFromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
			return entry
		}
	}
	return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, &entry)
}

// WithField adds one field to every later line logged with ctx. Credentials
// are replaced and customer emails masked before they reach the output.
func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.WithFields(ctx, map[string]any{key: value})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	builder := l.loggerFromContext(ctx).With()
	for k, v := range fields {
		builder = builder.Interface(k, scrub(k, v))
	}
	return l.attach(ctx, builder.Logger())
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

func (l *Logger) WithUserID(ctx context.Context, userID string) context.Context {
	return l.WithField(ctx, "user_id", userID)
}

func (l *Logger) WithCartID(ctx context.Context, cartID string) context.Context {
	return l.WithField(ctx, "cart_id", cartID)
}

func (l *Logger) WithOrderID(ctx context.Context, orderID string) context.Context {
	return l.WithField(ctx, "order_id", orderID)
}

func (l *Logger) WithPetID(ctx context.Context, petID string) context.Context {
	return l.WithField(ctx, "pet_id", petID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.loggerFromContext(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	event := l.loggerFromContext(ctx).Warn()
	if l.warnStack {
		event = event.Str("stack", stackTrace())
	}
	event.Msg(msg)
}

// Error always carries a stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	event := l.loggerFromContext(ctx).Error()
	if err != nil {
		event = event.Err(err)
	}
	event.Str("stack", stackTrace()).Msg(msg)
}

func scrub(key string, value any) any {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "password"), strings.Contains(k, "token"), strings.Contains(k, "secret"):
		return redacted
	case k == "email" || strings.HasSuffix(k, "_email"):
		if s, ok := value.(string); ok {
			return maskEmail(s)
		}
	}
	return value
}

// maskEmail keeps the first letter and the domain: l***@example.com.
func maskEmail(email string) string {
	at := strings.LastIndexByte(email, '@')
	if at <= 0 {
		return redacted
	}
	return email[:1] + "***" + email[at:]
}

func stackTrace() string {
	return strings.TrimSpace(string(debug.Stack()))
}
