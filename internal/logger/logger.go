package logger

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/kardianos/service"
	slogmulti "github.com/samber/slog-multi"
)

// Verbosity is how much a run reports.
type Verbosity int

const (
	Quiet   Verbosity = iota // errors only
	Normal                   // summary lines
	Verbose                  // one line per deleted file
)

// Level maps a verbosity to the lowest slog level that gets printed.
func (v Verbosity) Level() slog.Level {
	switch v {
	case Quiet:
		return slog.LevelError
	case Verbose:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Options select where logs go. Console is required, the rest optional.
type Options struct {
	Verbosity Verbosity
	Console   io.Writer
	File      io.Writer
	Service   service.Logger
}

// Setup builds a logger that fans out to the console, and to the log file
// and service logger when given. The console drops timestamps; the file
// keeps full records.
func Setup(opts Options) *slog.Logger {
	level := opts.Verbosity.Level()

	handlers := []slog.Handler{
		slog.NewTextHandler(opts.Console, &slog.HandlerOptions{
			Level: level,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey && len(groups) == 0 {
					return slog.Attr{}
				}
				return a
			},
		}),
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.File, &slog.HandlerOptions{Level: level}))
	}
	if opts.Service != nil {
		handlers = append(handlers, NewServiceHandler(opts.Service, level))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// ServiceHandler adapts slog.Handler to service.Logger.
// It formats the log record (message + attributes) into a string and passes it to the underlying service logger.
type ServiceHandler struct {
	svc   service.Logger
	level slog.Level
	// scope replays WithAttrs and WithGroup calls in the order they were made.
	scope []func(slog.Handler) slog.Handler
}

// NewServiceHandler returns a handler forwarding records at or above level.
func NewServiceHandler(svc service.Logger, level slog.Level) *ServiceHandler {
	return &ServiceHandler{svc: svc, level: level}
}

func (h *ServiceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle formats the record and writes it to the service logger.
func (h *ServiceHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.svc == nil {
		return nil
	}

	var buf bytes.Buffer
	// The service logger (event log/syslog) stamps time and level itself.
	th := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey) {
				return slog.Attr{}
			}
			return a
		},
	})

	var handler slog.Handler = th
	for _, apply := range h.scope {
		handler = apply(handler)
	}

	if err := handler.Handle(ctx, r); err != nil {
		return err
	}
	msg := strings.TrimSpace(buf.String())

	switch {
	case r.Level >= slog.LevelError:
		return h.svc.Error(msg)
	case r.Level >= slog.LevelWarn:
		return h.svc.Warning(msg)
	default:
		return h.svc.Info(msg)
	}
}

func (h *ServiceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *ServiceHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *ServiceHandler) with(apply func(slog.Handler) slog.Handler) *ServiceHandler {
	next := *h
	next.scope = append(append([]func(slog.Handler) slog.Handler(nil), h.scope...), apply)
	return &next
}
