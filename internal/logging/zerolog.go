// Package logging adapts zerolog to the auth.Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	auth "github.com/goliatone/go-admin-auth"
	"github.com/rs/zerolog"
)

type Options struct {
	Level  string
	Pretty bool
	Output io.Writer
}

// ZeroLogger implements auth.Logger. Calls take either a printf format or a
// message followed by key/value pairs, which become fields.
type ZeroLogger struct {
	l zerolog.Logger
}

var _ auth.Logger = (*ZeroLogger)(nil)

func New(opts Options) *ZeroLogger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return &ZeroLogger{
		l: zerolog.New(out).Level(ParseLevel(opts.Level)).With().Timestamp().Logger(),
	}
}

// FromZerolog wraps an existing logger
func FromZerolog(l zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{l: l}
}

// ParseLevel falls back to info on unknown input
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// With returns a child logger that always carries the given pairs
func (z *ZeroLogger) With(args ...any) *ZeroLogger {
	ctx := z.l.With()
	for i := 0; i+1 < len(args); i += 2 {
		ctx = ctx.Interface(key(args[i]), args[i+1])
	}
	return &ZeroLogger{l: ctx.Logger()}
}

// Zerolog exposes the underlying logger
func (z *ZeroLogger) Zerolog() zerolog.Logger {
	return z.l
}

func (z *ZeroLogger) Debug(format string, args ...any) {
	z.write(z.l.Debug(), format, args)
}

func (z *ZeroLogger) Info(format string, args ...any) {
	z.write(z.l.Info(), format, args)
}

func (z *ZeroLogger) Warn(format string, args ...any) {
	z.write(z.l.Warn(), format, args)
}

func (z *ZeroLogger) Error(format string, args ...any) {
	z.write(z.l.Error(), format, args)
}

func (z *ZeroLogger) write(ev *zerolog.Event, format string, args []any) {
	if ev == nil {
		return
	}

	if strings.Contains(format, "%") {
		ev.Msg(fmt.Sprintf(format, args...))
		return
	}

	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			ev = ev.Interface("extra", args[i])
			break
		}
		if err, ok := args[i+1].(error); ok {
			ev = ev.AnErr(key(args[i]), err)
			continue
		}
		ev = ev.Interface(key(args[i]), args[i+1])
	}
	ev.Msg(format)
}

func key(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}
