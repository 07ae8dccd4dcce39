// Package zap adapts a *zap.Logger to gridcache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/gridcache"
)

var _ gridcache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names l "gridcache". A nil l yields a no-op logger.
func New(l *zap.Logger) Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return Logger{L: l.Named("gridcache")}
}

func (z Logger) Debug(msg string, f gridcache.Fields) { z.log(zapcore.DebugLevel, msg, f) }
func (z Logger) Info(msg string, f gridcache.Fields)  { z.log(zapcore.InfoLevel, msg, f) }
func (z Logger) Warn(msg string, f gridcache.Fields)  { z.log(zapcore.WarnLevel, msg, f) }
func (z Logger) Error(msg string, f gridcache.Fields) { z.log(zapcore.ErrorLevel, msg, f) }

// log builds fields only when the level is enabled; handles log on every call.
func (z Logger) log(lvl zapcore.Level, msg string, f gridcache.Fields) {
	if ce := z.L.Check(lvl, msg); ce != nil {
		ce.Write(fields(f)...)
	}
}

func fields(f gridcache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
