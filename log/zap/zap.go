// Package zap adapts a *zap.Logger to boss.Logger.
package zap

import (
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/boss"
)

var _ boss.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New names the logger "boss".
func New(l *zap.Logger) Logger { return Logger{L: l.Named("boss")} }

func (z Logger) Debug(msg string, f boss.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f boss.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f boss.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f boss.Fields) { z.L.Error(msg, fields(f)...) }

func fields(f boss.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
