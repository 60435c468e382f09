package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// flooredCore drops entries below floor regardless of the wrapped core level.
type flooredCore struct {
	zapcore.Core

	floor zapcore.Level
}

// Enabled reports whether both the floor and the wrapped core accept l.
func (c *flooredCore) Enabled(l zapcore.Level) bool {
	return c.floor.Enabled(l) && c.Core.Enabled(l)
}

//nolint:gocritic // AddCore requires ent to be passed by value.
func (c *flooredCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(ent.Level) {
		return ce
	}

	return ce.AddCore(ent, c)
}

//nolint:ireturn,nolintlint // Returning zapcore.Core is intended for zap integration.
func (c *flooredCore) With(fields []zapcore.Field) zapcore.Core {
	return &flooredCore{c.Core.With(fields), c.floor}
}

// WithLevel returns a zap option raising the minimum level of a logger.
// Lowering below the level of the global logger has no effect.
//
//nolint:ireturn,nolintlint // Returning zap.Option is intended for zap integration.
func WithLevel(floor zapcore.Level) zap.Option {
	return zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return &flooredCore{core, floor}
	})
}

// WithMinLevel returns a copy of ctx whose logger drops entries below floor.
// The master uses it to keep the in-process sensor node quiet during simulation.
func WithMinLevel(ctx context.Context, floor zapcore.Level) context.Context {
	return ToContext(ctx, FromContext(ctx).WithOptions(WithLevel(floor)))
}
