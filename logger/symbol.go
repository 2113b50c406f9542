package logger

import (
	"github.com/teranos/maestro/sym"
	"go.uber.org/zap"
)

// WithComponent tags a logger with a component name and its glyph, so
// processor, scheduler and sky output can be filtered.
//
//	log := logger.WithComponent(base, sym.DbOps)
//	log.Infow("job completed", logger.FieldJobLabel, "remove_3")
func WithComponent(base *zap.SugaredLogger, component string) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := []interface{}{FieldComponent, component}
	if glyph := sym.GlyphFor(component); glyph != "" {
		fields = append(fields, FieldSymbol, glyph)
	}
	return base.With(fields...)
}

// PulseInfow logs a dispatch-loop event with the pulse glyph.
func PulseInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		log.Infow(msg, append([]interface{}{FieldSymbol, sym.Pulse}, keysAndValues...)...)
	}
}

// PulseOpenInfow logs a startup event (✿).
func PulseOpenInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		log.Infow(msg, append([]interface{}{FieldSymbol, sym.PulseOpen}, keysAndValues...)...)
	}
}

// PulseCloseInfow logs a shutdown event (❀).
func PulseCloseInfow(log *zap.SugaredLogger, msg string, keysAndValues ...interface{}) {
	if log != nil {
		log.Infow(msg, append([]interface{}{FieldSymbol, sym.PulseClose}, keysAndValues...)...)
	}
}
