package journal

import (
	"context"

	"go.uber.org/zap/zapcore"
)

// Core writes zap records into the journal.
type Core struct {
	zapcore.LevelEnabler
	journal *Journal
	fields  []zapcore.Field
}

// NewCore returns a core that persists records enabled by level.
func NewCore(journal *Journal, level zapcore.LevelEnabler) *Core {
	return &Core{LevelEnabler: level, journal: journal}
}

// With returns a copy carrying additional context fields.
func (core *Core) With(fields []zapcore.Field) zapcore.Core {
	combinedFields := make([]zapcore.Field, 0, len(core.fields)+len(fields))
	combinedFields = append(combinedFields, core.fields...)
	combinedFields = append(combinedFields, fields...)
	return &Core{LevelEnabler: core.LevelEnabler, journal: core.journal, fields: combinedFields}
}

// Check adds the core when the entry level is enabled.
func (core *Core) Check(entry zapcore.Entry, checkedEntry *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if core.Enabled(entry.Level) {
		return checkedEntry.AddCore(entry, core)
	}
	return checkedEntry
}

// Write persists the entry with its fields flattened into the entry data.
func (core *Core) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	encoder := zapcore.NewMapObjectEncoder()
	for _, field := range core.fields {
		field.AddTo(encoder)
	}
	for _, field := range fields {
		field.AddTo(encoder)
	}
	return core.journal.append(context.Background(), Entry{
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
		Data:    encoder.Fields,
	})
}

// Sync is a no-op; every write is committed immediately.
func (core *Core) Sync() error {
	return nil
}
