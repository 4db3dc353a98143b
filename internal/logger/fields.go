package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldSurface is the structured log field key for the discovery surface name.
	FieldSurface = "surface"
	// FieldMode is the structured log field key for the resolved view mode.
	FieldMode = "mode"
	// FieldViewer is the structured log field key for the viewer identifier.
	FieldViewer = "viewer"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts key/value pairs into zap fields, dropping entries
// with an empty key or value.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger, defaulting to a no-op logger when nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// CommonFields returns the fields describing which surface and mode a log line belongs to.
func CommonFields(surface, mode string) []zap.Field {
	return StringFields(
		StringField{Key: FieldSurface, Value: surface},
		StringField{Key: FieldMode, Value: mode},
	)
}

func WithCommonFields(logger *zap.Logger, surface, mode string) *zap.Logger {
	return WithFields(logger, CommonFields(surface, mode)...)
}

// ViewerField returns the viewer field, or an empty slice for anonymous viewers.
func ViewerField(viewer string) []zap.Field {
	return StringFields(StringField{Key: FieldViewer, Value: viewer})
}
