package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  surface  ", Value: "  opportunities  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "surface" || fields[0].String != "opportunities" {
		t.Fatalf("unexpected surface field: %+v", fields[0])
	}

	if empty := StringFields(); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	WithFields(logger, zap.String("foo", "bar")).Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	if ctx := entries[0].ContextMap(); ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched := WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}
	enriched.Info("another log")
}

func TestCommonFields(t *testing.T) {
	fields := CommonFields(" candidates ", "best-match")
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}

	if fields[0].Key != FieldSurface || fields[0].String != "candidates" {
		t.Fatalf("unexpected surface field: %+v", fields[0])
	}

	if fields[1].Key != FieldMode || fields[1].String != "best-match" {
		t.Fatalf("unexpected mode field: %+v", fields[1])
	}

	if empty := CommonFields("", ""); len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithCommonFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	WithCommonFields(logger, "opportunities", "trending").Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldSurface] != "opportunities" {
		t.Fatalf("expected surface field to be opportunities, got %q", ctx[FieldSurface])
	}
	if ctx[FieldMode] != "trending" {
		t.Fatalf("expected mode field to be trending, got %q", ctx[FieldMode])
	}

	WithCommonFields(nil, "opportunities", "trending").Info("another log")
}

func TestViewerField(t *testing.T) {
	if fields := ViewerField("  "); len(fields) != 0 {
		t.Fatalf("expected no field for anonymous viewer, got %d", len(fields))
	}
	fields := ViewerField("v-1")
	if len(fields) != 1 || fields[0].Key != FieldViewer {
		t.Fatalf("unexpected viewer field: %+v", fields)
	}
}
