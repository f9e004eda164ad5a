package database

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/tracelog"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMigrationVersion(t *testing.T) {
	tests := []struct {
		name     string
		expected int
	}{
		{"001_active_sessions.sql", 1},
		{"012_index.sql", 12},
		{"abc_nope.sql", 0},
		{"x.sql", 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := migrationVersion(tc.name); got != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, got)
			}
		})
	}
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	names, err := migrationNames(migrationFiles)
	if err != nil {
		t.Fatalf("migrationNames: %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected embedded migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if migrationVersion(names[i]) <= migrationVersion(names[i-1]) {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
}

func TestZapTracer_MapsLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	tracer := NewZapTracer(zap.New(core))

	tracer.Log(context.Background(), tracelog.LogLevelWarn, "slow query", map[string]any{"sql": "SELECT 1"})
	tracer.Log(context.Background(), tracelog.LogLevelError, "query failed", nil)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel || entries[0].ContextMap()["sql"] != "SELECT 1" {
		t.Errorf("unexpected warn entry: %+v", entries[0])
	}
	if entries[1].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level, got %v", entries[1].Level)
	}
}
