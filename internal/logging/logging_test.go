package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitializeWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "matali.log")
	t.Cleanup(Reset)

	if err := Initialize(Config{Level: "debug", Format: "json", Output: path}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Info("tiers loaded", zap.Int("rows", 8), TableHash("ab12"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{`"msg":"tiers loaded"`, `"rows":8`, `"table_hash":"ab12"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log output missing %s: %s", want, data)
		}
	}
}

func TestNamedUsesObserver(t *testing.T) {
	t.Cleanup(Reset)
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))

	log := Named("pricer")
	log.Debug("dropped")
	log.Warn("label fallback", Label("unknown"), ServiceKey("preparation_team"))

	if logs.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "label fallback" || entry.LoggerName != "pricer" {
		t.Errorf("entry = %q from %q", entry.Message, entry.LoggerName)
	}
	if got := entry.ContextMap()["service_key"]; got != "preparation_team" {
		t.Errorf("service_key = %v", got)
	}
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if l.Core().Enabled(zap.DebugLevel) {
		t.Error("debug should be disabled at the fallback level")
	}
	if !l.Core().Enabled(zap.InfoLevel) {
		t.Error("info should be enabled at the fallback level")
	}
}

func TestSetLoggerNil(t *testing.T) {
	t.Cleanup(Reset)
	SetLogger(nil)
	Info("goes nowhere")
}
