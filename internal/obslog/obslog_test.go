package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	prev := globalLogger
	t.Cleanup(func() { globalLogger = prev })

	path := filepath.Join(t.TempDir(), "nested", "quizd.log")
	if err := Init(Options{Level: "info", Format: "json", File: path}); err != nil {
		t.Fatalf("init: %v", err)
	}
	L().Info("quiz_loaded")
	Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(raw), `"msg":"quiz_loaded"`) {
		t.Fatalf("log file missing entry: %s", raw)
	}
}
