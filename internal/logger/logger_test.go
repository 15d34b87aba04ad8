package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func reset(t *testing.T) {
	t.Cleanup(func() { set(zap.NewNop()) })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	reset(t)
	dir := t.TempDir()

	tests := []struct {
		level    string
		expected []string
		excluded []string
	}{
		{"error", []string{"ERROR"}, []string{"WARN", "INFO", "DEBUG"}},
		{"warn", []string{"ERROR", "WARN"}, []string{"INFO", "DEBUG"}},
		{"info", []string{"ERROR", "WARN", "INFO"}, []string{"DEBUG"}},
		{"debug", []string{"ERROR", "WARN", "INFO", "DEBUG"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			path := filepath.Join(dir, tt.level+".log")
			if err := Init(Options{Level: tt.level, File: FileConfig{Path: path, MaxSizeMB: 10}}); err != nil {
				t.Fatalf("Init: %v", err)
			}

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")
			Sync()

			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatalf("read log: %v", err)
			}
			content := string(data)
			for _, want := range tt.expected {
				if !strings.Contains(content, want) {
					t.Errorf("expected %s in log output", want)
				}
			}
			for _, bad := range tt.excluded {
				if strings.Contains(content, bad) {
					t.Errorf("unexpected %s in log output for level %s", bad, tt.level)
				}
			}
		})
	}
}

func TestJSONFile(t *testing.T) {
	reset(t)
	path := filepath.Join(t.TempDir(), "viewer.log")
	if err := Init(Options{Level: "info", File: FileConfig{Path: path, MaxSizeMB: 1}, JSON: true}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Named("loader").Info("model loaded", zap.String("url", "chair.glb"))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, data)
	}
	if entry["msg"] != "model loaded" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["logger"] != "modelview.loader" {
		t.Errorf("logger = %v, want modelview.loader", entry["logger"])
	}
	if entry["url"] != "chair.glb" {
		t.Errorf("url = %v", entry["url"])
	}
	if caller, _ := entry["caller"].(string); !strings.HasPrefix(caller, "logger/logger_test.go") {
		t.Errorf("caller = %q, want this test file", caller)
	}
}

func TestHelperCaller(t *testing.T) {
	reset(t)
	var buf bytes.Buffer
	if err := Init(Options{Level: "debug", Console: &buf}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	Info("frame")
	Sugar.Infof("frame %d", 2)

	out := buf.String()
	if n := strings.Count(out, "logger/logger_test.go"); n != 2 {
		t.Errorf("caller points at the test %d times, want 2:\n%s", n, out)
	}
	if strings.Contains(out, "logger/logger.go") {
		t.Errorf("caller points into the logger package:\n%s", out)
	}
}

func TestInitSilent(t *testing.T) {
	reset(t)
	if err := Init(Options{Level: "debug"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if Log.Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger without outputs should be a no-op")
	}
	if err := Init(Options{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestLogRotation(t *testing.T) {
	reset(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "viewer.log")

	cfg := FileConfig{Path: path, MaxSizeMB: 1, MaxBackups: 2, MaxAgeDays: 1}
	if err := Init(Options{Level: "debug", File: cfg}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// About 3MB of entries forces at least one rotation at 1MB.
	long := strings.Repeat("x", 200)
	for i := 0; i < 15000; i++ {
		Sugar.Infof("frame %d: %s", i, long)
	}
	Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	rotated := 0
	for _, e := range entries {
		name := e.Name()
		if name == "viewer.log" || !strings.HasPrefix(name, "viewer") {
			continue
		}
		rotated++
		if !strings.Contains(name, "-20") {
			t.Errorf("rotated file %s has no timestamp", name)
		}
	}
	if rotated == 0 {
		t.Error("no rotated files found")
	}
}

func TestDefaultFileConfig(t *testing.T) {
	cfg := DefaultFileConfig("/tmp/viewer.log")
	if cfg.Path != "/tmp/viewer.log" {
		t.Errorf("Path = %s", cfg.Path)
	}
	if cfg.MaxSizeMB != 20 || cfg.MaxBackups != 3 || cfg.MaxAgeDays != 14 || !cfg.Compress {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
