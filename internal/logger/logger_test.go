package logger

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
)

func capture(t *testing.T, verbose bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verbose)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false")
	}
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestLevels_WhenVerbose(t *testing.T) {
	tests := []struct {
		name string
		log  func(string, ...any)
		want string
	}{
		{"debug", Debug, "[DEBUG] test message arg\n"},
		{"info", Info, "[INFO] test message arg\n"},
		{"warn", Warn, "[WARN] test message arg\n"},
		{"error", Error, "[ERROR] test message arg\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, true)
			tt.log("test message %s", "arg")
			if got := buf.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLevels_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("hidden")
	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}

	Error("shown %d", 1)
	if got := buf.String(); got != "[ERROR] shown 1\n" {
		t.Errorf("unexpected error output: %q", got)
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, true)
	Section("Test Section")
	if got := buf.String(); got != "\n=== Test Section ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}
}

func TestL_StructuredFields(t *testing.T) {
	buf := capture(t, true)
	L().Info("indexed", zap.Int("chunks", 3))
	got := buf.String()
	if !strings.HasPrefix(got, "[INFO] indexed") || !strings.Contains(got, `"chunks": 3`) {
		t.Errorf("unexpected structured output: %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, true)
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%5 == 0 {
				SetVerbose(i%2 == 0)
			}
			Debug("message %d", i)
			_ = IsVerbose()
		}()
	}
	wg.Wait()
}
