package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func lastNonEmptyLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) != "" {
			return lines[i]
		}
	}
	return ""
}

func TestLogger_IncludesStackAndServiceOnError(t *testing.T) {
	var buf bytes.Buffer
	log := New("test-service", &buf)
	log.Error().Stack().Err(errors.New("boom")).Msg("something failed")

	line := lastNonEmptyLine(buf.String())
	if line == "" {
		t.Fatalf("no output captured")
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("invalid json log: %v\n%s", err, line)
	}
	if svc, ok := payload["service"].(string); !ok || svc != "test-service" {
		t.Fatalf("expected service=\"test-service\", got %v", payload["service"])
	}
	if lvl, ok := payload["level"].(string); !ok || lvl != "error" {
		t.Fatalf("expected level=\"error\", got %v", payload["level"])
	}
	if _, ok := payload["stack"]; !ok {
		t.Fatalf("expected stack field in error log: %s", line)
	}
}

func TestNewCLI_LevelAndConsole(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := NewCLI(CLIOptions{Service: "taskdesk", Level: "info", Console: &buf})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	defer closer.Close()

	log.Debug().Msg("hidden")
	log.Info().Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestNewCLI_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "taskdesk.log")
	log, closer, err := NewCLI(CLIOptions{Service: "taskdesk", Level: "debug", File: path, Console: &buf})
	if err != nil {
		t.Fatalf("NewCLI: %v", err)
	}
	log.Debug().Str("k", "v").Msg("to file")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(lastNonEmptyLine(string(b))), &payload); err != nil {
		t.Fatalf("file log is not json: %v\n%s", err, b)
	}
	if payload["message"] != "to file" || payload["k"] != "v" {
		t.Fatalf("unexpected file payload: %v", payload)
	}
}

func TestNewCLI_InvalidLevel(t *testing.T) {
	if _, _, err := NewCLI(CLIOptions{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}
