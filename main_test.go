package main

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRunFailureClosesLog(t *testing.T) {
	logDir := t.TempDir()

	code := run([]string{"--log-dir", logDir, "cycle", "--sequence", "a,z"})
	if code != 1 {
		t.Fatalf("Expected exit code 1, got %d", code)
	}

	if w := log.Writer(); w != os.Stderr {
		t.Errorf("Expected log output restored to stderr after run")
	}

	bs, err := os.ReadFile(filepath.Join(logDir, "itch-tip.log"))
	if err != nil {
		t.Fatalf("Expected a log file: %v", err)
	}
	if !strings.Contains(string(bs), "unknown step") {
		t.Errorf("Expected the failure in the log file, got:\n%s", bs)
	}
}

func TestRunCycleSucceeds(t *testing.T) {
	code := run([]string{"cycle", "--sequence", "a,a,r,r"})
	if code != 0 {
		t.Errorf("Expected exit code 0, got %d", code)
	}
}

func TestRunBadFlags(t *testing.T) {
	code := run([]string{"nope"})
	if code != 2 {
		t.Errorf("Expected exit code 2, got %d", code)
	}
}
