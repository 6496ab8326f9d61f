package harness

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Harness manages the test environment for itch-tip
type Harness struct {
	t          *testing.T
	binaryPath string
	tempDir    string
}

// Result holds the output from running itch-tip
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Messages []Message
}

// New creates a new test harness
func New(t *testing.T) *Harness {
	t.Helper()

	// Create temp directory for this test
	tempDir, err := os.MkdirTemp("", "itch-tip-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	h := &Harness{
		t:       t,
		tempDir: tempDir,
	}

	// Build the binary
	h.buildBinary()

	return h
}

// buildBinary builds itch-tip for testing
func (h *Harness) buildBinary() {
	h.t.Helper()

	// The test is run from its package directory, walk up to find go.mod
	cwd, err := os.Getwd()
	if err != nil {
		h.t.Fatalf("Failed to get working directory: %v", err)
	}

	projectRoot := cwd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			h.t.Fatalf("Could not find project root (go.mod)")
		}
		projectRoot = parent
	}

	h.binaryPath = filepath.Join(h.tempDir, "itch-tip")
	goCache := filepath.Join(os.TempDir(), "itch-tip-go-cache")

	cmd := exec.Command("go", "build", "-o", h.binaryPath, ".")
	cmd.Dir = projectRoot
	cmd.Env = append(os.Environ(),
		"CGO_ENABLED=0",
		fmt.Sprintf("GOCACHE=%s", goCache),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		h.t.Fatalf("Failed to build binary: %v\nOutput: %s", err, output)
	}
}

// TempDir returns the temporary directory for this test
func (h *Harness) TempDir() string {
	return h.tempDir
}

// Run executes itch-tip with the given arguments.
// Always injects --json so messages can be parsed.
func (h *Harness) Run(args ...string) *Result {
	h.t.Helper()
	return h.RunWithEnv(nil, args...)
}

// RunWithEnv executes itch-tip with extra environment variables.
func (h *Harness) RunWithEnv(extraEnv map[string]string, args ...string) *Result {
	h.t.Helper()

	fullArgs := append([]string{"--json"}, args...)
	cmd := exec.Command(h.binaryPath, fullArgs...)

	env := []string{
		fmt.Sprintf("HOME=%s", h.tempDir),
	}

	// Copy minimal required environment variables
	for _, e := range os.Environ() {
		if strings.HasPrefix(e, "PATH=") {
			env = append(env, e)
		}
	}

	for k, v := range extraEnv {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			h.t.Logf("Run error: %v", err)
			result.ExitCode = -1
		}
	}

	// JSON messages share stderr with the log
	result.Messages = ParseMessages(stderr.String())

	return result
}

// ParseMessages extracts JSON messages from output
func ParseMessages(output string) []Message {
	var messages []Message
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if msg, ok := ParseMessage(line); ok {
			messages = append(messages, msg)
		}
	}
	return messages
}

// Cleanup removes temporary files
func (h *Harness) Cleanup() {
	os.RemoveAll(h.tempDir)
}
