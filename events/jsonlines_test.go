package events

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestEmitOnlyWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer DisableJSON()

	Emit(RefChanged{Op: "addref", Count: 1})
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written while JSON is disabled, got %q", buf.String())
	}

	EnableJSON()
	Emit(RefChanged{Op: "release", Count: 0})
	Emit(Shutdown{Step: 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}

	var first struct {
		Type    string     `json:"type"`
		Payload RefChanged `json:"payload"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("parsing first line: %v", err)
	}
	if first.Type != "ref-changed" || first.Payload.Op != "release" || first.Payload.Count != 0 {
		t.Errorf("unexpected first message: %+v", first)
	}
	if !strings.Contains(lines[1], `"type":"shutdown"`) {
		t.Errorf("unexpected second message: %s", lines[1])
	}
}
