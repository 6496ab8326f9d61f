package crashreport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitializeUninitialize(t *testing.T) {
	dir := t.TempDir()
	h := New()

	if h.IsInitialized() {
		t.Fatalf("new handler should not be initialized")
	}

	err := h.Initialize(Settings{Dir: dir, AppName: "tip-test"})
	if err != nil {
		t.Fatalf("Initialize failed: %+v", err)
	}
	if !h.IsInitialized() {
		t.Fatalf("expected initialized handler")
	}
	if h.SessionID() == "" {
		t.Errorf("expected a session id")
	}

	h.Logf("hello %d", 42)
	h.Uninitialize()

	if h.IsInitialized() {
		t.Errorf("expected uninitialized handler")
	}
	if h.SessionID() != "" {
		t.Errorf("session id should be cleared")
	}

	bs, err := os.ReadFile(filepath.Join(dir, "tip-test-crash.log"))
	if err != nil {
		t.Fatalf("reading crash log: %v", err)
	}
	log := string(bs)
	for _, want := range []string{"started", "hello 42", "ended"} {
		if !strings.Contains(log, want) {
			t.Errorf("crash log missing %q:\n%s", want, log)
		}
	}
}

func TestInitializeTwiceFails(t *testing.T) {
	h := New()
	settings := Settings{Dir: t.TempDir()}

	if err := h.Initialize(settings); err != nil {
		t.Fatalf("Initialize failed: %+v", err)
	}
	defer h.Uninitialize()

	if err := h.Initialize(settings); err == nil {
		t.Errorf("second Initialize should fail")
	}
}

func TestInitializeNeedsDir(t *testing.T) {
	h := New()
	if err := h.Initialize(Settings{}); err == nil {
		t.Errorf("Initialize without a directory should fail")
	}
	if h.IsInitialized() {
		t.Errorf("failed Initialize must leave handler uninitialized")
	}
}

func TestReinitializeAfterUninitialize(t *testing.T) {
	h := New()
	dir := t.TempDir()

	if err := h.Initialize(Settings{Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %+v", err)
	}
	first := h.SessionID()
	h.Uninitialize()

	if err := h.Initialize(Settings{Dir: dir}); err != nil {
		t.Fatalf("re-Initialize failed: %+v", err)
	}
	defer h.Uninitialize()

	if h.SessionID() == first {
		t.Errorf("expected a new session id after re-initialization")
	}
}

func TestUninitializeWhenNotInitialized(t *testing.T) {
	h := New()
	// must not panic
	h.Uninitialize()
	h.Logf("dropped")
}

func TestWriteReport(t *testing.T) {
	dir := t.TempDir()
	h := New()

	if _, err := h.WriteReport("boom", nil); err == nil {
		t.Fatalf("WriteReport should fail when not initialized")
	}

	if err := h.Initialize(Settings{Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %+v", err)
	}
	defer h.Uninitialize()

	reportPath, err := h.WriteReport("boom", []byte("goroutine 1 [running]:"))
	if err != nil {
		t.Fatalf("WriteReport failed: %+v", err)
	}
	if filepath.Dir(reportPath) != dir {
		t.Errorf("report written outside crash dir: %s", reportPath)
	}

	bs, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	report := string(bs)
	for _, want := range []string{"Reason:  boom", h.SessionID(), "goroutine 1 [running]:"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q:\n%s", want, report)
		}
	}
}

func TestRecoverWritesReportAndRepanics(t *testing.T) {
	dir := t.TempDir()
	h := New()
	if err := h.Initialize(Settings{Dir: dir}); err != nil {
		t.Fatalf("Initialize failed: %+v", err)
	}
	defer h.Uninitialize()

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Errorf("expected re-panic with kaboom, got %v", r)
			}
		}()
		defer h.Recover()
		panic("kaboom")
	}()

	matches, err := filepath.Glob(filepath.Join(dir, "crash-*.txt"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected one crash report, found %d", len(matches))
	}
}
