// Package crashreport keeps a crash log and writes crash reports for the
// module while it is loaded in a host process.
//
// The handler can be initialized, uninitialized and initialized again, but
// Uninitialize must only be called on an initialized handler.
package crashreport

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/dchest/safefile"
	"github.com/google/uuid"
	ps "github.com/mitchellh/go-ps"
	"github.com/pkg/errors"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Settings struct {
	// Directory crash logs and reports are written to
	Dir string
	// Name used for the crash log file
	AppName string

	// Crash log rotation, in megabytes. Zero means lumberjack's default.
	MaxSizeMB  int
	MaxBackups int
}

// Handler owns the crash log for one session.
type Handler struct {
	mu          sync.Mutex
	initialized bool

	settings  Settings
	logger    *lumberjack.Logger
	sessionID string
	hostExe   string
}

// New returns an uninitialized handler.
func New() *Handler {
	return &Handler{}
}

// Initialize opens the crash log and starts a new session.
func (h *Handler) Initialize(settings Settings) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return errors.New("crash handler already initialized")
	}

	if settings.Dir == "" {
		return errors.New("crash handler needs a directory")
	}
	if settings.AppName == "" {
		settings.AppName = "itch-tip"
	}

	err := os.MkdirAll(settings.Dir, 0o755)
	if err != nil {
		return errors.WithMessage(err, "while creating crash directory")
	}

	h.settings = settings
	h.sessionID = uuid.New().String()
	h.hostExe = hostExecutable()
	h.logger = &lumberjack.Logger{
		Filename:   filepath.Join(settings.Dir, settings.AppName+"-crash.log"),
		MaxSize:    settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
	}
	h.initialized = true

	h.logf("session %s started (host: %s, pid %d)", h.sessionID, h.hostExe, os.Getpid())
	return nil
}

// IsInitialized reports whether the handler is currently initialized.
func (h *Handler) IsInitialized() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.initialized
}

// Uninitialize closes the crash log. The caller must check IsInitialized
// first; a misuse is logged and otherwise ignored.
func (h *Handler) Uninitialize() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		log.Printf("crash handler: Uninitialize called while not initialized")
		return
	}

	h.logf("session %s ended", h.sessionID)
	err := h.logger.Close()
	if err != nil {
		log.Printf("crash handler: while closing crash log: %v", err)
	}

	h.logger = nil
	h.initialized = false
}

// SessionID returns the id of the current session, empty if not initialized.
func (h *Handler) SessionID() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return ""
	}
	return h.sessionID
}

// Logf appends a line to the crash log. It does nothing when not initialized.
func (h *Handler) Logf(format string, args ...interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return
	}
	h.logf(format, args...)
}

func (h *Handler) logf(format string, args ...interface{}) {
	line := fmt.Sprintf("%s %s\n", time.Now().UTC().Format(time.RFC3339), fmt.Sprintf(format, args...))
	_, err := h.logger.Write([]byte(line))
	if err != nil {
		log.Printf("crash handler: while writing crash log: %v", err)
	}
}

// WriteReport writes a standalone crash report and returns its path.
func (h *Handler) WriteReport(reason interface{}, stack []byte) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initialized {
		return "", errors.New("crash handler not initialized")
	}

	reportID := uuid.New().String()
	reportPath := filepath.Join(h.settings.Dir, fmt.Sprintf("crash-%s.txt", reportID))

	var sb strings.Builder
	fmt.Fprintf(&sb, "Report:  %s\n", reportID)
	fmt.Fprintf(&sb, "Session: %s\n", h.sessionID)
	fmt.Fprintf(&sb, "Host:    %s (pid %d)\n", h.hostExe, os.Getpid())
	fmt.Fprintf(&sb, "Time:    %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&sb, "Reason:  %v\n\n", reason)
	sb.Write(stack)

	err := safefile.WriteFile(reportPath, []byte(sb.String()), 0o644)
	if err != nil {
		return "", errors.WithMessage(err, "while writing crash report")
	}

	h.logf("crash report %s written for: %v", reportID, reason)
	return reportPath, nil
}

// Recover writes a report for an in-flight panic and panics again.
// Use it as `defer h.Recover()`.
func (h *Handler) Recover() {
	r := recover()
	if r == nil {
		return
	}
	h.report(r)
	panic(r)
}

func (h *Handler) report(r interface{}) {
	reportPath, err := h.WriteReport(r, debug.Stack())
	if err != nil {
		log.Printf("Could not write crash report: %+v", err)
	} else {
		log.Printf("Crash report written to (%s)", reportPath)
	}
}

func hostExecutable() string {
	proc, err := ps.FindProcess(os.Getpid())
	if err != nil || proc == nil {
		if err != nil {
			log.Printf("While looking up host process: %+v", err)
		}
		return "unknown"
	}
	return proc.Executable()
}
