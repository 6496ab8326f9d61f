// Package tip holds the process-wide lifecycle state of the text input
// processor module: how many handles the host holds, the loader handle of
// the image, and whether detach was observed.
//
// The host calls AddRef and Release from any thread. When the last handle
// is released the crash-report handler is shut down, once. Nothing else is
// torn down, since the host may AddRef again before the image is unloaded.
package tip

import (
	"github.com/itchio/itch-tip/internal/lifecycle"
)

// Handle is the loader handle of the module image.
type Handle = lifecycle.Handle

var module = lifecycle.Global()

// AddRef records a new handle held by the host and returns the new count.
func AddRef() int64 {
	return module.AddRef()
}

// Release drops a handle held by the host and returns the new count.
// Dropping the last one shuts the crash handler down. Release never panics,
// so it is safe to call while the loader is detaching the image.
func Release() int64 {
	return module.Release()
}

// RefCount returns the number of outstanding handles.
func RefCount() int64 {
	return module.Count()
}

// CanUnloadNow reports whether the host holds no handles.
func CanUnloadNow() bool {
	return module.CanUnloadNow()
}

// SetModuleHandle is called by the loader entry point on attach.
func SetModuleHandle(h Handle) {
	module.SetHandle(h)
}

// GetModuleHandle returns the handle set on attach. It is meaningless
// after the image has been unloaded.
func GetModuleHandle() Handle {
	return module.Handle()
}

// MarkUnloaded is called by the loader entry point on detach.
func MarkUnloaded() {
	module.MarkUnloaded()
}

// Unloaded reports whether detach was observed.
func Unloaded() bool {
	return module.Unloaded()
}

// ShutdownFired reports whether the crash handler teardown already ran.
func ShutdownFired() bool {
	return module.Gate().Fired()
}

