// Package lifecycle tracks how many handles a host holds on the loaded
// module and shuts the crash-report handler down when the last one goes.
//
// The count is not guarded against imbalance: releasing more often than
// acquiring drives it negative, and nothing recovers from that.
package lifecycle

import (
	"sync/atomic"

	"github.com/scjalliance/comshim"
)

// Handle identifies the loaded image. On Windows it is the HMODULE the
// loader passed to the entry point.
type Handle uintptr

// Module holds all per-image lifecycle state: the reference count, the
// loader handle, the unloaded flag and the shutdown gate.
type Module struct {
	refs     comshim.Counter
	handle   atomic.Uintptr
	unloaded atomic.Bool
	gate     *ShutdownGate
}

// New returns a module with a zero count and an armed gate that tears
// down reporter.
func New(reporter Reporter) *Module {
	return &Module{
		gate: NewShutdownGate(reporter),
	}
}

// AddRef increments the reference count and returns the new value.
func (m *Module) AddRef() int64 {
	return m.refs.Add(1)
}

// Release decrements the reference count and returns the new value.
// The caller whose decrement produced zero triggers the shutdown gate
// before returning. Release never panics.
func (m *Module) Release() int64 {
	count := m.refs.Add(-1)
	if count == 0 {
		// The image is likely to be unloaded soon, but the host may also
		// AddRef again and keep going.
		m.gate.Trigger()
	}
	return count
}

// Count returns the current reference count.
func (m *Module) Count() int64 {
	return m.refs.Value()
}

// CanUnloadNow reports whether no handles are outstanding.
func (m *Module) CanUnloadNow() bool {
	return m.refs.Value() <= 0
}

// SetHandle records the loader handle of the image.
func (m *Module) SetHandle(h Handle) {
	m.handle.Store(uintptr(h))
}

// Handle returns the recorded loader handle, zero if none was set.
func (m *Module) Handle() Handle {
	return Handle(m.handle.Load())
}

// MarkUnloaded records that a detach notification was observed.
func (m *Module) MarkUnloaded() {
	m.unloaded.Store(true)
}

// Unloaded reports whether MarkUnloaded was called.
func (m *Module) Unloaded() bool {
	return m.unloaded.Load()
}

// Gate returns the module's shutdown gate.
func (m *Module) Gate() *ShutdownGate {
	return m.gate
}

// ResetForTest re-arms the gate and zeroes the count. The counter has no
// store, so this is only exact when nothing else is touching the module.
func (m *Module) ResetForTest() {
	for v := m.refs.Value(); v != 0; v = m.refs.Value() {
		m.refs.Add(-v)
	}
	m.gate.ResetForTest()
}
