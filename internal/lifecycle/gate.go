package lifecycle

import (
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Reporter is the part of the crash-report handler the shutdown gate needs.
// Uninitialize must only be called when IsInitialized reports true.
type Reporter interface {
	IsInitialized() bool
	Uninitialize()
}

// ShutdownGate runs the crash-report teardown at most once per lifetime.
// A lifetime ends only when ResetForTest installs a fresh one-shot.
type ShutdownGate struct {
	reporter Reporter
	once     atomic.Pointer[sync.Once]
	fired    atomic.Bool
}

// NewShutdownGate returns an armed gate that tears down reporter.
func NewShutdownGate(reporter Reporter) *ShutdownGate {
	g := &ShutdownGate{reporter: reporter}
	g.once.Store(new(sync.Once))
	return g
}

// Trigger runs the teardown on the calling goroutine the first time it is
// called in the gate's current lifetime. Every later call is a no-op.
// It never panics, and once the teardown has started later calls return
// without waiting for it to finish.
func (g *ShutdownGate) Trigger() {
	if g.fired.Load() {
		return
	}
	g.once.Load().Do(g.teardown)
}

// Fired reports whether the teardown ran in the current lifetime.
func (g *ShutdownGate) Fired() bool {
	return g.fired.Load()
}

// ResetForTest re-arms the gate. Production paths must never call this.
func (g *ShutdownGate) ResetForTest() {
	g.once.Store(new(sync.Once))
	g.fired.Store(false)
}

func (g *ShutdownGate) teardown() {
	g.fired.Store(true)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Crash handler teardown panicked (ignoring): %v\n%s", r, debug.Stack())
		}
	}()

	if g.reporter == nil {
		return
	}

	// Only the crash handler goes down here. The host may AddRef again
	// before the image is unloaded, so anything that can't be brought
	// back up (singleton finalizers, serializer globals) must stay alive.
	if g.reporter.IsInitialized() {
		log.Printf("Last reference released, uninitializing crash handler")
		g.reporter.Uninitialize()
	}
}
