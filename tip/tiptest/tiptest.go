// Package tiptest re-arms the module's one-shot shutdown so that every test
// case observes a fresh gate.
//
// Only test binaries may use it: every function panics when called from a
// binary that was not built by `go test`, so a stray import in production
// code cannot re-arm the teardown of a live host.
package tiptest

import (
	"testing"

	"github.com/itchio/itch-tip/internal/lifecycle"
)

// InitForUnitTest re-arms the shutdown gate: the next time the reference
// count drops to zero, the crash handler is torn down again, whether or not
// that already happened in this process.
func InitForUnitTest() {
	mustBeTest("InitForUnitTest")
	lifecycle.Global().Gate().ResetForTest()
}

// Reset re-arms the shutdown gate and zeroes the reference count.
// Nothing else may be using the module while it runs.
func Reset() {
	mustBeTest("Reset")
	lifecycle.Global().ResetForTest()
}

func mustBeTest(name string) {
	if !testing.Testing() {
		panic("tiptest." + name + " called outside of a test binary")
	}
}
