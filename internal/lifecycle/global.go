package lifecycle

import "github.com/itchio/itch-tip/crashreport"

// One loaded image per process, so one module state per process.
var global = New(crashreport.Default())

// Global returns the process-wide module state.
func Global() *Module {
	return global
}
