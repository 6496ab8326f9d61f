package crashreport

var global = New()

// Default returns the process-wide handler.
func Default() *Handler {
	return global
}

// Initialize initializes the process-wide handler.
func Initialize(settings Settings) error {
	return global.Initialize(settings)
}

// IsInitialized reports whether the process-wide handler is initialized.
func IsInitialized() bool {
	return global.IsInitialized()
}

// Uninitialize uninitializes the process-wide handler.
func Uninitialize() {
	global.Uninitialize()
}

// Logf appends to the process-wide crash log.
func Logf(format string, args ...interface{}) {
	global.Logf(format, args...)
}

// Recover is the process-wide counterpart of Handler.Recover.
// It must be deferred directly.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	global.report(r)
	panic(r)
}
