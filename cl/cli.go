package cl

// globals, get your globals here!

type CLI struct {
	AppName       string
	VersionString string

	JSON     bool
	LogDir   string
	CrashDir string

	// cycle
	Sequence []string

	// stress
	Workers int
	Rounds  int
}
