package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/itchio/itch-tip/cl"
	"github.com/itchio/itch-tip/crashreport"
	"github.com/itchio/itch-tip/events"
	"github.com/itchio/itch-tip/hostsim"
	"github.com/itchio/itch-tip/internal/lifecycle"
	"github.com/itchio/itch-tip/tip"
)

var (
	version       = "head" // set by command-line on CI release builds
	builtAt       = ""     // set by command-line on CI release builds
	commit        = ""     // set by command-line on CI release builds
	versionString = ""     // formatted on boot from 'version' and 'builtAt'
)

var cli cl.CLI

var (
	app = kingpin.New("itch-tip", "Host simulator for the itch text input processor module")

	cycleCmd  = app.Command("cycle", "Replay a sequence of AddRef (a), Release (r) and re-arm (i) steps")
	stressCmd = app.Command("stress", "Hammer AddRef/Release from many goroutines and count teardowns")
	infoCmd   = app.Command("info", "Print the module lifecycle state")
)

func init() {
	app.UsageTemplate(kingpin.CompactUsageTemplate)
	app.HelpFlag.Short('h')

	if builtAt != "" {
		versionString = fmt.Sprintf("%s, built on %s", version, builtAt)
	} else {
		versionString = fmt.Sprintf("%s, no build date", version)
	}
	if commit != "" {
		versionString = fmt.Sprintf("%s @ %s", versionString, commit)
	}
	app.Version(versionString)
	app.VersionFlag.Short('V')

	app.Flag("appname", "Application name").Default("itch-tip").StringVar(&cli.AppName)
	app.Flag("json", "Emit JSON lines on stderr").BoolVar(&cli.JSON)
	app.Flag("log-dir", "Write logs to a rotating file in this directory").Envar("TIP_LOG_DIR").StringVar(&cli.LogDir)
	app.Flag("crash-dir", "Initialize the crash handler in this directory").Envar("TIP_CRASH_DIR").StringVar(&cli.CrashDir)

	cycleCmd.Flag("sequence", "Comma-separated steps, e.g. a,a,r,r").Short('s').Required().StringsVar(&cli.Sequence)

	stressCmd.Flag("workers", "Number of concurrent goroutines").Default("8").IntVar(&cli.Workers)
	stressCmd.Flag("rounds", "AddRef/Release pairs per goroutine").Default("10000").IntVar(&cli.Rounds)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run does everything main does but returns the exit code, so deferred
// cleanup (log file, crash handler) happens on failure too.
func run(args []string) int {
	cli = cl.CLI{}
	cmd, err := app.Parse(args)
	if err != nil {
		app.Errorf("%s", err.Error())
		return 2
	}

	cli.VersionString = versionString

	if cli.JSON {
		events.EnableJSON()
		defer events.DisableJSON()
	}

	closeLog := setupLogging(cli)
	defer closeLog()

	log.Printf("%s %s", cli.AppName, versionString)

	err = initCrashHandler(cli)
	if err != nil {
		log.Printf("%+v", err)
		return 1
	}
	defer crashreport.Recover()

	switch cmd {
	case cycleCmd.FullCommand():
		err = doCycle(cli)
	case stressCmd.FullCommand():
		err = doStress(cli)
	case infoCmd.FullCommand():
		err = doInfo(cli)
	}

	if err != nil {
		events.Emit(events.Log{Level: "error", Message: err.Error()})
		log.Printf("%+v", err)
		return 1
	}
	return 0
}

func setupLogging(cli cl.CLI) func() {
	if cli.LogDir == "" {
		return func() {}
	}

	logger := &lumberjack.Logger{
		Filename:   filepath.Join(cli.LogDir, cli.AppName+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, logger))
	return func() {
		log.SetOutput(os.Stderr)
		logger.Close()
	}
}

func initCrashHandler(cli cl.CLI) error {
	if cli.CrashDir == "" {
		return nil
	}

	err := crashreport.Initialize(crashreport.Settings{
		Dir:     cli.CrashDir,
		AppName: cli.AppName,
	})
	if err != nil {
		return errors.WithMessage(err, "while initializing crash handler")
	}
	log.Printf("Crash handler initialized (session %s)", crashreport.Default().SessionID())
	return nil
}

// crashReporter returns the crash handler as a teardown target, or a nil
// interface when it was never initialized.
func crashReporter() lifecycle.Reporter {
	if !crashreport.IsInitialized() {
		return nil
	}
	return crashreport.Default()
}

func doCycle(cli cl.CLI) error {
	steps, err := hostsim.ParseSequence(cli.Sequence)
	if err != nil {
		return errors.WithMessage(err, "while parsing sequence")
	}

	res := hostsim.RunCycle(steps, crashReporter())
	log.Printf("Counts: %v", res.Counts)
	log.Printf("Shutdown fired after steps: %v", res.Shutdowns)
	return nil
}

func doStress(cli cl.CLI) error {
	res, err := hostsim.RunStress(hostsim.StressParams{
		Workers: cli.Workers,
		Rounds:  cli.Rounds,
	}, crashReporter())
	if err != nil {
		return err
	}

	if res.FinalCount != 0 || res.Teardowns != 1 || res.EarlyTeardowns != 0 {
		return errors.Errorf("lifecycle broken: final count %d, %d teardown(s), %d early",
			res.FinalCount, res.Teardowns, res.EarlyTeardowns)
	}
	return nil
}

func doInfo(cli cl.CLI) error {
	handle := tip.GetModuleHandle()
	info := events.Info{
		ModuleHandle:      fmt.Sprintf("%#x", uintptr(handle)),
		RefCount:          tip.RefCount(),
		Unloaded:          tip.Unloaded(),
		ShutdownFired:     tip.ShutdownFired(),
		CrashHandlerReady: crashreport.IsInitialized(),
	}
	events.Emit(info)

	log.Printf("Module handle:  %s", info.ModuleHandle)
	if path, err := tip.ModuleFileName(); err == nil {
		log.Printf("Module path:    %s", path)
	}
	log.Printf("Ref count:      %d", info.RefCount)
	log.Printf("Unloaded:       %v", info.Unloaded)
	log.Printf("Shutdown fired: %v", info.ShutdownFired)
	log.Printf("Crash handler:  %v", info.CrashHandlerReady)
	return nil
}
