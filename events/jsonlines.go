package events

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

type Payload interface {
	GetType() string
}

type message struct {
	Type    string  `json:"type"`
	Payload Payload `json:"payload"`
}

var jsonEnabled = false
var jsonLock sync.Mutex
var jsonOut io.Writer = os.Stderr

func EnableJSON() {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	jsonEnabled = true
}

func DisableJSON() {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	jsonEnabled = false
}

// SetOutput changes where messages are written (stderr by default).
func SetOutput(w io.Writer) {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	jsonOut = w
}

func Emit(p Payload) {
	jsonLock.Lock()
	defer jsonLock.Unlock()

	if !jsonEnabled {
		return
	}

	m := &message{
		Type:    p.GetType(),
		Payload: p,
	}

	bs, err := json.Marshal(m)
	if err != nil {
		log.Printf("Could not send JSON object: %+v", err)
		return
	}

	fmt.Fprintf(jsonOut, "%s\n", string(bs))
}

//-------------------------------

type Log struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (p Log) GetType() string { return "log" }

//-------------------------------

type RefChanged struct {
	Op    string `json:"op"`
	Count int64  `json:"count"`
}

func (p RefChanged) GetType() string { return "ref-changed" }

//-------------------------------

type Rearmed struct{}

func (p Rearmed) GetType() string { return "rearmed" }

//-------------------------------

type Shutdown struct {
	Step int `json:"step"`
}

func (p Shutdown) GetType() string { return "shutdown" }

//-------------------------------

type StressResult struct {
	Workers    int   `json:"workers"`
	Rounds     int   `json:"rounds"`
	FinalCount int64 `json:"finalCount"`
	Teardowns  int   `json:"teardowns"`
}

func (p StressResult) GetType() string { return "stress-result" }

//-------------------------------

type Info struct {
	ModuleHandle      string `json:"moduleHandle"`
	RefCount          int64  `json:"refCount"`
	Unloaded          bool   `json:"unloaded"`
	ShutdownFired     bool   `json:"shutdownFired"`
	CrashHandlerReady bool   `json:"crashHandlerReady"`
}

func (p Info) GetType() string { return "info" }
