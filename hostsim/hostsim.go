// Package hostsim plays the part of a host process that acquires and
// releases handles on the module, so the lifecycle can be exercised without
// a real text services host.
package hostsim

import (
	"log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	"github.com/itchio/itch-tip/events"
	"github.com/itchio/itch-tip/internal/lifecycle"
)

// Step is one host action in a cycle.
type Step string

const (
	StepAddRef  Step = "a"
	StepRelease Step = "r"
	// StepRearm re-arms the shutdown gate, like a test harness between cases.
	StepRearm Step = "i"
)

// ParseSequence parses "a,r,i" style sequences. Long names (addref,
// release, rearm) are accepted too.
func ParseSequence(parts []string) ([]Step, error) {
	var steps []Step
	for _, part := range parts {
		for _, tok := range strings.Split(part, ",") {
			tok = strings.ToLower(strings.TrimSpace(tok))
			switch tok {
			case "":
				continue
			case "a", "addref":
				steps = append(steps, StepAddRef)
			case "r", "release":
				steps = append(steps, StepRelease)
			case "i", "rearm":
				steps = append(steps, StepRearm)
			default:
				return nil, errors.Errorf("unknown step (%s), expected a, r or i", tok)
			}
		}
	}
	return steps, nil
}

// countingReporter counts teardowns that reach the wrapped reporter.
type countingReporter struct {
	inner     lifecycle.Reporter
	teardowns atomic.Int32
}

func (c *countingReporter) IsInitialized() bool {
	if c.inner == nil {
		return true
	}
	return c.inner.IsInitialized()
}

func (c *countingReporter) Uninitialize() {
	c.teardowns.Add(1)
	if c.inner != nil {
		c.inner.Uninitialize()
	}
}

type CycleResult struct {
	Counts []int64
	// Indices into the step list of the releases that triggered teardown
	Shutdowns []int
}

// RunCycle replays steps against a fresh module.
func RunCycle(steps []Step, reporter lifecycle.Reporter) CycleResult {
	counter := &countingReporter{inner: reporter}
	m := lifecycle.New(counter)

	var res CycleResult
	for i, step := range steps {
		switch step {
		case StepAddRef:
			count := m.AddRef()
			res.Counts = append(res.Counts, count)
			events.Emit(events.RefChanged{Op: "addref", Count: count})
		case StepRelease:
			before := m.Gate().Fired()
			count := m.Release()
			res.Counts = append(res.Counts, count)
			events.Emit(events.RefChanged{Op: "release", Count: count})
			if !before && m.Gate().Fired() {
				log.Printf("Step %d: shutdown gate fired", i)
				res.Shutdowns = append(res.Shutdowns, i)
				events.Emit(events.Shutdown{Step: i})
			}
		case StepRearm:
			// m is private to this cycle, the process-wide gate is never touched
			m.Gate().ResetForTest()
			events.Emit(events.Rearmed{})
		}
	}
	return res
}

type StressParams struct {
	Workers int
	Rounds  int
}

type StressResult struct {
	FinalCount int64
	Teardowns  int
	// Teardowns observed while the base reference was still held
	EarlyTeardowns int
}

// RunStress holds a base reference, lets Workers goroutines each perform
// Rounds balanced AddRef/Release pairs, then drops the base reference.
// A correct lifecycle ends with a zero count and exactly one teardown.
func RunStress(params StressParams, reporter lifecycle.Reporter) (StressResult, error) {
	if params.Workers <= 0 || params.Rounds <= 0 {
		return StressResult{}, errors.Errorf("workers and rounds must be positive (got %d, %d)", params.Workers, params.Rounds)
	}

	counter := &countingReporter{inner: reporter}
	m := lifecycle.New(counter)

	m.AddRef()

	var wg sync.WaitGroup
	for w := 0; w < params.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := 0; r < params.Rounds; r++ {
				m.AddRef()
				m.Release()
			}
		}()
	}
	wg.Wait()

	early := int(counter.teardowns.Load())
	m.Release()

	res := StressResult{
		FinalCount:     m.Count(),
		Teardowns:      int(counter.teardowns.Load()),
		EarlyTeardowns: early,
	}
	log.Printf("Stress: %d workers x %d rounds, final count %d, %d teardown(s)",
		params.Workers, params.Rounds, res.FinalCount, res.Teardowns)

	events.Emit(events.StressResult{
		Workers:    params.Workers,
		Rounds:     params.Rounds,
		FinalCount: res.FinalCount,
		Teardowns:  res.Teardowns,
	})
	return res, nil
}
