package tiptest

import (
	"testing"

	"github.com/itchio/itch-tip/internal/lifecycle"
)

func TestInitForUnitTestRearmsGlobalGate(t *testing.T) {
	m := lifecycle.Global()
	Reset()

	m.AddRef()
	m.Release()
	if !m.Gate().Fired() {
		t.Fatalf("gate should have fired at zero")
	}

	InitForUnitTest()
	if m.Gate().Fired() {
		t.Errorf("gate should be armed after InitForUnitTest")
	}
}

func TestResetZeroesGlobalCount(t *testing.T) {
	m := lifecycle.Global()
	m.AddRef()
	m.AddRef()

	Reset()
	if c := m.Count(); c != 0 {
		t.Errorf("count after Reset: got %d, want 0", c)
	}
}

func TestAllowedInsideTestBinary(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("tiptest refused to run under go test: %v", r)
		}
	}()
	mustBeTest("TestAllowedInsideTestBinary")
}
