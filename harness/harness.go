// Package harness drives a skid register one clock cycle at a time and
// reports what happened on its ports.
package harness

import (
	"sync"

	"github.com/sarchlab/skidbuffer/sim/hooking"
	"github.com/sarchlab/skidbuffer/skid"
)

// HookPosObservation marks the end of a cycle. The hook item is the
// Observation of the cycle.
var HookPosObservation = &hooking.HookPos{Name: "Observation"}

// Observation records one cycle: the stimulus applied and the signals seen.
type Observation struct {
	Cycle uint64
	Input skid.Input
	skid.Result
}

// Harness owns a register and feeds it stimulus in order.
type Harness struct {
	hooking.HookableBase

	lock    sync.RWMutex
	reg     *skid.Register
	cycle   uint64
	last    Observation
	hasLast bool
}

// NewHarness creates a harness around reg.
func NewHarness(reg *skid.Register) *Harness {
	return &Harness{reg: reg}
}

// Name returns the name of the driven register.
func (h *Harness) Name() string {
	return h.reg.Name()
}

// Register returns the driven register.
func (h *Harness) Register() *skid.Register {
	return h.reg
}

// Step applies one cycle of stimulus. Register hooks run after the cycle is
// committed, so they may call back into the harness.
func (h *Harness) Step(in skid.Input) Observation {
	h.lock.Lock()
	res, notify := h.reg.Advance(in)
	obs := Observation{
		Cycle:  h.cycle,
		Input:  in,
		Result: res,
	}
	h.cycle++
	h.last = obs
	h.hasLast = true
	h.lock.Unlock()

	notify()

	if h.NumHooks() > 0 {
		h.InvokeHook(hooking.HookCtx{
			Domain: h,
			Pos:    HookPosObservation,
			Item:   obs,
		})
	}

	return obs
}

// Run applies every stimulus entry in order and returns one observation per
// entry.
func (h *Harness) Run(stimulus []skid.Input) []Observation {
	observations := make([]Observation, 0, len(stimulus))

	for _, in := range stimulus {
		observations = append(observations, h.Step(in))
	}

	return observations
}

// Cycle returns the number of cycles run so far.
func (h *Harness) Cycle() uint64 {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.cycle
}

// LastObservation returns the most recent observation, if any.
func (h *Harness) LastObservation() (Observation, bool) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.last, h.hasLast
}

// State returns the content currently latched in the register.
func (h *Harness) State() skid.State {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.reg.State()
}

// Occupancy returns the number of items held and the capacity of the
// register.
func (h *Harness) Occupancy() (level, capacity int) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.reg.Size(), h.reg.Capacity()
}

// Snapshot is a consistent copy of what a harness and its register hold.
type Snapshot struct {
	Name            string
	DataWidth       int
	Cycle           uint64
	State           skid.State
	Size            int
	Capacity        int
	LastObservation *Observation
}

// Snapshot copies the harness state under its lock.
func (h *Harness) Snapshot() Snapshot {
	h.lock.RLock()
	defer h.lock.RUnlock()

	s := Snapshot{
		Name:      h.reg.Name(),
		DataWidth: h.reg.DataWidth(),
		Cycle:     h.cycle,
		State:     h.reg.State(),
		Size:      h.reg.Size(),
		Capacity:  h.reg.Capacity(),
	}

	if h.hasLast {
		last := h.last
		s.LastObservation = &last
	}

	return s
}

// Outputs returns what the register would drive next cycle if the consumer
// drove downstreamReady.
func (h *Harness) Outputs(downstreamReady bool) skid.Outputs {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.reg.ComputeOutputs(false, downstreamReady)
}
