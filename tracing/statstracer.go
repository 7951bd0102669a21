package tracing

import (
	"fmt"
	"sync"

	"github.com/sarchlab/skidbuffer/harness"
)

// Stats summarizes a run.
type Stats struct {
	Cycles       uint64
	ResetCycles  uint64
	Accepted     uint64
	Delivered    uint64
	PassThroughs uint64

	// OccupiedCycles counts cycles in which the register held an item.
	OccupiedCycles uint64

	// StallCycles counts cycles in which an item was offered downstream but
	// the consumer was not ready.
	StallCycles uint64

	// BlockedCycles counts cycles in which the producer offered an item that
	// could not be taken.
	BlockedCycles uint64
}

// Throughput returns delivered items per cycle.
func (s Stats) Throughput() float64 {
	if s.Cycles == 0 {
		return 0
	}

	return float64(s.Delivered) / float64(s.Cycles)
}

// Occupancy returns the fraction of cycles the register was full.
func (s Stats) Occupancy() float64 {
	if s.Cycles == 0 {
		return 0
	}

	return float64(s.OccupiedCycles) / float64(s.Cycles)
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"cycles=%d reset=%d accepted=%d delivered=%d pass=%d "+
			"stall=%d blocked=%d occupancy=%.2f throughput=%.2f",
		s.Cycles, s.ResetCycles, s.Accepted, s.Delivered, s.PassThroughs,
		s.StallCycles, s.BlockedCycles, s.Occupancy(), s.Throughput())
}

// StatsTracer counts what happens on the ports of a register.
type StatsTracer struct {
	lock  sync.Mutex
	stats Stats
}

// NewStatsTracer creates a StatsTracer.
func NewStatsTracer() *StatsTracer {
	return &StatsTracer{}
}

// Trace counts one cycle.
func (t *StatsTracer) Trace(obs harness.Observation) {
	t.lock.Lock()
	defer t.lock.Unlock()

	s := &t.stats
	s.Cycles++

	if obs.OutValid {
		s.OccupiedCycles++
	}

	if obs.Input.Reset {
		s.ResetCycles++
		return
	}

	if obs.InputFire {
		s.Accepted++
	}

	if obs.OutputFire {
		s.Delivered++
	}

	if obs.InputFire && obs.OutputFire {
		s.PassThroughs++
	}

	if obs.OutValid && !obs.Input.DownstreamReady {
		s.StallCycles++
	}

	if obs.Input.UpstreamValid && !obs.InReady {
		s.BlockedCycles++
	}
}

// Stats returns the counters so far.
func (t *StatsTracer) Stats() Stats {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.stats
}
