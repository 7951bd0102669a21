package skid

import "fmt"

// Data is a payload word. Only the low DataWidth bits of a register are
// meaningful; the payload is opaque and never computed on.
type Data uint64

// Input is the set of signals driven into the register during one cycle.
type Input struct {
	Reset           bool
	UpstreamValid   bool
	UpstreamData    Data
	DownstreamReady bool
}

// Outputs are the signals the register drives during one cycle.
type Outputs struct {
	InReady  bool
	OutValid bool

	// OutData is only meaningful when OutValid is set.
	OutData Data
}

// Result describes what happened in one cycle. The outputs and fire flags are
// the values seen on the wires during the cycle, before the clock edge.
type Result struct {
	Outputs

	// InputFire is set when the producer's item was offered and in_ready was
	// high.
	InputFire bool

	// OutputFire is set when the held item was offered and the consumer was
	// ready.
	OutputFire bool

	// Accepted is the upstream data after truncation to the register width.
	// It is the value latched when InputFire is set and Reset is not.
	Accepted Data

	// Truncated is set when UpstreamData had bits above the register width.
	Truncated bool
}

// Phase names the two states of the register.
type Phase int

// The register is either empty or holding one item.
const (
	Empty Phase = iota
	Full
)

func (p Phase) String() string {
	switch p {
	case Empty:
		return "EMPTY"
	case Full:
		return "FULL"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is the content latched in the register. Data is only meaningful when
// Valid is set.
type State struct {
	Valid bool
	Data  Data
}

// Phase returns whether the state holds an item.
func (s State) Phase() Phase {
	if s.Valid {
		return Full
	}

	return Empty
}

func (s State) String() string {
	if !s.Valid {
		return Empty.String()
	}

	return fmt.Sprintf("%s(0x%X)", Full, uint64(s.Data))
}
