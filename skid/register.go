package skid

import (
	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/sim/hooking"
)

// DefaultDataWidth is the payload width used when none is configured.
const DefaultDataWidth = 32

// MaxDataWidth is the widest payload a Register can carry.
const MaxDataWidth = 64

// ErrInvalidDataWidth is returned when a register is built with a width
// outside 1..MaxDataWidth.
var ErrInvalidDataWidth = errors.New("invalid data width")

// HookPosAccept marks a cycle that latched a new item. The hook item is the
// latched Data and the detail is the Result of the cycle.
var HookPosAccept = &hooking.HookPos{Name: "Skid Accept"}

// HookPosRetire marks a cycle in which the held item was taken by the
// consumer. The hook item is the departing Data.
var HookPosRetire = &hooking.HookPos{Name: "Skid Retire"}

// HookPosReset marks a reset cycle. The hook item is the State that was
// discarded.
var HookPosReset = &hooking.HookPos{Name: "Skid Reset"}

// Register is a one-entry ready/valid buffer.
type Register struct {
	hooking.HookableBase

	name  string
	width int
	mask  Data
	state State
}

// Builder can build Registers.
type Builder struct {
	width int
}

// MakeBuilder creates a builder with the default data width.
func MakeBuilder() Builder {
	return Builder{width: DefaultDataWidth}
}

// WithDataWidth sets the number of payload bits.
func (b Builder) WithDataWidth(width int) Builder {
	b.width = width
	return b
}

// Build creates an empty Register.
func (b Builder) Build(name string) (*Register, error) {
	if b.width <= 0 || b.width > MaxDataWidth {
		return nil, errors.Wrapf(ErrInvalidDataWidth,
			"%s: width %d not in 1..%d", name, b.width, MaxDataWidth)
	}

	r := &Register{
		name:  name,
		width: b.width,
		mask:  widthMask(b.width),
	}

	return r, nil
}

// Name returns the name of the register.
func (r *Register) Name() string {
	return r.name
}

// DataWidth returns the number of payload bits.
func (r *Register) DataWidth() int {
	return r.width
}

// Fits tells if d can be carried without truncation.
func (r *Register) Fits(d Data) bool {
	return d&^r.mask == 0
}

// ComputeOutputs returns the outputs for the current cycle. upstreamValid
// does not influence any output; it is accepted so that callers can evaluate
// a full cycle's signals in one place.
func (r *Register) ComputeOutputs(upstreamValid, downstreamReady bool) Outputs {
	return ComputeOutputs(r.state, downstreamReady)
}

// Tick advances the register by one clock cycle and reports the signals seen
// during the cycle. Upstream data wider than the register is truncated.
func (r *Register) Tick(in Input) Result {
	res, notify := r.Advance(in)
	notify()

	return res
}

// Advance updates the register like Tick but leaves the hooks of the cycle
// to the returned function. Callers that guard the register with a lock can
// release it before notifying.
func (r *Register) Advance(in Input) (Result, func()) {
	old := r.state
	res, next := Step(old, in, r.mask)
	r.state = next

	if r.NumHooks() == 0 {
		return res, func() {}
	}

	return res, func() { r.invokeHooks(in, old, res) }
}

func (r *Register) invokeHooks(in Input, old State, res Result) {
	if in.Reset {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosReset,
			Item:   old,
			Detail: res,
		})

		return
	}

	if res.OutputFire {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosRetire,
			Item:   old.Data,
			Detail: res,
		})
	}

	if res.InputFire {
		r.InvokeHook(hooking.HookCtx{
			Domain: r,
			Pos:    HookPosAccept,
			Item:   res.Accepted,
			Detail: res,
		})
	}
}

// Reset empties the register as a reset cycle would.
func (r *Register) Reset() {
	r.Tick(Input{Reset: true})
}

// State returns the latched content.
func (r *Register) State() State {
	return r.state
}

// SetState overwrites the latched content, truncating the data to the
// register width.
func (r *Register) SetState(s State) {
	s.Data &= r.mask
	if !s.Valid {
		s.Data = 0
	}

	r.state = s
}

// Size returns the number of items held, 0 or 1.
func (r *Register) Size() int {
	if r.state.Valid {
		return 1
	}

	return 0
}

// Capacity returns the number of items the register can hold.
func (r *Register) Capacity() int {
	return 1
}
