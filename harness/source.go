package harness

import "github.com/sarchlab/skidbuffer/skid"

// A StimulusSource hands out one cycle of stimulus at a time. Next returns
// false once the source is exhausted.
type StimulusSource interface {
	Next() (skid.Input, bool)
}

// SliceSource replays a fixed sequence of stimulus.
type SliceSource struct {
	inputs []skid.Input
	next   int
}

// NewSliceSource creates a source that replays inputs.
func NewSliceSource(inputs []skid.Input) *SliceSource {
	return &SliceSource{inputs: inputs}
}

// Next returns the next input.
func (s *SliceSource) Next() (skid.Input, bool) {
	if s.next >= len(s.inputs) {
		return skid.Input{}, false
	}

	in := s.inputs[s.next]
	s.next++

	return in, true
}

// Remaining returns the number of inputs not yet handed out.
func (s *SliceSource) Remaining() int {
	return len(s.inputs) - s.next
}
