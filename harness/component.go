package harness

import (
	"github.com/sarchlab/skidbuffer/sim/timing"
)

// Component runs a Harness on a simulation engine, one stimulus entry per
// clock cycle.
type Component struct {
	*timing.TickingComponent

	harness *Harness
	source  StimulusSource
	done    bool
}

// Tick applies the next stimulus entry. It reports no progress once the
// source runs dry, which stops the component from ticking.
func (c *Component) Tick() bool {
	in, ok := c.source.Next()
	if !ok {
		c.done = true
		return false
	}

	c.harness.Step(in)

	return true
}

// Harness returns the driven harness.
func (c *Component) Harness() *Harness {
	return c.harness
}

// Done tells if the stimulus source has been exhausted.
func (c *Component) Done() bool {
	return c.done
}

// Start schedules the first cycle.
func (c *Component) Start() {
	c.TickLater()
}

// ComponentBuilder can build Components.
type ComponentBuilder struct {
	engine  timing.Engine
	freq    timing.Freq
	harness *Harness
	source  StimulusSource
}

// MakeComponentBuilder creates a builder with a 1 GHz clock.
func MakeComponentBuilder() ComponentBuilder {
	return ComponentBuilder{freq: 1 * timing.GHz}
}

// WithEngine sets the engine the component runs on.
func (b ComponentBuilder) WithEngine(engine timing.Engine) ComponentBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the clock frequency.
func (b ComponentBuilder) WithFreq(freq timing.Freq) ComponentBuilder {
	b.freq = freq
	return b
}

// WithHarness sets the harness to drive.
func (b ComponentBuilder) WithHarness(h *Harness) ComponentBuilder {
	b.harness = h
	return b
}

// WithSource sets where stimulus comes from.
func (b ComponentBuilder) WithSource(source StimulusSource) ComponentBuilder {
	b.source = source
	return b
}

// Build creates the component. Missing engine, harness or source panics.
func (b ComponentBuilder) Build(name string) *Component {
	if b.engine == nil || b.harness == nil || b.source == nil {
		panic("component needs an engine, a harness and a stimulus source")
	}

	c := &Component{
		harness: b.harness,
		source:  b.source,
	}
	c.TickingComponent = timing.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}
