package harness

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/skid"
)

// Payloads used by the directed scenarios.
const (
	SimpleTransferData skid.Data = 0xAAAABBBB
	BackpressureData   skid.Data = 0x11112222
)

// A Scenario is a named sequence of stimulus.
type Scenario struct {
	Name        string
	Description string
	Stimulus    []skid.Input
}

// Len returns the number of cycles in the scenario.
func (s Scenario) Len() int {
	return len(s.Stimulus)
}

// Then returns a scenario that runs s followed by next.
func (s Scenario) Then(next Scenario) Scenario {
	stimulus := make([]skid.Input, 0, len(s.Stimulus)+len(next.Stimulus))
	stimulus = append(stimulus, s.Stimulus...)
	stimulus = append(stimulus, next.Stimulus...)

	return Scenario{
		Name:        s.Name + "+" + next.Name,
		Description: s.Description + " " + next.Description,
		Stimulus:    stimulus,
	}
}

func repeat(in skid.Input, n int) []skid.Input {
	inputs := make([]skid.Input, n)
	for i := range inputs {
		inputs[i] = in
	}

	return inputs
}

// ResetScenario holds reset for two cycles.
func ResetScenario() Scenario {
	return Scenario{
		Name:        "reset",
		Description: "Hold reset for two cycles.",
		Stimulus:    repeat(skid.Input{Reset: true}, 2),
	}
}

// SimpleTransfer sends one item with the consumer ready, then lets it drain.
func SimpleTransfer() Scenario {
	return Scenario{
		Name:        "simple",
		Description: "Send one item with the consumer ready.",
		Stimulus: []skid.Input{
			{
				UpstreamValid:   true,
				UpstreamData:    SimpleTransferData,
				DownstreamReady: true,
			},
			{DownstreamReady: true},
		},
	}
}

// Backpressure offers an item for three cycles while the consumer stalls.
// The item is latched in the first cycle and in_ready drops afterwards.
func Backpressure() Scenario {
	return Scenario{
		Name:        "backpressure",
		Description: "Offer an item while the consumer stalls.",
		Stimulus: repeat(skid.Input{
			UpstreamValid: true,
			UpstreamData:  BackpressureData,
		}, 3),
	}
}

// BackpressureRelease lets the consumer take the held item.
func BackpressureRelease() Scenario {
	return Scenario{
		Name:        "release",
		Description: "Release the consumer with no new item.",
		Stimulus:    repeat(skid.Input{DownstreamReady: true}, 2),
	}
}

// Directed runs reset, simple transfer, backpressure and release in order.
func Directed() Scenario {
	s := ResetScenario().
		Then(SimpleTransfer()).
		Then(Backpressure()).
		Then(BackpressureRelease())
	s.Name = "directed"

	return s
}

var scenarios = map[string]func() Scenario{
	"directed":     Directed,
	"reset":        ResetScenario,
	"simple":       SimpleTransfer,
	"backpressure": Backpressure,
	"release":      BackpressureRelease,
}

// ScenarioNames lists the scenarios known to ScenarioByName.
func ScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ScenarioByName looks up a scenario.
func ScenarioByName(name string) (Scenario, error) {
	build, ok := scenarios[name]
	if !ok {
		return Scenario{}, errors.Errorf("unknown scenario %q", name)
	}

	return build(), nil
}
