// Package tracing turns the observations of a harness into traces: CSV
// files, VCD waveforms, console tables and summary counters.
package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/sim/hooking"
)

// A Tracer consumes one observation per cycle.
type Tracer interface {
	Trace(obs harness.Observation)
}

// NamedHookable is something that has a name and can be hooked.
type NamedHookable interface {
	hooking.Hookable
	Name() string
}

// CollectTrace lets the tracer receive every observation of a domain.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

type traceHook struct {
	t Tracer
}

func (h *traceHook) Func(ctx hooking.HookCtx) {
	if ctx.Pos != harness.HookPosObservation {
		return
	}

	h.t.Trace(ctx.Item.(harness.Observation))
}

func bit(b bool) int {
	if b {
		return 1
	}

	return 0
}
