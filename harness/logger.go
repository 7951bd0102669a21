package harness

import (
	"log"

	"github.com/sarchlab/skidbuffer/sim/hooking"
)

// ObservationLogger is a hook that writes every observation into a logger.
type ObservationLogger struct {
	logger *log.Logger
}

// NewObservationLogger creates an ObservationLogger.
func NewObservationLogger(logger *log.Logger) *ObservationLogger {
	return &ObservationLogger{logger: logger}
}

// Func logs the observation carried by ctx.
func (l *ObservationLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosObservation {
		return
	}

	obs := ctx.Item.(Observation)
	in := obs.Input

	l.logger.Printf(
		"cycle %d: rst=%s in_valid=%s in_data=0x%08X in_ready=%s "+
			"out_valid=%s out_data=0x%08X out_ready=%s%s",
		obs.Cycle,
		bit(in.Reset),
		bit(in.UpstreamValid), uint64(in.UpstreamData), bit(obs.InReady),
		bit(obs.OutValid), uint64(obs.OutData), bit(in.DownstreamReady),
		fireNote(obs),
	)
}

func fireNote(obs Observation) string {
	switch {
	case obs.Input.Reset:
		return " [reset]"
	case obs.InputFire && obs.OutputFire:
		return " [pass]"
	case obs.InputFire:
		return " [accept]"
	case obs.OutputFire:
		return " [retire]"
	default:
		return ""
	}
}

func bit(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
