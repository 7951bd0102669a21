package skid

// ComputeOutputs returns the outputs driven by a register in state s while the
// consumer drives downstreamReady. It has no side effects.
func ComputeOutputs(s State, downstreamReady bool) Outputs {
	outputFire := s.Valid && downstreamReady

	return Outputs{
		InReady:  !s.Valid || outputFire,
		OutValid: s.Valid,
		OutData:  s.Data,
	}
}

// Step evaluates one clock cycle. The outputs and fire conditions are derived
// from the old state only, then the new state is computed from them. Upstream
// data is cut to the bits in mask.
func Step(s State, in Input, mask Data) (Result, State) {
	out := ComputeOutputs(s, in.DownstreamReady)

	r := Result{
		Outputs:    out,
		InputFire:  in.UpstreamValid && out.InReady,
		OutputFire: out.OutValid && in.DownstreamReady,
		Accepted:   in.UpstreamData & mask,
		Truncated:  in.UpstreamData&^mask != 0,
	}

	if in.Reset {
		return r, State{}
	}

	next := s

	switch {
	case r.InputFire:
		next = State{Valid: true, Data: r.Accepted}
	case r.OutputFire:
		next = State{}
	}

	return r, next
}

func widthMask(width int) Data {
	if width >= MaxDataWidth {
		return ^Data(0)
	}

	return Data(1)<<uint(width) - 1
}
