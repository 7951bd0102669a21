package tracing

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/sarchlab/skidbuffer/harness"
)

// DefaultVCDPeriod is the clock period of a VCD trace in nanoseconds.
const DefaultVCDPeriod = 10

type vcdSignal struct {
	id    string
	name  string
	width int
}

var (
	sigClk      = vcdSignal{id: "!", name: "clk", width: 1}
	sigRst      = vcdSignal{id: "\"", name: "rst", width: 1}
	sigInValid  = vcdSignal{id: "#", name: "in_valid", width: 1}
	sigInData   = vcdSignal{id: "$", name: "in_data"}
	sigInReady  = vcdSignal{id: "%", name: "in_ready", width: 1}
	sigOutValid = vcdSignal{id: "&", name: "out_valid", width: 1}
	sigOutData  = vcdSignal{id: "'", name: "out_data"}
	sigOutReady = vcdSignal{id: "(", name: "out_ready", width: 1}
)

// VCDWriter dumps observations as a value change dump that waveform viewers
// can open. Each observation takes one clock period. Signals change while
// clk is low and the register samples them on the rising edge in the middle
// of the period.
type VCDWriter struct {
	lock sync.Mutex

	w         io.Writer
	scope     string
	dataWidth int
	period    uint64

	headerDone bool
	last       map[string]string
	end        uint64
	err        error
}

// NewVCDWriter creates a VCDWriter that writes to w. dataWidth sets the width
// of the data buses.
func NewVCDWriter(w io.Writer, scope string, dataWidth int) *VCDWriter {
	return &VCDWriter{
		w:         w,
		scope:     scope,
		dataWidth: dataWidth,
		period:    DefaultVCDPeriod,
		last:      make(map[string]string),
	}
}

// WithPeriod sets the clock period in nanoseconds. It must be even and
// positive.
func (t *VCDWriter) WithPeriod(ns uint64) *VCDWriter {
	if ns == 0 || ns%2 != 0 {
		panic("vcd period must be a positive even number of nanoseconds")
	}

	t.period = ns

	return t
}

// Trace writes the signal changes of one cycle.
func (t *VCDWriter) Trace(obs harness.Observation) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.headerDone {
		t.writeHeader()
	}

	in := obs.Input
	start := obs.Cycle * t.period

	t.printf("#%d\n", start)
	t.change(sigClk, 0)
	t.change(sigRst, uint64(bit(in.Reset)))
	t.change(sigInValid, uint64(bit(in.UpstreamValid)))
	t.change(sigInData, uint64(obs.Accepted))
	t.change(sigInReady, uint64(bit(obs.InReady)))
	t.change(sigOutValid, uint64(bit(obs.OutValid)))
	t.change(sigOutData, uint64(obs.OutData))
	t.change(sigOutReady, uint64(bit(in.DownstreamReady)))

	t.printf("#%d\n", start+t.period/2)
	t.change(sigClk, 1)

	t.end = start + t.period
}

// Close writes the final timestamp and reports the first write error.
func (t *VCDWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.headerDone {
		t.writeHeader()
	}

	t.printf("#%d\n", t.end)

	return t.err
}

func (t *VCDWriter) writeHeader() {
	t.headerDone = true

	t.printf("$version skidsim $end\n")
	t.printf("$timescale 1ns $end\n")
	t.printf("$scope module %s $end\n", t.scope)

	for _, s := range t.signals() {
		t.printf("$var wire %d %s %s $end\n", s.width, s.id, s.name)
	}

	t.printf("$upscope $end\n")
	t.printf("$enddefinitions $end\n")
}

func (t *VCDWriter) signals() []vcdSignal {
	inData := sigInData
	inData.width = t.dataWidth
	outData := sigOutData
	outData.width = t.dataWidth

	return []vcdSignal{
		sigClk, sigRst,
		sigInValid, inData, sigInReady,
		sigOutValid, outData, sigOutReady,
	}
}

func (t *VCDWriter) change(s vcdSignal, v uint64) {
	var line string
	if s.width == 1 {
		line = strconv.FormatUint(v, 10) + s.id
	} else {
		line = "b" + strconv.FormatUint(v, 2) + " " + s.id
	}

	if t.last[s.id] == line {
		return
	}

	t.last[s.id] = line
	t.printf("%s\n", line)
}

func (t *VCDWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}

	_, t.err = fmt.Fprintf(t.w, format, args...)
}
