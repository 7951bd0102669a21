package tracing

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/sarchlab/skidbuffer/harness"
)

// TablePrinter prints observations as an aligned table. Rows are held until
// Flush so that columns line up.
type TablePrinter struct {
	lock sync.Mutex
	tw   *tabwriter.Writer

	printedHeader bool
}

// NewTablePrinter creates a TablePrinter that writes to w.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{
		tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0),
	}
}

// Trace adds one row.
func (p *TablePrinter) Trace(obs harness.Observation) {
	p.lock.Lock()
	defer p.lock.Unlock()

	if !p.printedHeader {
		fmt.Fprintln(p.tw,
			"cycle\trst\tin_valid\tin_data\tin_ready\t"+
				"out_valid\tout_data\tout_ready\tevent\t")
		p.printedHeader = true
	}

	in := obs.Input
	fmt.Fprintf(p.tw, "%d\t%d\t%d\t0x%08X\t%d\t%d\t0x%08X\t%d\t%s\t\n",
		obs.Cycle,
		bit(in.Reset),
		bit(in.UpstreamValid),
		uint64(in.UpstreamData),
		bit(obs.InReady),
		bit(obs.OutValid),
		uint64(obs.OutData),
		bit(in.DownstreamReady),
		event(obs),
	)
}

// Flush writes out the buffered rows.
func (p *TablePrinter) Flush() error {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.tw.Flush()
}

func event(obs harness.Observation) string {
	switch {
	case obs.Input.Reset:
		return "reset"
	case obs.InputFire && obs.OutputFire:
		return "pass"
	case obs.InputFire:
		return "accept"
	case obs.OutputFire:
		return "retire"
	case obs.OutValid:
		return "stall"
	default:
		return "-"
	}
}
