package tracing

import (
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/sarchlab/skidbuffer/harness"
	"github.com/tebeka/atexit"
)

// CSVTraceWriter stores observations into a CSV file, one row per cycle.
type CSVTraceWriter struct {
	lock sync.Mutex

	path string
	file *os.File

	observations []harness.Observation
	bufferSize   int
}

// NewCSVTraceWriter creates a new CSVTraceWriter. The ".csv" extension is
// added to path. An empty path picks a unique name.
func NewCSVTraceWriter(path string) *CSVTraceWriter {
	return &CSVTraceWriter{
		path:       path,
		bufferSize: 1000,
	}
}

// Path returns the file name the trace is written to.
func (t *CSVTraceWriter) Path() string {
	return t.path + ".csv"
}

// Init creates the trace file. It refuses to overwrite an existing file. The
// file is flushed and closed when the program exits through atexit.
func (t *CSVTraceWriter) Init() error {
	if t.path == "" {
		t.path = "skid_trace_" + xid.New().String()
	}

	filename := t.Path()
	if _, err := os.Stat(filename); err == nil {
		return errors.Errorf("file %s already exists", filename)
	}

	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "creating csv trace")
	}
	t.file = file

	fmt.Fprintf(file, "Cycle, Reset, UpValid, UpData, DownReady, "+
		"InReady, OutValid, OutData, InputFire, OutputFire\n")

	atexit.Register(func() {
		if err := t.Close(); err != nil {
			panic(err)
		}
	})

	return nil
}

// Trace buffers an observation.
func (t *CSVTraceWriter) Trace(obs harness.Observation) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.observations = append(t.observations, obs)
	if len(t.observations) >= t.bufferSize {
		t.flush()
	}
}

// Flush writes the buffered observations to the file.
func (t *CSVTraceWriter) Flush() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.flush()
}

func (t *CSVTraceWriter) flush() {
	if t.file == nil {
		return
	}

	for _, obs := range t.observations {
		in := obs.Input
		fmt.Fprintf(t.file, "%d, %d, %d, 0x%X, %d, %d, %d, 0x%X, %d, %d\n",
			obs.Cycle,
			bit(in.Reset),
			bit(in.UpstreamValid),
			uint64(in.UpstreamData),
			bit(in.DownstreamReady),
			bit(obs.InReady),
			bit(obs.OutValid),
			uint64(obs.OutData),
			bit(obs.InputFire),
			bit(obs.OutputFire),
		)
	}

	t.observations = nil
}

// Close flushes and closes the file. Closing twice is a no-op.
func (t *CSVTraceWriter) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.file == nil {
		return nil
	}

	t.flush()

	err := t.file.Close()
	t.file = nil

	return errors.Wrap(err, "closing csv trace")
}
