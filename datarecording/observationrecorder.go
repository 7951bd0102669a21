package datarecording

import (
	"fmt"
	"sync"

	"github.com/sarchlab/skidbuffer/harness"
)

// DefaultObservationTable is the table observations are stored in.
const DefaultObservationTable = "skid_observations"

// ObservationEntry is one row of the observation table. Data is stored as
// hex text since SQLite integers cannot hold every 64-bit payload.
type ObservationEntry struct {
	Register   string
	Cycle      uint64
	Reset      bool
	UpValid    bool
	UpData     string
	DownReady  bool
	InReady    bool
	OutValid   bool
	OutData    string
	InputFire  bool
	OutputFire bool
	Truncated  bool
}

// ObservationRecorder records every observation of a register into a table.
type ObservationRecorder struct {
	lock sync.Mutex

	recorder DataRecorder
	table    string
	register string
	count    uint64
	err      error
}

// NewObservationRecorder creates the observation table and returns a recorder
// that fills it with rows tagged with the register name.
func NewObservationRecorder(
	recorder DataRecorder,
	table string,
	register string,
) (*ObservationRecorder, error) {
	if table == "" {
		table = DefaultObservationTable
	}

	err := recorder.CreateTable(table, ObservationEntry{})
	if err != nil {
		return nil, err
	}

	r := &ObservationRecorder{
		recorder: recorder,
		table:    table,
		register: register,
	}

	return r, nil
}

// Trace records one observation. The first failure is kept and later
// observations are dropped.
func (r *ObservationRecorder) Trace(obs harness.Observation) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return
	}

	r.err = r.recorder.InsertData(r.table, r.entry(obs))
	if r.err == nil {
		r.count++
	}
}

func (r *ObservationRecorder) entry(obs harness.Observation) ObservationEntry {
	in := obs.Input

	return ObservationEntry{
		Register:   r.register,
		Cycle:      obs.Cycle,
		Reset:      in.Reset,
		UpValid:    in.UpstreamValid,
		UpData:     hex(uint64(in.UpstreamData)),
		DownReady:  in.DownstreamReady,
		InReady:    obs.InReady,
		OutValid:   obs.OutValid,
		OutData:    hex(uint64(obs.OutData)),
		InputFire:  obs.InputFire,
		OutputFire: obs.OutputFire,
		Truncated:  obs.Truncated,
	}
}

// Count returns the number of observations recorded.
func (r *ObservationRecorder) Count() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.count
}

// Err returns the first recording failure.
func (r *ObservationRecorder) Err() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.err
}

func hex(v uint64) string {
	return fmt.Sprintf("0x%X", v)
}
