package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/checker"
	"github.com/sarchlab/skidbuffer/datarecording"
	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/monitoring"
	"github.com/sarchlab/skidbuffer/sim/timing"
	"github.com/sarchlab/skidbuffer/skid"
	"github.com/sarchlab/skidbuffer/tracing"
	"github.com/spf13/cobra"
)

type runOptions struct {
	config

	CSVPath     string
	VCDPath     string
	SQLitePath  string
	Table       bool
	Check       bool
	Verbose     bool
	TraceEvents bool

	Monitor     bool
	MonitorPort int
	OpenBrowser bool
	Hold        bool
}

func newRunCommand() *cobra.Command {
	opts := runOptions{config: defaultConfig()}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scenario on a skid buffer.",
		Long: "Run a scenario on a skid buffer. Scenario, data width and " +
			"clock frequency default to SKIDSIM_SCENARIO, " +
			"SKIDSIM_DATA_WIDTH and SKIDSIM_FREQ_MHZ.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := applyEnvDefaults(cmd, &opts); err != nil {
				return err
			}

			return runScenario(
				cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := runCmd.Flags()
	flags.StringVar(&opts.Scenario, "scenario", opts.Scenario,
		"Scenario to run, see the scenarios command.")
	flags.IntVar(&opts.DataWidth, "width", opts.DataWidth,
		"Number of payload bits, 1 to 64.")
	flags.Float64Var(&opts.FreqMHz, "freq-mhz", opts.FreqMHz,
		"Clock frequency in MHz.")
	flags.StringVar(&opts.CSVPath, "csv", "",
		"Write a CSV trace to this path, without the .csv extension.")
	flags.StringVar(&opts.VCDPath, "vcd", "",
		"Write a VCD waveform to this file.")
	flags.StringVar(&opts.SQLitePath, "sqlite", "",
		"Record observations into this database, "+
			"without the .sqlite3 extension.")
	flags.BoolVar(&opts.Table, "table", false,
		"Print every cycle as a table.")
	flags.BoolVar(&opts.Check, "check", false,
		"Check the handshake protocol and fail on violations.")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false,
		"Log every cycle to stderr.")
	flags.BoolVar(&opts.TraceEvents, "trace-events", false,
		"Log every simulation event to stderr.")
	flags.BoolVar(&opts.Monitor, "monitor", false,
		"Serve the simulation state over HTTP.")
	flags.IntVar(&opts.MonitorPort, "monitor-port", 0,
		"Port of the monitoring server, random if unset.")
	flags.BoolVar(&opts.OpenBrowser, "open-browser", false,
		"Open the monitoring page in a browser.")
	flags.BoolVar(&opts.Hold, "hold", false,
		"Keep the monitoring server up after the run until interrupted.")

	return runCmd
}

// applyEnvDefaults fills the options that were not given on the command line
// from the environment.
func applyEnvDefaults(cmd *cobra.Command, opts *runOptions) error {
	env, err := configFromEnv()
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	if !flags.Changed("scenario") {
		opts.Scenario = env.Scenario
	}

	if !flags.Changed("width") {
		opts.DataWidth = env.DataWidth
	}

	if !flags.Changed("freq-mhz") {
		opts.FreqMHz = env.FreqMHz
	}

	return nil
}

type closer func() error

type run struct {
	opts   runOptions
	stdout io.Writer
	stderr io.Writer

	scenario harness.Scenario
	harness  *harness.Harness
	engine   *timing.SerialEngine
	stats    *tracing.StatsTracer
	checker  *checker.Checker
	table    *tracing.TablePrinter
	recorder *datarecording.ObservationRecorder
	monitor  *monitoring.Monitor
	monURL   string
	bars     []*monitoring.ProgressBar
	closers  []closer
}

func runScenario(
	ctx context.Context,
	stdout, stderr io.Writer,
	opts runOptions,
) (err error) {
	r := &run{opts: opts, stdout: stdout, stderr: stderr}

	defer func() {
		closeErr := r.close()
		if err == nil {
			err = closeErr
		}
	}()

	if err := r.build(); err != nil {
		return err
	}

	if err := r.simulate(); err != nil {
		return err
	}

	r.completeProgress()

	if err := r.report(); err != nil {
		return err
	}

	if r.monitor != nil && opts.Hold {
		r.hold(ctx)
	}

	return nil
}

func (r *run) build() error {
	if r.opts.FreqMHz <= 0 {
		return errors.Errorf("frequency must be positive, got %g MHz",
			r.opts.FreqMHz)
	}

	scenario, err := harness.ScenarioByName(r.opts.Scenario)
	if err != nil {
		return err
	}
	r.scenario = scenario

	reg, err := skid.MakeBuilder().
		WithDataWidth(r.opts.DataWidth).
		Build("Skid")
	if err != nil {
		return err
	}

	r.harness = harness.NewHarness(reg)
	r.engine = timing.NewSerialEngine()

	r.attachLoggers()

	r.stats = tracing.NewStatsTracer()
	tracing.CollectTrace(r.harness, r.stats)

	if r.opts.Check {
		r.checker = checker.NewChecker()
		r.harness.AcceptHook(r.checker)
	}

	if r.opts.Table {
		r.table = tracing.NewTablePrinter(r.stdout)
		tracing.CollectTrace(r.harness, r.table)
	}

	if err := r.attachFileOutputs(); err != nil {
		return err
	}

	return r.attachMonitor()
}

func (r *run) attachLoggers() {
	if r.opts.Verbose {
		r.harness.AcceptHook(
			harness.NewObservationLogger(log.New(r.stderr, "", 0)))
	}

	if r.opts.TraceEvents {
		r.engine.AcceptHook(timing.NewEventLogger(log.New(r.stderr, "", 0)))
	}
}

func (r *run) attachFileOutputs() error {
	if r.opts.CSVPath != "" {
		w := tracing.NewCSVTraceWriter(r.opts.CSVPath)
		if err := w.Init(); err != nil {
			return err
		}

		tracing.CollectTrace(r.harness, w)
		r.closers = append(r.closers, w.Close)
	}

	if r.opts.VCDPath != "" {
		f, err := os.Create(r.opts.VCDPath)
		if err != nil {
			return errors.Wrap(err, "creating vcd file")
		}

		w := tracing.NewVCDWriter(f, r.harness.Name(), r.opts.DataWidth)
		tracing.CollectTrace(r.harness, w)
		r.closers = append(r.closers, f.Close, w.Close)
	}

	if r.opts.SQLitePath != "" {
		rec, err := datarecording.New(r.opts.SQLitePath)
		if err != nil {
			return err
		}
		r.closers = append(r.closers, rec.Close)

		r.recorder, err = datarecording.NewObservationRecorder(
			rec, datarecording.DefaultObservationTable, r.harness.Name())
		if err != nil {
			return err
		}

		tracing.CollectTrace(r.harness, r.recorder)
	}

	return nil
}

func (r *run) attachMonitor() error {
	if !r.opts.Monitor {
		return nil
	}

	r.monitor = monitoring.NewMonitor().WithPortNumber(r.opts.MonitorPort)
	r.monitor.RegisterEngine(r.engine)
	r.monitor.RegisterHarness(r.harness)

	cycles := r.monitor.CreateProgressBar(
		r.scenario.Name+" cycles", uint64(r.scenario.Len()))
	r.harness.AcceptHook(cycles)

	transfers, err := countTransfers(r.scenario, r.opts.DataWidth)
	if err != nil {
		return err
	}

	items := r.monitor.CreateProgressBar(r.scenario.Name+" items", transfers)
	r.harness.Register().AcceptHook(items)

	r.bars = []*monitoring.ProgressBar{cycles, items}

	url, err := r.monitor.StartServer()
	if err != nil {
		return err
	}
	r.monURL = url
	r.closers = append(r.closers, r.monitor.StopServer)

	if r.opts.OpenBrowser {
		if err := monitoring.OpenBrowser(url); err != nil {
			fmt.Fprintf(r.stderr, "Cannot open browser: %v\n", err)
		}
	}

	return nil
}

// countTransfers replays the stimulus on a scratch register and counts the
// items it accepts.
func countTransfers(s harness.Scenario, width int) (uint64, error) {
	reg, err := skid.MakeBuilder().WithDataWidth(width).Build("Scratch")
	if err != nil {
		return 0, err
	}

	var n uint64

	for _, in := range s.Stimulus {
		if res := reg.Tick(in); res.InputFire && !in.Reset {
			n++
		}
	}

	return n, nil
}

func (r *run) completeProgress() {
	for _, bar := range r.bars {
		r.monitor.CompleteProgressBar(bar)
	}

	r.bars = nil
}

func (r *run) simulate() error {
	comp := harness.MakeComponentBuilder().
		WithEngine(r.engine).
		WithFreq(timing.Freq(r.opts.FreqMHz) * timing.MHz).
		WithHarness(r.harness).
		WithSource(harness.NewSliceSource(r.scenario.Stimulus)).
		Build("Driver")

	comp.Start()

	return r.engine.Run()
}

func (r *run) report() error {
	if r.table != nil {
		if err := r.table.Flush(); err != nil {
			return errors.Wrap(err, "printing table")
		}
	}

	fmt.Fprintf(r.stdout, "scenario %s: %s\n", r.scenario.Name, r.stats.Stats())
	fmt.Fprintf(r.stdout, "simulated time: %.3f ns, final state: %s\n",
		r.engine.Now()*1e9, r.harness.State())

	if r.recorder != nil {
		if err := r.recorder.Err(); err != nil {
			return err
		}
	}

	if r.checker == nil {
		return nil
	}

	if err := r.checker.Err(); err != nil {
		return err
	}

	fmt.Fprintf(r.stdout, "protocol check passed: %d accepted, %d delivered\n",
		r.checker.Accepted(), r.checker.Delivered())

	return nil
}

func (r *run) hold(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.stderr, "Simulation finished, press Ctrl+C to exit.")
	<-ctx.Done()
}

func (r *run) close() error {
	var first error

	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}

	r.closers = nil

	return first
}
