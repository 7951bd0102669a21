// Package monitoring serves the state of a running simulation over HTTP.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sarchlab/skidbuffer/harness"
	"github.com/sarchlab/skidbuffer/monitoring/web"
	"github.com/sarchlab/skidbuffer/sim/id"
	"github.com/sarchlab/skidbuffer/sim/timing"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor can turn a simulation into a server and allows external monitoring
// and controlling of the simulation.
type Monitor struct {
	lock sync.RWMutex

	engine          timing.Engine
	harnesses       []*harness.Harness
	portNumber      int
	profileDuration time.Duration
	server          *http.Server

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		profileDuration: time.Second,
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that is used in the simulation.
func (m *Monitor) RegisterEngine(e timing.Engine) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.engine = e
}

// RegisterHarness registers a harness to be monitored under the name of its
// register.
func (m *Monitor) RegisterHarness(h *harness.Harness) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.harnesses = append(m.harnesses, h)
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        id.Generate(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar from the list of bars shown.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pauseEngine)
	r.HandleFunc("/api/continue", m.continueEngine)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/list_components", m.listComponents)
	r.HandleFunc("/api/component/{name}", m.listComponentDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/state/{name}", m.componentState)
	r.HandleFunc("/api/buffers", m.listBuffers)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", errors.Wrap(err, "starting monitoring server")
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Panic(err)
		}
	}()

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return errors.Wrap(m.server.Close(), "stopping monitoring server")
}

// OpenBrowser opens url in the default browser.
func OpenBrowser(url string) error {
	return errors.Wrap(browser.OpenURL(url), "opening browser")
}

func (m *Monitor) engineOr503(w http.ResponseWriter) timing.Engine {
	m.lock.RLock()
	e := m.engine
	m.lock.RUnlock()

	if e == nil {
		http.Error(w, "no engine registered", http.StatusServiceUnavailable)
	}

	return e
}

func (m *Monitor) pauseEngine(w http.ResponseWriter, _ *http.Request) {
	e := m.engineOr503(w)
	if e == nil {
		return
	}

	e.Pause()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) continueEngine(w http.ResponseWriter, _ *http.Request) {
	e := m.engineOr503(w)
	if e == nil {
		return
	}

	e.Continue()
	w.WriteHeader(http.StatusOK)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	e := m.engineOr503(w)
	if e == nil {
		return
	}

	fmt.Fprintf(w, "{\"now\":%.10f}", e.Now())
}

func (m *Monitor) listComponents(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := make([]string, 0, len(m.harnesses))
	for _, h := range m.harnesses {
		names = append(names, h.Name())
	}
	m.lock.RUnlock()

	writeJSON(w, names)
}

func (m *Monitor) findHarnessOr404(
	w http.ResponseWriter,
	name string,
) *harness.Harness {
	m.lock.RLock()
	defer m.lock.RUnlock()

	for _, h := range m.harnesses {
		if h.Name() == name {
			return h
		}
	}

	http.Error(w, "Component not found", http.StatusNotFound)

	return nil
}

func (m *Monitor) listComponentDetails(w http.ResponseWriter, r *http.Request) {
	h := m.findHarnessOr404(w, mux.Vars(r)["name"])
	if h == nil {
		return
	}

	snapshot := h.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type fieldReq struct {
	CompName  string `json:"comp_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	req := fieldReq{}

	err := json.Unmarshal([]byte(mux.Vars(r)["json"]), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h := m.findHarnessOr404(w, req.CompName)
	if h == nil {
		return
	}

	snapshot := h.Snapshot()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&snapshot)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

type observationRsp struct {
	Cycle      uint64 `json:"cycle"`
	Reset      bool   `json:"reset"`
	InReady    bool   `json:"in_ready"`
	OutValid   bool   `json:"out_valid"`
	OutData    string `json:"out_data"`
	InputFire  bool   `json:"input_fire"`
	OutputFire bool   `json:"output_fire"`
}

type stateRsp struct {
	Name            string          `json:"name"`
	Cycle           uint64          `json:"cycle"`
	Phase           string          `json:"phase"`
	Valid           bool            `json:"valid"`
	Data            string          `json:"data"`
	DataWidth       int             `json:"data_width"`
	LastObservation *observationRsp `json:"last_observation,omitempty"`
}

func (m *Monitor) componentState(w http.ResponseWriter, r *http.Request) {
	h := m.findHarnessOr404(w, mux.Vars(r)["name"])
	if h == nil {
		return
	}

	snapshot := h.Snapshot()
	rsp := stateRsp{
		Name:      snapshot.Name,
		Cycle:     snapshot.Cycle,
		Phase:     snapshot.State.Phase().String(),
		Valid:     snapshot.State.Valid,
		Data:      fmt.Sprintf("0x%X", uint64(snapshot.State.Data)),
		DataWidth: snapshot.DataWidth,
	}

	if obs := snapshot.LastObservation; obs != nil {
		rsp.LastObservation = &observationRsp{
			Cycle:      obs.Cycle,
			Reset:      obs.Input.Reset,
			InReady:    obs.InReady,
			OutValid:   obs.OutValid,
			OutData:    fmt.Sprintf("0x%X", uint64(obs.OutData)),
			InputFire:  obs.InputFire,
			OutputFire: obs.OutputFire,
		}
	}

	writeJSON(w, rsp)
}

type bufferRsp struct {
	Buffer string `json:"buffer"`
	Level  int    `json:"level"`
	Cap    int    `json:"cap"`
}

func (m *Monitor) listBuffers(w http.ResponseWriter, r *http.Request) {
	sortMethod, limit, offset, err := buffersParseParams(r)
	if err != nil {
		http.Error(w, "Error: "+err.Error(), http.StatusBadRequest)
		return
	}

	m.lock.RLock()
	buffers := make([]bufferRsp, 0, len(m.harnesses))
	for _, h := range m.harnesses {
		level, capacity := h.Occupancy()
		buffers = append(buffers, bufferRsp{
			Buffer: h.Name(),
			Level:  level,
			Cap:    capacity,
		})
	}
	m.lock.RUnlock()

	writeJSON(w, sortAndSelectBuffers(buffers, sortMethod, limit, offset))
}

func buffersParseParams(
	r *http.Request,
) (sortMethod string, limit, offset int, err error) {
	sortMethod = r.URL.Query().Get("sort")
	if sortMethod == "" {
		sortMethod = "percent"
	}

	if sortMethod != "level" && sortMethod != "percent" {
		return "", 0, 0, errors.Errorf(
			"invalid sort method: %s. Allowed values are `level` and `percent`",
			sortMethod)
	}

	limit, err = intParam(r, "limit")
	if err != nil {
		return "", 0, 0, err
	}

	offset, err = intParam(r, "offset")
	if err != nil {
		return "", 0, 0, err
	}

	return sortMethod, limit, offset, nil
}

func intParam(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, nil
	}

	v, err := strconv.Atoi(str)
	if err != nil || v < 0 {
		return 0, errors.Errorf("invalid %s: %s", name, str)
	}

	return v, nil
}

func bufferPercent(b bufferRsp) float64 {
	return float64(b.Level) / float64(b.Cap)
}

// sortAndSelectBuffers orders buffers by level or fill percentage and cuts a
// page out of them. A zero limit selects everything after offset.
func sortAndSelectBuffers(
	buffers []bufferRsp,
	sortMethod string,
	limit, offset int,
) []bufferRsp {
	sort.SliceStable(buffers, func(i, j int) bool {
		levelI, levelJ := buffers[i].Level, buffers[j].Level
		percentI, percentJ := bufferPercent(buffers[i]), bufferPercent(buffers[j])

		if sortMethod == "level" {
			if levelI != levelJ {
				return levelI > levelJ
			}

			return percentI > percentJ
		}

		if percentI != percentJ {
			return percentI > percentJ
		}

		return levelI > levelJ
	})

	if offset > len(buffers) {
		offset = len(buffers)
	}

	end := len(buffers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return buffers[offset:end]
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(m.profileDuration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
