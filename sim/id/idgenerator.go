// Package id generates the identifiers used for events, runs and output files.
package id

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs.
type IDGenerator interface {
	Generate() string
}

var (
	generatorLock sync.Mutex
	generator     IDGenerator = NewSequentialIDGenerator()
)

// Generate returns a new ID from the generator used in the current process.
func Generate() string {
	generatorLock.Lock()
	g := generator
	generatorLock.Unlock()

	return g.Generate()
}

// UseSequentialIDGenerator makes Generate return increasing decimal numbers.
// Sequential IDs make traces reproducible from run to run.
func UseSequentialIDGenerator() {
	generatorLock.Lock()
	generator = NewSequentialIDGenerator()
	generatorLock.Unlock()
}

// UseGlobalIDGenerator makes Generate return globally unique IDs.
func UseGlobalIDGenerator() {
	generatorLock.Lock()
	generator = globalIDGenerator{}
	generatorLock.Unlock()
}

// NewSequentialIDGenerator returns a generator that counts from 1.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	nextID uint64
}

func (g *sequentialIDGenerator) Generate() string {
	idNumber := atomic.AddUint64(&g.nextID, 1)

	return strconv.FormatUint(idNumber, 10)
}

type globalIDGenerator struct{}

func (globalIDGenerator) Generate() string {
	return xid.New().String()
}
