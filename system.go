// Package phasedarray composes independently configured phased arrays over one
// shared simulation grid
package phasedarray

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray/antenna"
	"github.com/wiless/phasedarray/beam"
	"github.com/wiless/phasedarray/field"
	"github.com/wiless/phasedarray/observe"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"
)

var ErrArrayIndex = errors.New("phasedarray: array index out of range")

type State int

const (
	Configured State = iota
	Simulated
)

var States = [...]string{
	"configured",
	"simulated",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(States) {
		return "Unknown-State"
	}
	return States[s]
}

type Option func(*BeamSystem)

// WithWorkers sets how many arrays are evaluated at once and the row workers of
// each evaluation; n <= 0 uses one per CPU
func WithWorkers(n int) Option {
	return func(b *BeamSystem) {
		if n <= 0 {
			n = runtime.NumCPU()
		}
		b.workers = n
	}
}

func WithLogger(entry *log.Entry) Option {
	return func(b *BeamSystem) {
		if entry != nil {
			b.logger = entry
		}
	}
}

func WithCollector(c *observe.Collector) Option {
	return func(b *BeamSystem) { b.collector = c }
}

func WithTracer(t trace.Tracer) Option {
	return func(b *BeamSystem) {
		if t != nil {
			b.tracer = t
		}
	}
}

// BeamSystem owns a grid, an ordered list of arrays and the total field they
// produce. Simulate must not run concurrently with itself or with mutations of
// the owned arrays.
type BeamSystem struct {
	grid   *field.Grid
	arrays []*antenna.PhasedArray

	total     *mat.Dense
	simulated bool
	revisions []uint64 // array revisions the total field was computed from

	workers   int
	sim       *field.Simulator
	logger    *log.Entry
	collector *observe.Collector
	tracer    trace.Tracer
}

func NewBeamSystem(grid *field.Grid, opts ...Option) *BeamSystem {
	if grid == nil {
		grid = field.DefaultGrid()
	}
	b := &BeamSystem{
		grid:    grid,
		total:   grid.Zeros(),
		workers: runtime.NumCPU(),
		logger:  log.WithField("component", "beamsystem"),
		tracer:  observe.Tracer(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.sim = field.NewSimulator(b.workers)
	return b
}

func (b *BeamSystem) AddArray(arr *antenna.PhasedArray) {
	b.arrays = append(b.arrays, arr)
	b.logger.WithFields(log.Fields{"index": len(b.arrays) - 1, "N": arr.N(), "geometry": arr.Geometry()}).Debug("added array")
}

func (b *BeamSystem) Arrays() []*antenna.PhasedArray {
	return append([]*antenna.PhasedArray(nil), b.arrays...)
}

func (b *BeamSystem) Grid() *field.Grid {
	return b.grid
}

func (b *BeamSystem) Simulate() error {
	return b.SimulateContext(context.Background())
}

// SimulateContext recomputes the total field from the current state of every
// array. Arrays are evaluated concurrently on snapshots and summed in the order
// they were added, so repeated calls reproduce the same field. ctx carries the
// trace span only; a simulation always runs to completion.
func (b *BeamSystem) SimulateContext(ctx context.Context) error {
	_, span := b.tracer.Start(ctx, "BeamSystem.Simulate", trace.WithAttributes(
		attribute.Int("arrays", len(b.arrays)),
		attribute.Int("grid.cells", b.grid.Cells()),
	))
	defer span.End()

	start := time.Now()
	sanitizedBefore := b.sim.Sanitized()

	snapshots := make([]*antenna.PhasedArray, len(b.arrays))
	revisions := make([]uint64, len(b.arrays))
	elements := 0
	for i, arr := range b.arrays {
		snapshots[i] = arr.Snapshot()
		revisions[i] = arr.Revision()
		elements += arr.N()
	}

	contributions := make([]*mat.Dense, len(snapshots))
	errs := make([]error, len(snapshots))
	sem := make(chan struct{}, b.workers)
	var wg sync.WaitGroup
	for i, snap := range snapshots {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, snap *antenna.PhasedArray) {
			defer wg.Done()
			defer func() { <-sem }()
			contributions[i], errs[i] = b.sim.Field(snap, b.grid)
		}(i, snap)
	}
	wg.Wait()

	total := b.grid.Zeros()
	for i, c := range contributions {
		if errs[i] != nil {
			err := fmt.Errorf("phasedarray: array %d: %w", i, errs[i])
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		total.Add(total, c)
	}

	b.total = total
	b.revisions = revisions
	b.simulated = true

	elapsed := time.Since(start)
	sanitized := b.sim.Sanitized() - sanitizedBefore
	b.collector.ObserveSimulation(elapsed, len(b.arrays), elements, b.grid.Cells(), sanitized)
	span.SetAttributes(attribute.Int("elements", elements), attribute.Int64("sanitized", sanitized))
	b.logger.WithFields(log.Fields{
		"arrays":   len(b.arrays),
		"elements": elements,
		"elapsed":  elapsed,
	}).Info("simulated total field")
	return nil
}

// TotalField returns a copy of the last simulated field
func (b *BeamSystem) TotalField() *mat.Dense {
	return mat.DenseCopyOf(b.total)
}

// State reports Simulated only while the total field still matches the arrays:
// adding an array or mutating one returns the system to Configured.
func (b *BeamSystem) State() State {
	if !b.simulated || len(b.revisions) != len(b.arrays) {
		return Configured
	}
	for i, arr := range b.arrays {
		if arr.Revision() != b.revisions[i] {
			return Configured
		}
	}
	return Simulated
}

// Profile computes the far-field beam profile of the index-th array
func (b *BeamSystem) Profile(index int, start, end float64, points int) (beam.Profile, error) {
	if index < 0 || index >= len(b.arrays) {
		return beam.Profile{}, fmt.Errorf("%w: %d of %d", ErrArrayIndex, index, len(b.arrays))
	}
	p, err := beam.NewProfile(b.arrays[index].Snapshot(), start, end, points)
	if err != nil {
		return beam.Profile{}, err
	}
	b.collector.ObserveProfile()
	return p, nil
}
