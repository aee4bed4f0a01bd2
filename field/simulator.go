// Near-field superposition of an array's element wavefronts over a 2D grid
package field

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray/antenna"
	"gonum.org/v1/gonum/mat"
)

// Simulator evaluates array contributions with a pool of Workers goroutines, each
// filling whole grid rows.
type Simulator struct {
	Workers int

	sanitized atomic.Int64
}

// NewSimulator returns a Simulator with the given pool size; workers <= 0 uses
// one worker per CPU.
func NewSimulator(workers int) *Simulator {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Simulator{Workers: workers}
}

// Sanitized counts the non-finite cells replaced by 0 so far
func (s *Simulator) Sanitized() int64 {
	return s.sanitized.Load()
}

// elementSource is the read-only view of an array the workers share
type elementSource struct {
	x, y  []float64
	k     []float64
	phase []float64
}

func newElementSource(arr *antenna.PhasedArray) elementSource {
	pos := arr.GlobalPositions()
	src := elementSource{
		x:     make([]float64, len(pos)),
		y:     make([]float64, len(pos)),
		k:     arr.Wavenumbers(),
		phase: arr.SteeringPhases(),
	}
	for i, p := range pos {
		src.x[i], src.y[i] = real(p), imag(p)
	}
	return src
}

// fill writes sum_i sin(k_i*R_i + phase_i) for every grid point of one row.
// Amplitudes are unity: there is no 1/R decay, so fringes stay visible across
// the whole window.
func (e elementSource) fill(dst, gx, gy []float64) {
	for c := range dst {
		var sum float64
		for i := range e.x {
			R := math.Hypot(gx[c]-e.x[i], gy[c]-e.y[i])
			sum += math.Sin(e.k[i]*R + e.phase[i])
		}
		dst[c] = sum
	}
}

// Contribution computes the real-valued field of arr at every point (gx[r][c],
// gy[r][c]). An array without elements contributes a zero field.
func (s *Simulator) Contribution(arr *antenna.PhasedArray, gx, gy *mat.Dense) (*mat.Dense, error) {
	if gx == nil || gy == nil {
		return nil, fmt.Errorf("%w: nil coordinates", ErrInvalidGrid)
	}
	rows, cols := gx.Dims()
	if r, c := gy.Dims(); r != rows || c != cols {
		return nil, fmt.Errorf("%w: x is %dx%d, y is %dx%d", ErrShapeMismatch, rows, cols, r, c)
	}

	result := mat.NewDense(rows, cols, nil)
	src := newElementSource(arr)
	if len(src.x) == 0 {
		return result, nil
	}

	workers := s.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > rows {
		workers = rows
	}

	jobs := make(chan int, rows)
	for r := 0; r < rows; r++ {
		jobs <- r
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				src.fill(result.RawRowView(r), gx.RawRowView(r), gy.RawRowView(r))
			}
		}()
	}
	wg.Wait()

	if n := Sanitize(result); n > 0 {
		s.sanitized.Add(int64(n))
		log.WithFields(log.Fields{"component": "field", "cells": n}).Warn("replaced non-finite field values")
	}
	return result, nil
}

// Field is Contribution over a Grid
func (s *Simulator) Field(arr *antenna.PhasedArray, g *Grid) (*mat.Dense, error) {
	return s.Contribution(arr, g.X, g.Y)
}
