// Package observe carries the Prometheus metrics and OpenTelemetry tracing of a
// beam simulation
package observe

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector bundles the simulation metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	gatherer prometheus.Gatherer

	Simulations    prometheus.Counter
	SimDurations   prometheus.Histogram
	Arrays         prometheus.Gauge
	Elements       prometheus.Gauge
	GridCells      prometheus.Gauge
	Profiles       prometheus.Counter
	SanitizedCells prometheus.Counter
}

// NewCollector registers the simulation metrics against reg, defaulting to the
// global registry when nil. Metrics already registered are reused.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	simulations, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beamsim_simulations_total",
		Help: "Completed BeamSystem simulations.",
	}), "beamsim_simulations_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "beamsim_simulation_duration_seconds",
		Help:    "Wall time of one BeamSystem simulation.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}), "beamsim_simulation_duration_seconds")
	if err != nil {
		return nil, err
	}
	arrays, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "beamsim_arrays",
		Help: "Arrays owned by the last simulated BeamSystem.",
	}), "beamsim_arrays")
	if err != nil {
		return nil, err
	}
	elements, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "beamsim_elements",
		Help: "Total antenna elements across the last simulated BeamSystem.",
	}), "beamsim_elements")
	if err != nil {
		return nil, err
	}
	cells, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "beamsim_grid_cells",
		Help: "Cells of the simulation grid.",
	}), "beamsim_grid_cells")
	if err != nil {
		return nil, err
	}
	profiles, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beamsim_profiles_total",
		Help: "Beam profiles computed.",
	}), "beamsim_profiles_total")
	if err != nil {
		return nil, err
	}
	sanitized, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "beamsim_sanitized_cells_total",
		Help: "Non-finite field values replaced by zero.",
	}), "beamsim_sanitized_cells_total")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:       gatherer,
		Simulations:    simulations,
		SimDurations:   durations,
		Arrays:         arrays,
		Elements:       elements,
		GridCells:      cells,
		Profiles:       profiles,
		SanitizedCells: sanitized,
	}, nil
}

// ObserveSimulation records one finished simulation
func (c *Collector) ObserveSimulation(elapsed time.Duration, arrays, elements, cells int, sanitized int64) {
	if c == nil {
		return
	}
	c.Simulations.Inc()
	c.SimDurations.Observe(elapsed.Seconds())
	c.Arrays.Set(float64(arrays))
	c.Elements.Set(float64(elements))
	c.GridCells.Set(float64(cells))
	if sanitized > 0 {
		c.SanitizedCells.Add(float64(sanitized))
	}
}

func (c *Collector) ObserveProfile() {
	if c == nil {
		return
	}
	c.Profiles.Inc()
}

// WriteTextfile dumps every gathered metric to path in the text exposition
// format, for node_exporter's textfile collector
func (c *Collector) WriteTextfile(path string) error {
	if c == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("observe: write metrics %s: %w", path, err)
	}
	return nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T, name string) (T, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
			return c, fmt.Errorf("observe: collector %s already registered with incompatible type", name)
		}
		return c, err
	}
	return c, nil
}
