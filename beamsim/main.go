// beamsim simulates the total field and the beam profile of a phased array
// scenario and writes the heatmap, the polar profile and a Matlab script
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"github.com/wiless/phasedarray"
	"github.com/wiless/phasedarray/deployment"
	"github.com/wiless/phasedarray/observe"
	"github.com/wiless/phasedarray/render"
	"gonum.org/v1/plot/vg"
)

var (
	indir      string
	outdir     string
	configFile string
	scenario   string
	verbose    bool
)

func init() {
	flag.StringVar(&outdir, "outdir", ".", "Directory where all the output files are generated..")
	flag.StringVar(&indir, "indir", ".", "Directory searched for beamsim.yaml..")
	flag.StringVar(&configFile, "config", "", "Explicit config file, overrides -indir")
	flag.StringVar(&scenario, "scenario", "", "Scenario file (.yaml, .yml or .json); a single default array when empty")
	flag.BoolVar(&verbose, "v", false, "Print logs verbose mode")
}

func main() {
	flag.Parse()

	cfg, err := ReadAppConfig(indir, configFile)
	if err != nil {
		log.Fatalln(err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.SetupLogging(); err != nil {
		log.Fatalln(err)
	}

	ctx := context.Background()
	shutdown, err := observe.InitTracing(ctx, observe.TracingConfig{Enabled: cfg.Tracing, ServiceName: "beamsim", Writer: os.Stderr})
	if err != nil {
		log.Fatalln(err)
	}
	defer observe.Shutdown(ctx, shutdown)

	if err := run(ctx, cfg, scenario, outdir, os.Stdout); err != nil {
		log.Fatalln(err)
	}
}

// loadScenario reads the scenario file, or builds a one array scenario from the
// config when path is empty
func loadScenario(cfg AppConfig, path string) (deployment.Scenario, error) {
	if path != "" {
		return deployment.LoadScenario(path)
	}
	sc := deployment.NewScenario()
	sc.Arrays = []deployment.ArrayRecord{deployment.NewArrayRecord()}
	sc.Grid = deployment.GridSpec{MinX: cfg.MinX, MaxX: cfg.MaxX, MinY: cfg.MinY, MaxY: cfg.MaxY, Resolution: cfg.Resolution}
	sc.Profile = deployment.ProfileSpec{Start: cfg.ProfileStart, End: cfg.ProfileEnd, Points: cfg.ProfilePoints}
	return sc, nil
}

func run(ctx context.Context, cfg AppConfig, scenarioPath, outdir string, stdout io.Writer) error {
	sc, err := loadScenario(cfg, scenarioPath)
	if err != nil {
		return err
	}

	collector, err := observe.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return err
	}
	system, err := sc.Build(
		phasedarray.WithWorkers(cfg.Workers),
		phasedarray.WithCollector(collector),
		phasedarray.WithLogger(log.WithField("component", "beamsim")),
	)
	if err != nil {
		return err
	}
	if err := system.SimulateContext(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return fmt.Errorf("beamsim: %w", err)
	}
	if err := writeFile(filepath.Join(outdir, "field.png"), func(w io.Writer) error {
		return render.Heatmap(system, w, 8*vg.Inch, 6*vg.Inch)
	}); err != nil {
		return err
	}

	if len(system.Arrays()) > 0 {
		ps := sc.Profile
		profile, err := system.Profile(ps.Array, ps.Start, ps.End, ps.Points)
		if err != nil {
			return err
		}
		if err := writeFile(filepath.Join(outdir, "profile.png"), func(w io.Writer) error {
			return render.Polar(profile, w, 6*vg.Inch)
		}); err != nil {
			return err
		}
		if err := render.MatlabScript(filepath.Join(outdir, "profile.m"), profile, system.Arrays()[ps.Array]); err != nil {
			return err
		}

		angle, mag := profile.Peak()
		heading := color.New(color.FgCyan, color.Bold)
		heading.Fprintf(stdout, "Beam profile of array %d\n", ps.Array)
		fmt.Fprintf(stdout, "  peak %.2f at %.1f deg, HPBW %.1f deg\n", mag, angle, profile.HalfPowerBeamwidth())
	}

	heading := color.New(color.FgGreen, color.Bold)
	heading.Fprintf(stdout, "Simulated %d arrays on a %dx%d grid\n", len(system.Arrays()), sc.Grid.Resolution, sc.Grid.Resolution)
	for i, arr := range system.Arrays() {
		fmt.Fprintf(stdout, "  [%d] %-6s N=%-3d f=%.3gHz steering=%6.1f at (%.2f,%.2f)\n",
			i, arr.Geometry(), arr.N(), arr.Frequency(), arr.SteeringAngle(), arr.Centre().X, arr.Centre().Y)
	}

	if cfg.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.MetricsFile); err != nil {
			return err
		}
	}
	color.New(color.FgYellow).Fprintf(stdout, "Outputs in %s\n", outdir)
	return nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	fid, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("beamsim: %w", err)
	}
	if err := fn(fid); err != nil {
		fid.Close()
		return err
	}
	return fid.Close()
}
