package main

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/wiless/phasedarray/beam"
	"github.com/wiless/phasedarray/field"
)

// AppConfig holds the run parameters of beamsim. The grid and profile keys are
// only used when no scenario file is given.
type AppConfig struct {
	Resolution int     `mapstructure:"resolution"`
	MinX       float64 `mapstructure:"minX"`
	MaxX       float64 `mapstructure:"maxX"`
	MinY       float64 `mapstructure:"minY"`
	MaxY       float64 `mapstructure:"maxY"`

	ProfileStart  float64 `mapstructure:"profileStart"`
	ProfileEnd    float64 `mapstructure:"profileEnd"`
	ProfilePoints int     `mapstructure:"profilePoints"`

	Workers   int    `mapstructure:"workers"`
	LogLevel  string `mapstructure:"logLevel"`
	LogFormat string `mapstructure:"logFormat"` // text | json

	Tracing     bool   `mapstructure:"tracing"`
	MetricsFile string `mapstructure:"metricsFile"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("resolution", field.DefaultResolution)
	v.SetDefault("minX", field.DefaultMinX)
	v.SetDefault("maxX", field.DefaultMaxX)
	v.SetDefault("minY", field.DefaultMinY)
	v.SetDefault("maxY", field.DefaultMaxY)
	v.SetDefault("profileStart", beam.DefaultStart)
	v.SetDefault("profileEnd", beam.DefaultEnd)
	v.SetDefault("profilePoints", beam.DefaultPoints)
	v.SetDefault("workers", 0)
	v.SetDefault("logLevel", "info")
	v.SetDefault("logFormat", "text")
	v.SetDefault("tracing", false)
	v.SetDefault("metricsFile", "")
}

// ReadAppConfig reads beamsim.{yaml,json,toml} from indir, or the file given by
// configFile, and applies BEAMSIM_* environment overrides. A missing config
// file in indir is not an error.
func ReadAppConfig(indir, configFile string) (AppConfig, error) {
	var result AppConfig
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BEAMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(indir)
		v.SetConfigName("beamsim")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return result, fmt.Errorf("beamsim: read config: %w", err)
		}
		log.WithField("indir", indir).Debug("no beamsim config file, using defaults")
	} else {
		log.WithField("file", v.ConfigFileUsed()).Debug("loaded config")
	}

	if err := v.Unmarshal(&result); err != nil {
		return result, fmt.Errorf("beamsim: decode config: %w", err)
	}
	return result, nil
}

// SetupLogging applies the configured level and formatter to the standard logger
func (c AppConfig) SetupLogging() error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("beamsim: %w", err)
	}
	log.SetLevel(level)
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("beamsim: unknown log format %q", c.LogFormat)
	}
	return nil
}
