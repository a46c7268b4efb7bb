// Package conf holds the daemon configuration.
package conf

import (
	"fmt"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v2"

	"github.com/signalsfoundry/timescale/eop"
)

// EOP selects where the daemon gets Earth-orientation data from. Exactly
// one of FixedTTMinusUT1 and FinalsPath must be set.
type EOP struct {
	// FinalsPath points at an IERS finals2000A file on disk. The daemon
	// watches it for rewrites.
	FinalsPath string `yaml:"finalsPath"`

	// RefreshURL, when set alongside FinalsPath, is fetched on
	// RefreshSchedule and swapped into service.
	RefreshURL      string `yaml:"refreshURL"`
	RefreshSchedule string `yaml:"refreshSchedule"`

	// FixedTTMinusUT1 pins TT-UT1 to a constant number of seconds and
	// disables file and network sources entirely.
	FixedTTMinusUT1 *float64 `yaml:"fixedTTMinusUT1"`
}

// Tracing mirrors the observability tracing switches.
type Tracing struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"serviceName"`
	Exporter    string  `yaml:"exporter"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sampleRatio"`
}

// Conf is the root configuration of the daemon.
type Conf struct {
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// APIAddress is where the HTTP conversion API listens.
	APIAddress string `yaml:"apiAddress"`

	// MetricsAddress is where the Prometheus endpoint listens. Empty
	// disables the metrics listener.
	MetricsAddress string `yaml:"metricsAddress"`

	EOP     EOP     `yaml:"eop"`
	Tracing Tracing `yaml:"tracing"`
}

func defaults() Conf {
	return Conf{
		LogLevel:       "info",
		LogFormat:      "text",
		APIAddress:     ":8554",
		MetricsAddress: ":9090",
		EOP: EOP{
			RefreshURL:      eop.DefaultFinalsURL,
			RefreshSchedule: "0 3 * * *",
		},
		Tracing: Tracing{
			ServiceName: "timescaled",
			Exporter:    "stdout",
			SampleRatio: 1.0,
		},
	}
}

// Load reads the configuration file at path, applying defaults for
// unset fields and rejecting unknown keys. An empty path yields the
// defaults, which still fail validation until an EOP source is chosen.
func Load(path string) (Conf, error) {
	cnf := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Conf{}, err
		}
		if err := yaml.UnmarshalStrict(raw, &cnf); err != nil {
			return Conf{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cnf.validate(); err != nil {
		return Conf{}, err
	}
	return cnf, nil
}

func (c Conf) validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logLevel %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logFormat %q", c.LogFormat)
	}
	if c.APIAddress == "" {
		return fmt.Errorf("apiAddress must not be empty")
	}

	if c.EOP.FixedTTMinusUT1 == nil && c.EOP.FinalsPath == "" {
		return fmt.Errorf("eop: either finalsPath or fixedTTMinusUT1 must be set")
	}
	if c.EOP.FixedTTMinusUT1 != nil && c.EOP.FinalsPath != "" {
		return fmt.Errorf("eop: finalsPath and fixedTTMinusUT1 are mutually exclusive")
	}
	if c.EOP.RefreshSchedule != "" {
		if _, err := cron.ParseStandard(c.EOP.RefreshSchedule); err != nil {
			return fmt.Errorf("eop: invalid refreshSchedule: %w", err)
		}
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("tracing: sampleRatio must be within [0, 1]")
	}
	switch c.Tracing.Exporter {
	case "", "stdout", "otlp", "otlpgrpc":
	default:
		return fmt.Errorf("tracing: unsupported exporter %q", c.Tracing.Exporter)
	}
	return nil
}
