package defs

import (
	"fmt"
	"os"
	"time"

	"ichor/ichor/pkg/mage"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const DefaultDB = "ichor"

// Intervals.
const (
	LookbackInterval   = -24 * time.Hour
	DownloaderInterval = 1 * time.Minute
	ReporterInterval   = 15 * time.Minute
	TimeoutInterval    = 2 * time.Second
)

type Config struct {
	Dexcom   DexcomConfig  `yaml:"dexcom"`
	Mongo    MongoConfig   `yaml:"mongo"`
	Glucose  GlucoseConfig `yaml:"glucose"`
	Mage     mage.Options  `yaml:"mage"`
	HTTP     HTTPConfig    `yaml:"http"`
	Timezone string        `yaml:"timezone"`
	Logger   *zap.Logger   `yaml:"-"`
}

type DexcomConfig struct {
	Account  string `yaml:"account"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"baseURL,omitempty"`
}

// GlucoseConfig holds range bounds in mmol/L. Low and High bound the target
// range; VeryLow and VeryHigh split off the level 2 bands.
type GlucoseConfig struct {
	VeryLow  float64 `yaml:"veryLow"`
	Low      float64 `yaml:"low"`
	High     float64 `yaml:"high"`
	VeryHigh float64 `yaml:"veryHigh"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database,omitempty"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

func DefaultConfig() Config {
	return Config{
		Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: DefaultDB},
		Glucose: GlucoseConfig{VeryLow: 3.0, Low: 3.9, High: 10, VeryHigh: 13.9},
		HTTP:    HTTPConfig{Addr: ":4242"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("unable to read config file: %w", err)
	}
	if err := yaml.Unmarshal(file, &config); err != nil {
		return config, fmt.Errorf("unable to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := c.Glucose.Validate(); err != nil {
		return err
	}
	if c.Mage.ShortWindow < 0 || c.Mage.LongWindow < 0 {
		return fmt.Errorf("mage windows must not be negative")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("unable to load timezone: %w", err)
		}
	}
	return nil
}

// WithBands fills unset level 2 bounds with the consensus defaults.
func (g GlucoseConfig) WithBands() GlucoseConfig {
	defaults := DefaultConfig().Glucose
	if g.VeryLow == 0 {
		g.VeryLow = defaults.VeryLow
	}
	if g.VeryHigh == 0 {
		g.VeryHigh = defaults.VeryHigh
	}
	return g
}

func (g GlucoseConfig) Validate() error {
	if g.Low <= 0 || g.High <= g.Low {
		return fmt.Errorf("glucose range must satisfy 0 < low < high, got %v..%v", g.Low, g.High)
	}
	if g.VeryLow <= 0 || g.VeryLow > g.Low || g.VeryHigh < g.High {
		return fmt.Errorf("glucose bands must satisfy 0 < veryLow <= low < high <= veryHigh, got %v, %v..%v, %v",
			g.VeryLow, g.Low, g.High, g.VeryHigh)
	}
	return nil
}

// Location resolves Timezone, defaulting to the local zone.
func (c Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
