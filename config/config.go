// Package config loads scanner configuration from a YAML file, command-line
// flags and the environment, and validates it before anything downstream
// sees it.
package config

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bybit-volume-scanner/internal/domain"
)

// Defaults mirror the scanner's original tuning: spot market, 24h lookback,
// +30% threshold, 5 minute scans.
const (
	DefaultTimeframeHours   = 24
	DefaultThreshold        = 30.0
	DefaultCheckInterval    = 300 * time.Second
	DefaultWindowBuffer     = 1.2
	DefaultNegligibleVolume = 0.01
	DefaultDataFile         = "volume_data.json"
	DefaultWALDir           = "./wal/alerts"
	DefaultListenAddr       = ":8080"
)

// Config is the full application configuration.
type Config struct {
	Category                domain.Category
	TimeframeHours          int
	VolumeIncreaseThreshold float64
	CheckInterval           time.Duration
	WindowBuffer            float64
	NegligibleVolume        float64
	DataFile                string
	WALDir                  string
	ListenAddr              string
	Autostart               bool
}

type configTmp struct {
	Category                string  `yaml:"category"`
	TimeframeHours          int     `yaml:"timeframe_hours"`
	VolumeIncreaseThreshold float64 `yaml:"volume_increase_threshold"`
	CheckIntervalSeconds    int     `yaml:"check_interval_seconds"`
	WindowBuffer            float64 `yaml:"window_buffer,omitempty"`
	NegligibleVolume        float64 `yaml:"negligible_volume,omitempty"`
	DataFile                string  `yaml:"data_file,omitempty"`
	WALDir                  string  `yaml:"wal_dir,omitempty"`
	ListenAddr              string  `yaml:"listen_addr,omitempty"`
	Autostart               *bool   `yaml:"autostart,omitempty"`
}

// Default returns the configuration the scanner ships with.
func Default() Config {
	return Config{
		Category:                domain.CategorySpot,
		TimeframeHours:          DefaultTimeframeHours,
		VolumeIncreaseThreshold: DefaultThreshold,
		CheckInterval:           DefaultCheckInterval,
		WindowBuffer:            DefaultWindowBuffer,
		NegligibleVolume:        DefaultNegligibleVolume,
		DataFile:                DefaultDataFile,
		WALDir:                  DefaultWALDir,
		ListenAddr:              DefaultListenAddr,
		Autostart:               true,
	}
}

// Get builds the configuration from a YAML file (--config) or CLI flags,
// with .env/environment overrides for deployment-specific paths.
func Get() (Config, error) {
	// optional .env, same keys as the environment
	_ = godotenv.Load()

	configPath := flag.String("config", "", "path to yaml config")
	category := flag.String("category", string(domain.CategorySpot), "market category: spot, linear or inverse")
	timeframe := flag.Int("timeframe", DefaultTimeframeHours, "lookback period in hours for the average volume")
	threshold := flag.Float64("threshold", DefaultThreshold, "minimum volume increase in percent to trigger an alert")
	interval := flag.Int("interval", int(DefaultCheckInterval.Seconds()), "seconds between scans")
	listenAddr := flag.String("listen", DefaultListenAddr, "dashboard listen address")
	autostart := flag.Bool("autostart", true, "start scanning immediately")
	flag.Parse()

	cfg := Default()

	if *configPath != "" {
		loaded, err := getYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	} else {
		cfg.Category = domain.Category(*category)
		cfg.TimeframeHours = *timeframe
		cfg.VolumeIncreaseThreshold = *threshold
		cfg.CheckInterval = time.Duration(*interval) * time.Second
		cfg.ListenAddr = *listenAddr
		cfg.Autostart = *autostart
	}

	if dataFile := os.Getenv("DATA_FILE"); dataFile != "" {
		cfg.DataFile = dataFile
	}
	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getYaml(path string) (Config, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var tmp configTmp
	if err := yaml.Unmarshal(payload, &tmp); err != nil {
		return Config{}, fmt.Errorf("parse yaml config: %w", err)
	}

	cfg := Default()

	if tmp.Category != "" {
		cfg.Category = domain.Category(tmp.Category)
	}
	if tmp.TimeframeHours != 0 {
		cfg.TimeframeHours = tmp.TimeframeHours
	}
	if tmp.VolumeIncreaseThreshold != 0 {
		cfg.VolumeIncreaseThreshold = tmp.VolumeIncreaseThreshold
	}
	if tmp.CheckIntervalSeconds != 0 {
		cfg.CheckInterval = time.Duration(tmp.CheckIntervalSeconds) * time.Second
	}
	if tmp.WindowBuffer != 0 {
		cfg.WindowBuffer = tmp.WindowBuffer
	}
	if tmp.NegligibleVolume != 0 {
		cfg.NegligibleVolume = tmp.NegligibleVolume
	}
	if tmp.DataFile != "" {
		cfg.DataFile = tmp.DataFile
	}
	if tmp.WALDir != "" {
		cfg.WALDir = tmp.WALDir
	}
	if tmp.ListenAddr != "" {
		cfg.ListenAddr = tmp.ListenAddr
	}
	if tmp.Autostart != nil {
		cfg.Autostart = *tmp.Autostart
	}

	return cfg, nil
}

// Validate rejects configurations the scanner core would misbehave on.
// The core itself never validates; this boundary is the only gate.
func (c Config) Validate() error {
	if !c.Category.Valid() {
		return fmt.Errorf("invalid category %q: must be spot, linear or inverse", c.Category)
	}
	if c.TimeframeHours <= 0 {
		return fmt.Errorf("timeframe_hours must be positive, got %d", c.TimeframeHours)
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval_seconds must be positive, got %s", c.CheckInterval)
	}
	if math.IsNaN(c.VolumeIncreaseThreshold) || math.IsInf(c.VolumeIncreaseThreshold, 0) {
		return fmt.Errorf("volume_increase_threshold must be a finite number")
	}
	if c.WindowBuffer < 1 {
		return fmt.Errorf("window_buffer must be >= 1, got %g", c.WindowBuffer)
	}
	if c.NegligibleVolume < 0 {
		return fmt.Errorf("negligible_volume must be >= 0, got %g", c.NegligibleVolume)
	}

	return nil
}
