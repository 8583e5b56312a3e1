// Package config loads the server configuration from a YAML file with flag
// and environment overrides.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server's settings.
type Config struct {
	Server struct {
		Port int    `yaml:"port"`
		Host string `yaml:"host"`
	} `yaml:"server"`

	Log struct {
		Level   string `yaml:"level"` // debug|info|warn|error
		Verbose bool   `yaml:"verbose"`
	} `yaml:"log"`

	OTP struct {
		// TTLSeconds is the verification-code lifetime, default 300 (5 min).
		TTLSeconds int `yaml:"ttl_seconds"`
	} `yaml:"otp"`

	Loyalty struct {
		// RewardPercent is the default reward rate for stores that have not
		// configured their own.
		RewardPercent int64 `yaml:"reward_percentage"`
	} `yaml:"loyalty"`

	// SeedFile optionally points at a JSON fixture loaded into the store at
	// startup.
	SeedFile string `yaml:"seed_file"`

	// Debug mounts the /debug/* control surface (state load, reset, time
	// control). Never enable outside development.
	Debug bool `yaml:"debug"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8081
	cfg.Server.Host = "0.0.0.0"
	cfg.Log.Level = "info"
	cfg.OTP.TTLSeconds = 300
	cfg.Loyalty.RewardPercent = 5
	return cfg
}

// Load reads the config file at path (if it exists) over the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// ParseFlags parses CLI flags, loads the config file, and applies overrides.
// The PORT env var is honored when no -port flag is given.
func ParseFlags() (*Config, error) {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		port       = flag.Int("port", 0, "HTTP listen port (overrides config)")
		seedFile   = flag.String("seed-file", "", "Path to JSON fixture for initial state")
		verbose    = flag.Bool("verbose", false, "Enable request/response logging")
		debug      = flag.Bool("debug", false, "Mount the /debug control surface")
	)
	flag.Parse()

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, err
	}

	if *port != 0 {
		cfg.Server.Port = *port
	} else if p := os.Getenv("PORT"); p != "" {
		fmt.Sscanf(p, "%d", &cfg.Server.Port)
	}
	if *seedFile != "" {
		cfg.SeedFile = *seedFile
	}
	if *verbose {
		cfg.Log.Verbose = true
	}
	if *debug {
		cfg.Debug = true
	}

	return cfg, nil
}
