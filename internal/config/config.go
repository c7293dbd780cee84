// Package config defines the fixed per-pass configuration record described
// in spec.md §9 ("Dynamic configuration") and loads it from a YAML file
// (mirroring the teacher's configx YAML layering) with environment variables
// supplying credentials and the store connection string.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PassConfig is the enumerated, bounded configuration record every pass
// entry point accepts. Fields not meaningful to a given pass are left zero.
type PassConfig struct {
	Workers      int           `yaml:"workers"`
	FlushEvery   int           `yaml:"flush_every"`
	DelayMin     time.Duration `yaml:"delay_min"`
	DelayMax     time.Duration `yaml:"delay_max"`
	MinComposite float64       `yaml:"min_composite"`
	CacheDays    int           `yaml:"cache_days"`
	ForcePlanet  bool          `yaml:"force_planet"`
	ForceUSPS    bool          `yaml:"force_usps"`
	NDVIWeight   float64       `yaml:"ndvi_weight"`
	FEMAWeight   float64       `yaml:"fema_weight"`
	DryRun       bool          `yaml:"dry_run"`
	Limit        int           `yaml:"limit"`
	PropertyClass string       `yaml:"property_class"`
}

// Validate enforces the bounded ranges the design notes fix for each field.
func (c PassConfig) Validate() error {
	if c.Workers < 1 || c.Workers > 64 {
		return fmt.Errorf("workers out of range [1,64]: %d", c.Workers)
	}
	if c.FlushEvery < 1 || c.FlushEvery > 10_000 {
		return fmt.Errorf("flush_every out of range [1,10000]: %d", c.FlushEvery)
	}
	if c.DelayMin < 0 || c.DelayMin > 600*time.Second {
		return fmt.Errorf("delay_min out of range [0,600s]: %s", c.DelayMin)
	}
	if c.DelayMax < 0 || c.DelayMax > 600*time.Second {
		return fmt.Errorf("delay_max out of range [0,600s]: %s", c.DelayMax)
	}
	if c.MinComposite < 0 || c.MinComposite > 10 {
		return fmt.Errorf("min_composite out of range [0,10]: %f", c.MinComposite)
	}
	if c.CacheDays < 0 || c.CacheDays > 365 {
		return fmt.Errorf("cache_days out of range [0,365]: %d", c.CacheDays)
	}
	return nil
}

// Defaults returns the config record defaults named across spec.md §6/§9.
func Defaults() PassConfig {
	return PassConfig{
		Workers:      10,
		FlushEvery:   100,
		DelayMin:     55 * time.Second,
		DelayMax:     65 * time.Second,
		MinComposite: 7.0,
		CacheDays:    60,
		NDVIWeight:   0.70,
		FEMAWeight:   0.30,
	}
}

// Load reads and validates a YAML config file, overlaying it onto Defaults().
func Load(path string) (PassConfig, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Credentials holds per-credential pairs for the address-validation API,
// sourced from CRED_ID_N / CRED_SECRET_N environment variables.
type Credentials struct {
	ID     string
	Secret string
}

// LoadCredentials reads CRED_ID_<n> / CRED_SECRET_<n> pairs for the given
// account numbers (e.g. "1,3" from --accounts).
func LoadCredentials(accounts []string) ([]Credentials, error) {
	creds := make([]Credentials, 0, len(accounts))
	for _, n := range accounts {
		id := os.Getenv("CRED_ID_" + n)
		secret := os.Getenv("CRED_SECRET_" + n)
		if id == "" || secret == "" {
			return nil, fmt.Errorf("missing CRED_ID_%s/CRED_SECRET_%s", n, n)
		}
		creds = append(creds, Credentials{ID: id, Secret: secret})
	}
	if len(creds) == 0 {
		return nil, fmt.Errorf("no credentials configured")
	}
	return creds, nil
}

// StoreDSN reads the store connection string from the environment.
func StoreDSN() (string, error) {
	dsn := os.Getenv("DISTRESSSCAN_DATABASE_URL")
	if dsn == "" {
		return "", fmt.Errorf("DISTRESSSCAN_DATABASE_URL is not set")
	}
	return dsn, nil
}
