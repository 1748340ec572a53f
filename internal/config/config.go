// Package config loads and saves simulation configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 1e-4
	DefaultDuration = 0.1
	DefaultGamma    = 1.4
	DefaultAlpha    = 1.0
	DefaultBeta     = 1.0
	DefaultEta      = 0.1
	DefaultSpacing  = 0.01
)

// Config describes one simulation run.
type Config struct {
	Scenario   string  `yaml:"scenario"`
	Kernel     string  `yaml:"kernel"`
	Backend    string  `yaml:"backend"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Dim        int     `yaml:"dim"`
	Viscous    bool    `yaml:"viscous"`
	Symmetrize bool    `yaml:"symmetrize"`

	Particles ParticlesConfig `yaml:"particles"`
	Coeff     CoeffConfig     `yaml:"coefficients"`
}

// ParticlesConfig controls initial particle placement.
type ParticlesConfig struct {
	// Spacing is the lattice spacing of the initial configuration.
	Spacing float64 `yaml:"spacing"`
	// HFactor scales spacing into the initial smoothing length.
	HFactor float64 `yaml:"h_factor"`
	// N caps the particle count for scenarios with a free size.
	N int `yaml:"n"`
}

// CoeffConfig carries the interaction-law constants.
type CoeffConfig struct {
	Alpha      float64 `yaml:"alpha"`
	Beta       float64 `yaml:"beta"`
	Eta        float64 `yaml:"eta"`
	Gamma      float64 `yaml:"gamma"`
	SoundSpeed float64 `yaml:"sound_speed"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario: "shocktube",
		Kernel:   "cubic",
		Backend:  "auto",
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Dim:      1,
		Viscous:  true,
		Particles: ParticlesConfig{
			Spacing: DefaultSpacing,
			HFactor: 2.0,
			N:       400,
		},
		Coeff: CoeffConfig{
			Alpha: DefaultAlpha,
			Beta:  DefaultBeta,
			Eta:   DefaultEta,
			Gamma: DefaultGamma,
		},
	}
}

// Load reads a yaml config, applying defaults for absent fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as yaml.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects configurations the solver cannot run.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	if c.Dim < 1 || c.Dim > 3 {
		return fmt.Errorf("config: dim %d outside [1,3]", c.Dim)
	}
	if c.Particles.Spacing <= 0 {
		return fmt.Errorf("config: particle spacing must be positive, got %g", c.Particles.Spacing)
	}
	if c.Coeff.Gamma <= 1 {
		return fmt.Errorf("config: gamma must exceed 1, got %g", c.Coeff.Gamma)
	}
	return nil
}
