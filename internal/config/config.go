// Package config resolves submission inputs from CLI flags, an optional YAML
// config file, and BELSSB_* environment variables, in that priority order.
package config

import (
	"fmt"
	"os"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"belssb/internal/readings"
)

// Config holds every user-supplied input for one submission. All fields are
// strings; validation happens later in the readings package.
type Config struct {
	Account string `yaml:"account"`
	Tariff  string `yaml:"tariff"`
	Day     string `yaml:"day"`
	Night   string `yaml:"night"`
	Peak    string `yaml:"peak"`
	Email   string `yaml:"email"`
	Phone   string `yaml:"phone"`
}

// LoadFile reads a YAML config file. A missing file is not an error: the
// config file is optional and the other sources may cover everything.
func LoadFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// FromEnv collects the BELSSB_* environment variables.
func FromEnv() Config {
	return Config{
		Account: os.Getenv("BELSSB_ACCOUNT"),
		Tariff:  os.Getenv("BELSSB_TARIFF"),
		Day:     os.Getenv("BELSSB_DAY"),
		Night:   os.Getenv("BELSSB_NIGHT"),
		Peak:    os.Getenv("BELSSB_PEAK"),
		Email:   os.Getenv("BELSSB_EMAIL"),
		Phone:   os.Getenv("BELSSB_PHONE"),
	}
}

// Resolve layers the three sources per field: a field empty on the CLI falls
// through to the config file, then to the environment. Tariff additionally
// falls back to the single-rate default.
func Resolve(cli, file, env Config) (Config, error) {
	out := cli
	// mergo.Merge without WithOverride only fills fields still empty in out.
	if err := mergo.Merge(&out, file); err != nil {
		return out, fmt.Errorf("merge config file values: %w", err)
	}
	if err := mergo.Merge(&out, env); err != nil {
		return out, fmt.Errorf("merge environment values: %w", err)
	}
	if out.Tariff == "" {
		out.Tariff = string(readings.TariffSingle)
	}
	return out, nil
}
