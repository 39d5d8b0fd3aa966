// Package config reads the rvsim TOML configuration file.
package config

import (
	"errors"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/rvsim/hart"
	"github.com/ezrec/rvsim/mem"
	"github.com/ezrec/rvsim/translate"
)

var f = translate.From

var (
	ErrCapacity = errors.New(f("memory capacity must be a non-zero multiple of the page size"))
)

// Memory configures the guest address space.
type Memory struct {
	Capacity uint64 `toml:"capacity"` // Bytes of guest memory.
}

// Hart configures the execution loop.
type Hart struct {
	Mode       string `toml:"mode"`        // "simple" or "none".
	TraceLimit int    `toml:"trace_limit"` // Words listed by the trace command.
}

// Stage lists staging scripts run after the image is loaded.
type Stage struct {
	Scripts []string `toml:"scripts"`
}

// Config is the rvsim configuration.
type Config struct {
	Verbose bool   `toml:"verbose"`
	Memory  Memory `toml:"memory"`
	Hart    Hart   `toml:"hart"`
	Stage   Stage  `toml:"stage"`
}

// Default returns the configuration used without a file.
func Default() Config {
	return Config{
		Memory: Memory{Capacity: mem.DEFAULT_CAPACITY},
		Hart:   Hart{Mode: "simple", TraceLimit: 64},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (cfg Config, err error) {
	cfg = Default()
	if path == "" {
		return
	}

	_, err = toml.DecodeFile(path, &cfg)
	if err != nil {
		return
	}

	err = cfg.Validate()
	return
}

// Decode parses TOML text over the defaults.
func Decode(text string) (cfg Config, err error) {
	cfg = Default()

	_, err = toml.Decode(text, &cfg)
	if err != nil {
		return
	}

	err = cfg.Validate()
	return
}

// Validate checks field ranges.
func (cfg *Config) Validate() (err error) {
	if cfg.Memory.Capacity == 0 || cfg.Memory.Capacity%mem.PAGE_SIZE != 0 {
		return ErrCapacity
	}

	_, err = cfg.Mode()
	return
}

// Mode returns the configured hart mode.
func (cfg *Config) Mode() (hart.Mode, error) {
	return hart.ParseMode(cfg.Hart.Mode)
}
