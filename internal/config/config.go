// Package config loads the boot configuration: machine geometry, the
// task manifest, trace storage, and logging.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full boot configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Machine MachineConfig `yaml:"machine"`
	Trace   TraceConfig   `yaml:"trace"`
	Tasks   []TaskConfig  `yaml:"tasks"`
}

// LogConfig controls host-side logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// MachineConfig sets the emulated machine geometry.
type MachineConfig struct {
	MemBytes    uint64 `yaml:"mem_bytes"`
	TimerCycles uint64 `yaml:"timer_cycles"` // 0 disables preemption
	StackBytes  uint64 `yaml:"stack_bytes"`
}

// TraceConfig controls the activation trace store.
type TraceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	DBPath   string `yaml:"db_path"`   // ":memory:" for testing
	HTTPAddr string `yaml:"http_addr"` // empty disables the HTTP surface
}

// TaskConfig describes one entry in the boot task manifest. Kind names
// a registered program; Budget 0 takes the scheduler default.
type TaskConfig struct {
	Name   string `yaml:"name"`
	Kind   string `yaml:"kind"`
	Budget uint64 `yaml:"budget"`
	Arg    uint64 `yaml:"arg"`
}

// Default returns the configuration the OS boots with when no file is
// given: a preemptive machine and the demo task set.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Machine: MachineConfig{
			MemBytes:    1 << 20,
			TimerCycles: 10_000,
			StackBytes:  16 * 1024,
		},
		Trace: TraceConfig{DBPath: ":memory:"},
		Tasks: []TaskConfig{
			{Name: "greeter", Kind: "greet", Arg: 3},
			{Name: "counter", Kind: "count"},
			{Name: "hog", Kind: "hog"},
		},
	}
}

// Load reads a YAML file over the defaults. Absent fields keep their
// default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Machine.MemBytes == 0 {
		return fmt.Errorf("machine.mem_bytes must be positive")
	}
	if c.Machine.StackBytes == 0 {
		return fmt.Errorf("machine.stack_bytes must be positive")
	}
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("tasks[%d]: name is required", i)
		}
		if t.Kind == "" {
			return fmt.Errorf("tasks[%d] (%s): kind is required", i, t.Name)
		}
	}
	return nil
}
