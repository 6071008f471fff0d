// Package config loads and merges LookOutCV configuration files.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration.
type Config struct {
	LogsDir string     `yaml:"logs-dir"`
	Task    string     `yaml:"task"`
	Flush   *FlushCfg  `yaml:"flush"`
	Metrics []string   `yaml:"metrics"`
	Models  []Override `yaml:"models"`
}

// FlushCfg controls when buffered records reach disk.
type FlushCfg struct {
	// Every flushes after this many buffered records; 1 flushes each record.
	Every int `yaml:"every"`
	// Interval flushes on a timer regardless of buffer size; 0 disables it.
	Interval Duration `yaml:"interval"`
}

// Override applies task, metric, and flush settings to models matching glob
// patterns.
type Override struct {
	Models  []string  `yaml:"models"`
	Task    string    `yaml:"task"`
	Metrics []string  `yaml:"metrics"`
	Flush   *FlushCfg `yaml:"flush"`
}

// Duration is a time.Duration that unmarshals from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements custom YAML unmarshalling for Duration.
// It accepts a duration string ("500ms", "5s") or a bare integer of seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var secs int
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs) * time.Second)
		return nil
	}

	return fmt.Errorf("flush interval must be a duration string or seconds, got %v", value.Kind)
}

// Std returns the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }
