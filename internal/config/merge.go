package config

import (
	"github.com/gobwas/glob"
)

// Settings is the effective configuration for one model.
type Settings struct {
	LogsDir string
	Task    string
	Metrics []string
	Flush   FlushCfg
}

// Merge merges a loaded config on top of defaults. Scalars set in the loaded
// config override the defaults; model overrides come from the loaded config
// only.
func Merge(defaults, loaded *Config) *Config {
	out := &Config{
		LogsDir: defaults.LogsDir,
		Metrics: append([]string(nil), defaults.Metrics...),
	}
	if defaults.Flush != nil {
		f := *defaults.Flush
		out.Flush = &f
	}

	if loaded == nil {
		return out
	}

	if loaded.LogsDir != "" {
		out.LogsDir = loaded.LogsDir
	}
	if loaded.Task != "" {
		out.Task = loaded.Task
	}
	if loaded.Metrics != nil {
		out.Metrics = append([]string(nil), loaded.Metrics...)
	}
	if loaded.Flush != nil {
		out.Flush = mergeFlush(out.Flush, loaded.Flush)
	}
	out.Models = loaded.Models
	return out
}

// Effective returns the effective settings for a given model name. It starts
// with the top-level settings and then applies each override whose model
// patterns match, in order. Later overrides take precedence.
func Effective(cfg *Config, model string) Settings {
	s := Settings{
		LogsDir: cfg.LogsDir,
		Task:    cfg.Task,
		Metrics: append([]string(nil), cfg.Metrics...),
	}
	if s.LogsDir == "" {
		s.LogsDir = DefaultLogsDir
	}
	if cfg.Flush != nil {
		s.Flush = *cfg.Flush
	}
	if s.Flush.Every == 0 && s.Flush.Interval == 0 {
		s.Flush.Every = 1
	}

	for _, o := range cfg.Models {
		if !matchesAny(o.Models, model) {
			continue
		}
		if o.Task != "" {
			s.Task = o.Task
		}
		if o.Metrics != nil {
			s.Metrics = append([]string(nil), o.Metrics...)
		}
		if o.Flush != nil {
			merged := mergeFlush(&s.Flush, o.Flush)
			s.Flush = *merged
		}
	}
	return s
}

func mergeFlush(base, over *FlushCfg) *FlushCfg {
	out := FlushCfg{}
	if base != nil {
		out = *base
	}
	if over.Every != 0 {
		out.Every = over.Every
	}
	if over.Interval != 0 {
		out.Interval = over.Interval
	}
	return &out
}

// matchesAny returns true if model matches any of the given glob patterns.
func matchesAny(patterns []string, model string) bool {
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			// Skip invalid patterns silently.
			continue
		}
		if g.Match(model) {
			return true
		}
	}
	return false
}
