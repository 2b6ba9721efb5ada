package config

import (
	"sort"

	"github.com/san-kum/containment/internal/trial"
)

func preset(kind trial.Kind, num, frames int, tune func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Trial.Type = string(kind)
	cfg.Trial.Num = num
	cfg.Trial.TotFrames = frames
	if tune != nil {
		tune(cfg)
	}
	return cfg
}

var Presets = map[string]map[string]*Config{
	"object": {
		"quick":   preset(trial.Object, 1, 60, nil),
		"default": preset(trial.Object, 10, 200, nil),
		"long":    preset(trial.Object, 50, 400, nil),
	},
	"transition": {
		"quick": preset(trial.Transition, 1, 80, func(c *Config) {
			c.Tuning.Patience = trial.Range{Min: 20, Max: 25}
		}),
		"default": preset(trial.Transition, 10, 200, nil),
		"long": preset(trial.Transition, 50, 400, func(c *Config) {
			c.Tuning.MaxMisses = 20
		}),
	},
	"agent": {
		"quick": preset(trial.Agent, 1, 80, func(c *Config) {
			c.Tuning.Settle = trial.Range{Min: 10, Max: 20}
		}),
		"default": preset(trial.Agent, 10, 200, nil),
		"long":    preset(trial.Agent, 50, 400, nil),
	},
}

func GetPreset(kind, name string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
