package config

import (
	"encoding/json"
	"errors"
	"fmt"
)

// LoadConfig parses a JSON machine description and fills in defaults for
// any field left at its zero value.
func LoadConfig(data []byte) (*MachineConfig, error) {
	cfg := &MachineConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in machine-wide fields a minimal config may omit.
func applyDefaults(cfg *MachineConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "cartesian"
	}
	if cfg.CoreFactor == 0 {
		cfg.CoreFactor = 1
	}
	if cfg.DefaultVelocity == 0 {
		cfg.DefaultVelocity = 50
	}
	if cfg.DefaultAccel == 0 {
		cfg.DefaultAccel = 500
	}
	if cfg.TravelAcceleration == 0 {
		cfg.TravelAcceleration = cfg.DefaultAccel
	}
	if cfg.MaxXYJerk == 0 {
		cfg.MaxXYJerk = 10
	}
	if cfg.MaxZJerk == 0 {
		cfg.MaxZJerk = 0.4
	}
	if cfg.MinFeedrate == 0 {
		cfg.MinFeedrate = 0
	}
	if cfg.MinTravelFeedrate == 0 {
		cfg.MinTravelFeedrate = 0
	}
	if cfg.MinSegmentTimeUS == 0 {
		cfg.MinSegmentTimeUS = 20000
	}
	if cfg.RingBufferCapacity == 0 {
		cfg.RingBufferCapacity = 16
	}
	for i := range cfg.Tools {
		t := &cfg.Tools[i]
		if t.MaxEJerk == 0 {
			t.MaxEJerk = 5
		}
		if t.RetractAcceleration == 0 {
			t.RetractAcceleration = cfg.DefaultAccel
		}
	}
	if len(cfg.Tools) == 0 {
		cfg.Tools = []ToolConfig{{StepsPerMM: 100, MaxEJerk: 5, RetractAcceleration: cfg.DefaultAccel}}
	}
}

// Validate checks invariants the planner relies on: a power-of-two ring
// buffer and at least one tool.
func Validate(cfg *MachineConfig) error {
	if cfg.RingBufferCapacity <= 0 || cfg.RingBufferCapacity&(cfg.RingBufferCapacity-1) != 0 {
		return fmt.Errorf("config: ring buffer capacity %d is not a power of two", cfg.RingBufferCapacity)
	}
	if len(cfg.Tools) == 0 {
		return errors.New("config: at least one tool must be configured")
	}
	switch cfg.Mode {
	case "cartesian", "corexy", "coreyx", "corexz", "corezx":
	default:
		return fmt.Errorf("config: unknown kinematics mode %q", cfg.Mode)
	}
	return nil
}

// DefaultCartesianConfig returns a fully populated example configuration
// for a small Cartesian machine, useful for tests and demos.
func DefaultCartesianConfig() *MachineConfig {
	cfg := &MachineConfig{
		Mode: "cartesian",
		Axes: map[string]AxisConfig{
			"X": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000, HomingVel: 30, MinPosition: 0, MaxPosition: 220},
			"Y": {StepsPerMM: 80, MaxVelocity: 300, MaxAccel: 3000, HomingVel: 30, MinPosition: 0, MaxPosition: 220},
			"Z": {StepsPerMM: 400, MaxVelocity: 5, MaxAccel: 100, HomingVel: 5, MinPosition: 0, MaxPosition: 250},
		},
		Endstops: map[string]EndstopConfig{
			"X-min": {Pin: "PA0"},
			"Y-min": {Pin: "PA1"},
			"Z-min": {Pin: "PA2"},
		},
		Heaters: map[string]HeaterConfig{
			"extruder": {MinTemp: 10, MaxTemp: 280, MaxPower: 1.0, MinExtrudeTemp: 170},
		},
		Tools:              []ToolConfig{{StepsPerMM: 100, MaxEJerk: 5, RetractAcceleration: 3000, MaxExtrudeLength: 600}},
		DefaultVelocity:    50,
		DefaultAccel:       1000,
		TravelAcceleration: 2000,
		MaxXYJerk:          10,
		MaxZJerk:           0.4,
		RingBufferCapacity: 16,
	}
	applyDefaults(cfg)
	return cfg
}

// DefaultCoreXYConfig returns an example configuration for a belt-coupled
// CoreXY head, sharing the same axis/extruder limits as the Cartesian
// default but with the kinematics mode switched over.
func DefaultCoreXYConfig() *MachineConfig {
	cfg := DefaultCartesianConfig()
	cfg.Mode = "corexy"
	cfg.Axes["A"] = cfg.Axes["X"]
	cfg.Axes["B"] = cfg.Axes["Y"]
	delete(cfg.Axes, "X")
	delete(cfg.Axes, "Y")
	return cfg
}
