// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import "time"

const (
	DefaultIRQ          = "GPIO17"
	DefaultSPIHz        = 1400000
	DefaultResonanceHz  = 500000
	DefaultSettingsPath = "kaminari.cfg"
	DefaultLEDs         = 8
	DefaultInterval     = 100 * time.Millisecond
)

// Normalize fills unset fields with defaults.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	s := &cfg.Sensor
	if s.IRQ == "" {
		s.IRQ = DefaultIRQ
	}
	if s.SPIHz == 0 {
		s.SPIHz = DefaultSPIHz
	}
	if s.ResonanceHz == 0 {
		s.ResonanceHz = DefaultResonanceHz
	}
	if s.Calibrate == nil {
		v := true
		s.Calibrate = &v
	}

	// noise tuning: zero durations keep the driver defaults
	if s.Noise.RaiseDelay == 0 {
		s.Noise.RaiseDelay = time.Minute
	}
	if s.Noise.ReduceDelay == 0 {
		s.Noise.ReduceDelay = 10 * time.Minute
	}
	if s.Noise.Upper == nil {
		v := 1
		s.Noise.Upper = &v
	}
	if s.Noise.Lower == nil {
		v := -1
		s.Noise.Lower = &v
	}

	if s.Watchdog.Upper == 0 && s.Watchdog.Lower == 0 {
		s.Watchdog.Upper = 30
		s.Watchdog.Lower = 5
	}
	if s.Watchdog.Window == 0 {
		s.Watchdog.Window = time.Minute
	}

	if cfg.Settings.Path == "" {
		cfg.Settings.Path = DefaultSettingsPath
	}

	if cfg.Indicator.Mode == "" {
		cfg.Indicator.Mode = "auto"
	}
	if cfg.Indicator.LEDs == 0 {
		cfg.Indicator.LEDs = DefaultLEDs
	}

	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = DefaultInterval
	}
}
