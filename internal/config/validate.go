// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"time"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	s := cfg.Sensor

	if s.IRQ == "" {
		return fmt.Errorf("sensor: irq pin is required")
	}
	// the sensor accepts up to 2 MHz and the clock must not be a multiple
	// of the antenna frequency
	if s.SPIHz <= 0 || s.SPIHz > 2000000 {
		return fmt.Errorf("sensor: spi_hz %d out of range 1..2000000", s.SPIHz)
	}
	if s.ResonanceHz <= 0 {
		return fmt.Errorf("sensor: resonance_hz must be positive")
	}
	if s.SPIHz%s.ResonanceHz == 0 {
		return fmt.Errorf("sensor: spi_hz %d is a multiple of resonance_hz %d", s.SPIHz, s.ResonanceHz)
	}

	if s.Noise.RaiseDelay < 0 || s.Noise.ReduceDelay < 0 {
		return fmt.Errorf("sensor.noise: delays must not be negative")
	}
	if s.Noise.Upper != nil && s.Noise.Lower != nil && *s.Noise.Lower > *s.Noise.Upper {
		return fmt.Errorf("sensor.noise: lower %d is above upper %d", *s.Noise.Lower, *s.Noise.Upper)
	}

	if s.Watchdog.Lower > s.Watchdog.Upper {
		return fmt.Errorf("sensor.watchdog: lower %d is above upper %d", s.Watchdog.Lower, s.Watchdog.Upper)
	}
	if s.Watchdog.Auto && s.Watchdog.Window < time.Millisecond {
		return fmt.Errorf("sensor.watchdog: window %s is below 1ms", s.Watchdog.Window)
	}

	if cfg.Settings.Path == "" {
		return fmt.Errorf("settings: path is required")
	}

	switch cfg.Indicator.Mode {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("indicator: mode %q must be auto, on or off", cfg.Indicator.Mode)
	}
	if cfg.Indicator.LEDs < 1 {
		return fmt.Errorf("indicator: leds must be at least 1")
	}

	if cfg.Poll.Interval < time.Millisecond {
		return fmt.Errorf("poll: interval %s is below 1ms", cfg.Poll.Interval)
	}

	return nil
}
