// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the kaminari application configuration.
package config

import "time"

type Config struct {
	Sensor    SensorConfig    `yaml:"sensor"`
	Settings  SettingsConfig  `yaml:"settings"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Poll      PollConfig      `yaml:"poll"`
}

// ---- SENSOR ----

type SensorConfig struct {
	SPI string `yaml:"spi"` // spireg name, empty = first port
	IRQ string `yaml:"irq"` // gpioreg name

	SPIHz       int64 `yaml:"spi_hz"`
	ResonanceHz int64 `yaml:"resonance_hz"`
	Calibrate   *bool `yaml:"calibrate"` // default true

	Noise    NoiseConfig    `yaml:"noise"`
	Watchdog WatchdogConfig `yaml:"watchdog"`
}

type NoiseConfig struct {
	RaiseDelay  time.Duration `yaml:"raise_delay"`
	ReduceDelay time.Duration `yaml:"reduce_delay"`
	Upper       *int          `yaml:"upper"`
	Lower       *int          `yaml:"lower"`
}

type WatchdogConfig struct {
	Auto   bool          `yaml:"auto"`
	Upper  uint32        `yaml:"upper"`
	Lower  uint32        `yaml:"lower"`
	Window time.Duration `yaml:"window"`
}

// ---- SETTINGS RECORD ----

type SettingsConfig struct {
	Path string `yaml:"path"`
}

// ---- INDICATOR ----

type IndicatorConfig struct {
	Mode string `yaml:"mode"` // auto | on | off
	LEDs int    `yaml:"leds"`
}

// ---- POLL ----

type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
}
