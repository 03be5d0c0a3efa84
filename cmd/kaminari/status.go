// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"periph.io/x/kaminari/as3935"
	"periph.io/x/kaminari/indicator"
	"periph.io/x/kaminari/settings"
)

// flash is how long a lightning or disturber state is shown.
const flash = 500 * time.Millisecond

type sensor interface {
	Tick() (bool, error)
	LastLightningDetection(index int) (as3935.Lightning, bool)
	LastDisturberDetection() time.Time
	IsNoiseFloorLevelOutOfRange() bool
	NoiseFloorIndex() int
}

type display interface {
	Show(s indicator.State) error
}

// watcher translates sensor activity into log lines and indicator states.
type watcher struct {
	dev sensor
	led display
	now func() time.Time

	lastLightning time.Time
	lastDisturber time.Time
	noiseIndex    int
	outOfRange    bool
	shown         indicator.State
	flashUntil    time.Time
}

func (w *watcher) poll() error {
	changed, err := w.dev.Tick()
	if err != nil {
		return err
	}
	now := w.now()
	if !changed {
		if (w.shown == indicator.Lightning || w.shown == indicator.Disturber) && !now.Before(w.flashUntil) {
			return w.show(w.base())
		}
		return nil
	}

	if i := w.dev.NoiseFloorIndex(); i != w.noiseIndex {
		log.Printf("noise floor level %d -> %d", w.noiseIndex, i)
		w.noiseIndex = i
	}
	if o := w.dev.IsNoiseFloorLevelOutOfRange(); o != w.outOfRange {
		if o {
			log.Printf("noise floor level out of range")
		}
		w.outOfRange = o
	}

	if l, ok := w.dev.LastLightningDetection(0); ok && l.Time.After(w.lastLightning) {
		w.lastLightning = l.Time
		log.Printf("lightning: %s", l)
		w.flashUntil = now.Add(flash)
		return w.show(indicator.Lightning)
	}
	if t := w.dev.LastDisturberDetection(); t.After(w.lastDisturber) {
		w.lastDisturber = t
		w.flashUntil = now.Add(flash)
		return w.show(indicator.Disturber)
	}
	if now.Before(w.flashUntil) {
		return nil
	}
	return w.show(w.base())
}

func (w *watcher) base() indicator.State {
	if w.outOfRange {
		return indicator.OutOfRange
	}
	return indicator.Idle
}

func (w *watcher) show(s indicator.State) error {
	w.shown = s
	return w.led.Show(s)
}

type configurable interface {
	SetWatchdogThreshold(threshold int) error
	SetMinimumNumberOfLightning(num int) error
	SetSpikeRejection(rejection int) error
	SetOutdoorMode(outdoor bool) error
}

// applySettings pushes the persisted settings to the sensor.
func applySettings(d configurable, s settings.Settings) error {
	if err := d.SetOutdoorMode(s.OutdoorMode); err != nil {
		return err
	}
	if err := d.SetWatchdogThreshold(s.WatchdogThreshold); err != nil {
		return err
	}
	if err := d.SetMinimumNumberOfLightning(s.MinimumNumberOfLightning); err != nil {
		return err
	}
	return d.SetSpikeRejection(s.SpikeRejection)
}

// indicatorEnabled resolves the configured mode against the stored LED
// setting. In auto mode the strip is only drawn on a terminal.
func indicatorEnabled(mode string, ledEnabled, tty bool) bool {
	if !ledEnabled {
		return false
	}
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return tty
	}
}

func printDump(w io.Writer, regs [as3935.DumpSize]byte) {
	for i, v := range regs {
		_, _ = fmt.Fprintf(w, "0x%02X: 0x%02X %08b\n", i, v, v)
	}
}
