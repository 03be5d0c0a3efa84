// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import "time"

// AutoWatchdog lets the driver adjust the watchdog threshold to the disturber
// rate. Once per Window the disturbers per minute are compared to Upper and
// Lower, and the threshold is raised or reduced by one step.
type AutoWatchdog struct {
	Enabled bool
	// Disturbers per minute above which the threshold is raised.
	Upper uint32
	// Disturbers per minute below which the threshold is reduced.
	Lower uint32
	Window time.Duration
}

// DefaultAutoWatchdog is disabled.
var DefaultAutoWatchdog = AutoWatchdog{
	Upper:  30,
	Lower:  5,
	Window: time.Minute,
}

func (a AutoWatchdog) valid() bool {
	return a.Lower <= a.Upper && a.Window >= time.Millisecond
}

type thresholdStepper interface {
	stepWatchdog(up bool) (bool, error)
}

type watchdogControl struct {
	AutoWatchdog
	disturbers uint32
	start      time.Time
}

func (w *watchdogControl) onDisturber() {
	w.disturbers++
}

// restart begins a new measuring window at now.
func (w *watchdogControl) restart(now time.Time) {
	w.disturbers = 0
	w.start = now
}

// evaluate adjusts the threshold once the window has elapsed. It reports
// whether the threshold was changed.
func (w *watchdogControl) evaluate(now time.Time, s thresholdStepper) (bool, error) {
	if !w.Enabled {
		return false, nil
	}
	elapsed := now.Sub(w.start)
	ms := elapsed.Milliseconds()
	if elapsed < w.Window || ms <= 0 {
		return false, nil
	}
	rate := uint32(int64(w.disturbers) * 60000 / ms)
	w.restart(now)
	switch {
	case rate > w.Upper:
		return s.stepWatchdog(true)
	case rate < w.Lower:
		return s.stepWatchdog(false)
	}
	return false, nil
}

// stepWatchdog implements thresholdStepper. d.mu must be held.
func (d *Dev) stepWatchdog(up bool) (bool, error) {
	cur, err := d.b.read(regThreshold)
	if err != nil {
		return false, err
	}
	v := int(fieldWatchdog.get(cur))
	if up {
		v++
	} else {
		v--
	}
	if v < 0 || v > maxWatchdog {
		return false, nil
	}
	if err := d.b.write(regThreshold, fieldWatchdog.set(cur, byte(v))); err != nil {
		return false, err
	}
	return true, nil
}

// RaiseWatchdogThreshold makes the sensor less sensitive to disturbers, and
// also to lightnings. It returns false if the threshold is at its maximum.
func (d *Dev) RaiseWatchdogThreshold() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepWatchdog(true)
}

// ReduceWatchdogThreshold makes the sensor more sensitive to lightnings, and
// also to disturbers. It returns false if the threshold is at its minimum.
func (d *Dev) ReduceWatchdogThreshold() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepWatchdog(false)
}

// AutoWatchdog returns the current automatic watchdog settings.
func (d *Dev) AutoWatchdog() AutoWatchdog {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.watchdog.AutoWatchdog
}

// SetAutoWatchdog replaces the automatic watchdog settings and starts a new
// measuring window. Settings with Lower above Upper or without a window are
// ignored.
func (d *Dev) SetAutoWatchdog(a AutoWatchdog) {
	if !a.valid() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.watchdog.AutoWatchdog = a
	d.watchdog.restart(d.now())
}
