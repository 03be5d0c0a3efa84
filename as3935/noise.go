// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"time"

	"periph.io/x/conn/v3/physic"
)

// NoiseTuning controls the automatic noise floor adjustment.
//
// Every accepted "noise too high" interrupt increments a balance, every quiet
// ReduceDelay period decrements it. The noise floor level is raised when the
// balance goes above Upper and lowered when it goes below Lower, and the
// balance is then put back on the bound.
type NoiseTuning struct {
	// Minimum time between two accepted noise interrupts.
	RaiseDelay time.Duration
	// Time without noise level change before the balance is decremented.
	ReduceDelay time.Duration
	// Hysteresis bounds of the balance.
	Upper int
	Lower int
}

// DefaultNoiseTuning raises quickly and relaxes slowly.
var DefaultNoiseTuning = NoiseTuning{
	RaiseDelay:  time.Minute,
	ReduceDelay: 10 * time.Minute,
	Upper:       1,
	Lower:       -1,
}

// floorStepper moves the device's noise floor level by one step. It reports
// false if the level was already at its rail.
type floorStepper interface {
	stepNoiseFloor(up bool) (bool, error)
}

// noiseControl is the hysteresis state of the automatic noise floor
// adjustment. The balance is only modified together with an attempted
// device write.
type noiseControl struct {
	NoiseTuning
	balance    int
	lastChange time.Time
	lastRaise  time.Time
	outOfRange bool
}

func newNoiseControl(t NoiseTuning, now time.Time) noiseControl {
	return noiseControl{NoiseTuning: t, lastChange: now, lastRaise: now}
}

// onNoise handles a "noise too high" interrupt received at now.
func (n *noiseControl) onNoise(now time.Time, f floorStepper) (bool, error) {
	if now.Sub(n.lastRaise) < n.RaiseDelay {
		return false, nil
	}
	n.lastChange = now
	n.lastRaise = now
	n.balance++
	if n.balance <= n.Upper {
		return false, nil
	}
	n.balance--
	raised, err := f.stepNoiseFloor(true)
	if err != nil {
		return false, err
	}
	n.outOfRange = !raised
	return true, nil
}

// relax lowers the noise floor level again after a quiet period.
func (n *noiseControl) relax(now time.Time, f floorStepper) (bool, error) {
	if now.Sub(n.lastChange) < n.ReduceDelay {
		return false, nil
	}
	n.lastChange = now
	n.balance--
	if n.balance >= n.Lower {
		return false, nil
	}
	n.balance++
	if n.outOfRange {
		// The last raise failed, so the level is still where it was.
		n.outOfRange = false
		return true, nil
	}
	if _, err := f.stepNoiseFloor(false); err != nil {
		return false, err
	}
	return true, nil
}

// noiseLevel converts a noise floor level index into the noise voltage.
func noiseLevel(index byte, outdoor bool) physic.ElectricPotential {
	levels := indoorLevels
	if outdoor {
		levels = outdoorLevels
	}
	return physic.ElectricPotential(levels[index&maxNoiseFloor]) * physic.MicroVolt
}

// stepNoiseFloor implements floorStepper. d.mu must be held.
func (d *Dev) stepNoiseFloor(up bool) (bool, error) {
	cur, err := d.b.read(regThreshold)
	if err != nil {
		return false, err
	}
	level := int(fieldNoiseFloor.get(cur))
	if up {
		level++
	} else {
		level--
	}
	applied := false
	if level >= 0 && level <= maxNoiseFloor {
		if err := d.b.write(regThreshold, fieldNoiseFloor.set(cur, byte(level))); err != nil {
			return false, err
		}
		applied = true
	}
	return applied, d.refreshNoiseFloor()
}

// refreshNoiseFloor reads back the noise floor level and the outdoor mode.
// d.mu must be held.
func (d *Dev) refreshNoiseFloor() error {
	level, err := d.b.readField(fieldNoiseFloor)
	if err != nil {
		return err
	}
	gain, err := d.b.readField(fieldGain)
	if err != nil {
		return err
	}
	d.level = level
	d.outdoor = gain == gainOutdoor
	d.levelKnown = true
	return nil
}

// RaiseNoiseFloorLevel makes the sensor less sensitive to noise, and also to
// lightnings. It returns false if the highest level was already set.
//
// The driver adjusts the level on its own, so this is only needed for manual
// tuning.
func (d *Dev) RaiseNoiseFloorLevel() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepNoiseFloor(true)
}

// ReduceNoiseFloorLevel makes the sensor more sensitive to lightnings, and
// also to noise. It returns false if the lowest level was already set.
func (d *Dev) ReduceNoiseFloorLevel() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stepNoiseFloor(false)
}

// NoiseFloorLevel returns the current noise floor level as continuous input
// noise voltage (µVrms).
func (d *Dev) NoiseFloorLevel() (physic.ElectricPotential, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.levelKnown {
		if err := d.refreshNoiseFloor(); err != nil {
			return 0, err
		}
	}
	return noiseLevel(d.level, d.outdoor), nil
}

// NoiseFloorIndex returns the last known noise floor register value, 0 to 7.
func (d *Dev) NoiseFloorIndex() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int(d.level)
}

// IsNoiseFloorLevelOutOfRange reports whether the automatic adjustment wanted
// to raise the level above its maximum. The sensor does not work reliably
// while this is the case.
func (d *Dev) IsNoiseFloorLevelOutOfRange() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.noise.outOfRange
}
