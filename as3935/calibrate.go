// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultResonance is the antenna frequency the sensor is designed for.
	DefaultResonance = 500 * physic.KiloHertz

	// The LCO is output on IRQ divided by this ratio while calibrating.
	lcoDivider = 128

	calibrationGate   = time.Second
	calibrationSettle = 50 * time.Millisecond
	trcoEnable        = 2 * time.Millisecond
)

// CalibrationStatus tells how trustworthy a calibration result is. None of
// the states is fatal, the tuning mask is applied in every case.
type CalibrationStatus int

const (
	CalibrationOK CalibrationStatus = iota
	// No edge was counted on IRQ. Usually the IRQ line is not connected.
	CalibrationNoInterrupts
	// The measured frequency is outside of the ±3.5% the sensor tolerates.
	CalibrationOutOfTolerance
)

func (s CalibrationStatus) String() string {
	switch s {
	case CalibrationOK:
		return "ok"
	case CalibrationNoInterrupts:
		return "no interrupts"
	case CalibrationOutOfTolerance:
		return "out of tolerance"
	default:
		return fmt.Sprintf("CalibrationStatus(%d)", int(s))
	}
}

// CalibrationResult is the outcome of Dev.Calibrate.
type CalibrationResult struct {
	Target   physic.Frequency
	Measured physic.Frequency
	// Tuning capacitor mask written to the sensor.
	Mask   uint8
	Status CalibrationStatus
}

func (r CalibrationResult) String() string {
	return fmt.Sprintf("target %s, measured %s, mask 0x%X (%s)", r.Target, r.Measured, r.Mask, r.Status)
}

// tolerance returns the accepted resonance frequency band around target.
func tolerance(target physic.Frequency) (low, high physic.Frequency) {
	return target * 1000 / 1035, target * 1035 / 1000
}

// Calibrate tunes the antenna resonator to target and calibrates both RC
// oscillators afterwards. Pass DefaultResonance unless the antenna is
// designed for another frequency.
//
// The four bit tuning mask is found by successive approximation, measuring
// the resonance for one second per bit, so the call blocks for a little more
// than four seconds. It cannot be canceled. Begin must have been called, the
// measurement relies on the IRQ edge counter.
//
// If the target cannot be reached, the closest mask is used and the result
// status tells so.
func (d *Dev) Calibrate(target physic.Frequency) (CalibrationResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := CalibrationResult{Target: target}
	if err := d.probe(); err != nil {
		return res, err
	}
	if err := d.b.write(regInterrupt, fieldDivRatio.set(0, divRatio128)); err != nil {
		return res, err
	}

	var mask byte
	var measured physic.Frequency
	for bit := 3; bit >= 0; bit-- {
		trial := mask | 1<<uint(bit)
		if err := d.b.write(regTuning, fieldTuneCap.set(tuneDisplayLCO, trial)); err != nil {
			return res, err
		}
		d.irqCount.reset()
		d.sleep(calibrationGate)
		measured = physic.Frequency(d.irqCount.load()) * lcoDivider * physic.Hertz
		// More capacitance lowers the frequency, keep the bit while still
		// above the target.
		if measured/physic.KiloHertz > target/physic.KiloHertz {
			mask = trial
		}
	}
	res.Mask = mask
	res.Measured = measured

	low, high := tolerance(target)
	switch {
	case measured == 0:
		res.Status = CalibrationNoInterrupts
		log.Printf("as3935: no interrupt during calibration, check the IRQ wiring")
	case measured < low || measured > high:
		res.Status = CalibrationOutOfTolerance
		log.Printf("as3935: calibrated frequency %s is out of tolerance (%s to %s)", measured, low, high)
	}

	// Apply the mask, stop LCO output, then calibrate SRCO and TRCO.
	if err := d.b.write(regTuning, mask); err != nil {
		return res, err
	}
	d.sleep(calibrationSettle)
	if err := d.b.write(regCalibRCO, directCommand); err != nil {
		return res, err
	}
	if err := d.b.write(regTuning, tuneDisplayTRCO|mask); err != nil {
		return res, err
	}
	d.sleep(trcoEnable)
	if err := d.b.write(regTuning, mask); err != nil {
		return res, err
	}
	d.sleep(calibrationSettle)
	if _, err := d.b.read(regInterrupt); err != nil {
		return res, err
	}
	d.irqCount.reset()

	d.calibration = res
	return res, nil
}

// Frequency returns the resonance frequency measured by the last calibration,
// or 0 if the sensor was not calibrated yet. It is a measurement and
// therefore not exact.
func (d *Dev) Frequency() physic.Frequency {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibration.Measured
}

// LastCalibration returns the result of the last calibration run.
func (d *Dev) LastCalibration() CalibrationResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibration
}
