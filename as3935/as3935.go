// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
)

const (
	// The interrupt register is valid 2 ms after the IRQ edge.
	interruptSettle = 2 * time.Millisecond
	presetSettle    = 2 * time.Millisecond
	statisticsPulse = 2 * time.Millisecond
)

// Opts holds the configuration of the driver.
type Opts struct {
	// SPI clock. The sensor accepts up to 2 MHz, the clock should not be a
	// multiple of the 500 kHz antenna frequency.
	Frequency physic.Frequency
	// Noise floor auto adjustment.
	Noise NoiseTuning
	// Watchdog threshold auto adjustment.
	Watchdog AutoWatchdog
	// Upper bound for the time End waits for the edge watcher to stop.
	EdgeTimeout time.Duration
}

// DefaultOpts is the recommended configuration.
var DefaultOpts = Opts{
	Frequency:   1400 * physic.KiloHertz,
	Noise:       DefaultNoiseTuning,
	Watchdog:    DefaultAutoWatchdog,
	EdgeTimeout: 100 * time.Millisecond,
}

// Dev is a handle to an AS3935 sensor.
//
// Methods must not be called concurrently; the owner is expected to drive
// the device from a single loop. Only the IRQ edge counting runs in the
// background.
type Dev struct {
	mu  sync.Mutex
	b   bus
	irq gpio.PinIn

	edgeTimeout time.Duration
	irqCount    counter
	stop        chan struct{}
	done        chan struct{}

	now   func() time.Time
	sleep func(time.Duration)

	responding  bool
	calibration CalibrationResult

	noise      noiseControl
	level      byte
	outdoor    bool
	levelKnown bool

	events   eventLog
	watchdog watchdogControl
}

// New opens a handle to an AS3935 connected to p, with its IRQ output
// connected to irq. The sensor itself is not touched until Begin.
func New(p spi.Port, irq gpio.PinIn, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	if irq == nil {
		return nil, errors.New("as3935: an IRQ pin is required")
	}
	c, err := p.Connect(opts.Frequency, spi.Mode1, 8)
	if err != nil {
		return nil, fmt.Errorf("as3935: %w", err)
	}
	return newDev(c, irq, opts, time.Now, time.Sleep), nil
}

func newDev(c spi.Conn, irq gpio.PinIn, opts *Opts, now func() time.Time, sleep func(time.Duration)) *Dev {
	wd := opts.Watchdog
	if !wd.valid() {
		wd = DefaultAutoWatchdog
	}
	d := &Dev{
		b:           bus{c: c},
		irq:         irq,
		edgeTimeout: opts.EdgeTimeout,
		now:         now,
		sleep:       sleep,
		responding:  true,
	}
	if d.edgeTimeout <= 0 {
		d.edgeTimeout = DefaultOpts.EdgeTimeout
	}
	nt := opts.Noise
	if nt == (NoiseTuning{}) {
		nt = DefaultNoiseTuning
	}
	t := now()
	d.noise = newNoiseControl(nt, t)
	d.watchdog = watchdogControl{AutoWatchdog: wd}
	d.watchdog.restart(t)
	d.events.clear(t)
	return d
}

func (d *Dev) String() string {
	return fmt.Sprintf("as3935{%s, %s}", d.b.c, d.irq)
}

// Begin reads the initial sensor state and starts counting IRQ edges. It
// logs a warning if the sensor does not seem to answer. Nothing is left
// running when it fails, so it can be retried.
func (d *Dev) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return errors.New("as3935: already started")
	}
	if err := d.probe(); err != nil {
		return err
	}
	if err := d.refreshNoiseFloor(); err != nil {
		return err
	}
	if err := d.irq.In(gpio.Float, gpio.RisingEdge); err != nil {
		return fmt.Errorf("as3935: IRQ pin %s: %w", d.irq, err)
	}
	d.irqCount.reset()
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.irqCount.watch(d.irq, d.edgeTimeout, d.stop, d.done)
	return nil
}

// End stops counting IRQ edges. The sensor keeps its state.
func (d *Dev) End() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop == nil {
		return nil
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	d.done = nil
	return d.irq.In(gpio.Float, gpio.NoEdge)
}

// Halt implements conn.Resource. It stops the edge watcher.
func (d *Dev) Halt() error {
	return d.End()
}

// probe checks that the sensor answers. The bus has no acknowledge, so a
// missing sensor reads as all zero (MISO pulled down) or all one (floating
// high). Neither is a valid combination of the first three registers.
// d.mu must be held.
func (d *Dev) probe() error {
	zero, ones := true, true
	for _, reg := range []byte{regAFEGain, regThreshold, regLightning} {
		v, err := d.b.read(reg)
		if err != nil {
			return err
		}
		zero = zero && v == 0x00
		ones = ones && v == 0xFF
	}
	d.responding = !zero && !ones
	if !d.responding {
		log.Printf("as3935: sensor does not respond on %s, check the SPI wiring", d.b.c)
	}
	return nil
}

// Responding reports the result of the last presence check, done by Begin and
// Calibrate.
func (d *Dev) Responding() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.responding
}

// Tick processes pending interrupts and runs the automatic adjustments. It
// must be called frequently, at least once a second. It reports whether
// anything observable has changed.
func (d *Dev) Tick() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	changed := false
	// The interrupt register clears on read, so every reported event is
	// handled even if an earlier one fails.
	var errs []error
	if d.irqCount.drain() > 0 {
		d.sleep(interruptSettle)
		v, err := d.b.readField(fieldInterrupt)
		if err != nil {
			return false, err
		}
		status := Interrupt(v)
		if status&IntNoise != 0 {
			c, err := d.noise.onNoise(now, d)
			if err != nil {
				errs = append(errs, err)
			}
			changed = changed || c
		}
		if status&IntDisturber != 0 {
			d.events.addDisturber(now)
			d.watchdog.onDisturber()
			changed = true
		}
		if status&IntLightning != 0 {
			if err := d.recordLightning(now); err != nil {
				errs = append(errs, err)
			} else {
				changed = true
			}
		}
	}

	c, err := d.noise.relax(now, d)
	if err != nil {
		errs = append(errs, err)
	}
	changed = changed || c

	c, err = d.watchdog.evaluate(now, d)
	if err != nil {
		errs = append(errs, err)
	}
	return changed || c, errors.Join(errs...)
}

// Reset sets all registers to their default values. The sensor must be
// calibrated again afterwards.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.b.write(regPresetDefault, directCommand); err != nil {
		return err
	}
	d.sleep(presetSettle)
	if _, err := d.b.read(regInterrupt); err != nil {
		return err
	}
	d.irqCount.reset()
	d.levelKnown = false
	return nil
}

// PowerDown puts the sensor into power down mode. Use Reset and Calibrate to
// wake it up again.
func (d *Dev) PowerDown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.writeField(fieldPowerDown, 1)
}

// OutdoorMode returns the last known AFE gain setting.
func (d *Dev) OutdoorMode() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.outdoor
}

// SetOutdoorMode selects the outdoor or the indoor AFE gain. This also
// changes the noise floor voltages.
func (d *Dev) SetOutdoorMode(outdoor bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := afeIndoor
	if outdoor {
		v = afeOutdoor
	}
	if err := d.b.write(regAFEGain, v); err != nil {
		return err
	}
	return d.refreshNoiseFloor()
}

// WatchdogThreshold reads the watchdog threshold, 0 to 15.
func (d *Dev) WatchdogThreshold() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.b.readField(fieldWatchdog)
	return int(v), err
}

// SetWatchdogThreshold sets the watchdog threshold. Values outside of 0 to
// 15 are ignored. The default is 2.
func (d *Dev) SetWatchdogThreshold(threshold int) error {
	if threshold < 0 || threshold > maxWatchdog {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.writeField(fieldWatchdog, byte(threshold))
}

// MinimumNumberOfLightning reads how many lightnings are required within 15
// minutes before the sensor reports one.
func (d *Dev) MinimumNumberOfLightning() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.b.readField(fieldMinLightning)
	if err != nil {
		return 0, err
	}
	return minNumLightning[v], nil
}

// SetMinimumNumberOfLightning sets the minimum number of lightnings. Only 1,
// 5, 9 and 16 are accepted, other values are ignored.
func (d *Dev) SetMinimumNumberOfLightning(num int) error {
	for i, n := range minNumLightning {
		if n == num {
			d.mu.Lock()
			defer d.mu.Unlock()
			return d.b.writeField(fieldMinLightning, byte(i))
		}
	}
	return nil
}

// SpikeRejection reads the spike rejection setting, 0 to 15.
func (d *Dev) SpikeRejection() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.b.readField(fieldSpikeRejection)
	return int(v), err
}

// SetSpikeRejection sets the spike rejection. Values outside of 0 to 15 are
// ignored. The default is 2.
func (d *Dev) SetSpikeRejection(rejection int) error {
	if rejection < 0 || rejection > maxSpike {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.writeField(fieldSpikeRejection, byte(rejection))
}

// ClearStatistics clears the statistics of the distance estimation. This is
// rarely needed.
func (d *Dev) ClearStatistics() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur, err := d.b.read(regLightning)
	if err != nil {
		return err
	}
	cur = fieldClearStats.set(cur, 0)
	if err := d.b.write(regLightning, cur); err != nil {
		return err
	}
	d.sleep(statisticsPulse)
	return d.b.write(regLightning, fieldClearStats.set(cur, 1))
}

// Dump returns the content of all registers, for diagnostics.
func (d *Dev) Dump() ([DumpSize]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.dump()
}

var _ conn.Resource = &Dev{}
