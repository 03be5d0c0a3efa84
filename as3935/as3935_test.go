// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
)

// Register content after a preset default command.
var powerOnRegisters = map[byte]byte{
	regAFEGain:   afeIndoor,
	regThreshold: 0x22,
	regLightning: 0xC2,
	regDistance:  DistanceOutOfRange,
}

type regWrite struct {
	addr, v byte
}

// fakeSensor simulates the register file of an AS3935 behind a spi.Conn.
type fakeSensor struct {
	mu   sync.Mutex
	regs [0x40]byte
	// Pending interrupt bits, cleared when the interrupt register is read.
	status Interrupt
	writes []regWrite
	// Antenna frequency for a tuning capacitor mask, used to simulate the
	// LCO output during calibration.
	resonance func(mask byte) physic.Frequency
	// Number of upcoming transfers that fail.
	fail int
	// Reports whether a read of addr fails.
	failRead func(addr byte) bool
}

func newFakeSensor() *fakeSensor {
	f := &fakeSensor{}
	f.preset()
	return f
}

func (f *fakeSensor) preset() {
	f.regs = [0x40]byte{}
	for r, v := range powerOnRegisters {
		f.regs[r] = v
	}
}

func (f *fakeSensor) String() string { return "fake" }
func (f *fakeSensor) Duplex() conn.Duplex { return conn.Full }
func (f *fakeSensor) TxPackets(p []spi.Packet) error { return errors.New("fake: not supported") }
func (f *fakeSensor) LimitSpeed(freq physic.Frequency) error { return nil }
func (f *fakeSensor) Connect(freq physic.Frequency, mode spi.Mode, bits int) (spi.Conn, error) {
	return f, nil
}

func (f *fakeSensor) Tx(w, r []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail > 0 {
		f.fail--
		return errors.New("fake: transfer failed")
	}
	if len(w) == DumpSize+1 && w[0] == readFlag {
		copy(r[1:], f.regs[:DumpSize])
		return nil
	}
	if len(w) != 2 {
		return fmt.Errorf("fake: unexpected write %#v", w)
	}
	addr := w[0] & addrMask
	if w[0]&readFlag != 0 {
		if f.failRead != nil && f.failRead(addr) {
			return fmt.Errorf("fake: read 0x%02x failed", addr)
		}
		if len(r) != 2 {
			return fmt.Errorf("fake: unexpected read buffer %d", len(r))
		}
		v := f.regs[addr]
		if addr == regInterrupt {
			v = v&0xF0 | byte(f.status)
			f.status = 0
		}
		r[1] = v
		return nil
	}
	f.writes = append(f.writes, regWrite{addr, w[1]})
	switch addr {
	case regPresetDefault:
		f.preset()
	case regCalibRCO:
	default:
		f.regs[addr] = w[1]
	}
	return nil
}

func (f *fakeSensor) reg(addr byte) byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.regs[addr]
}

func (f *fakeSensor) set(addr, v byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[addr] = v
}

func (f *fakeSensor) raise(i Interrupt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status |= i
}

// fakeClock replaces time.Now and time.Sleep.
type fakeClock struct {
	t       time.Time
	slept   time.Duration
	onSleep func(time.Duration)
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 7, 14, 18, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	if c.onSleep != nil {
		c.onSleep(d)
	}
	c.slept += d
	c.t = c.t.Add(d)
}

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func irqPin() *gpiotest.Pin {
	return &gpiotest.Pin{N: "IRQ", EdgesChan: make(chan gpio.Level, 16)}
}

func newTestDev(t *testing.T, f *fakeSensor, opts *Opts) (*Dev, *fakeClock) {
	t.Helper()
	if opts == nil {
		opts = &DefaultOpts
	}
	clk := newFakeClock()
	d := newDev(f, irqPin(), opts, clk.now, clk.sleep)
	return d, clk
}

// interrupt simulates an IRQ edge for the given status bits.
func interrupt(d *Dev, f *fakeSensor, i Interrupt) {
	f.raise(i)
	d.irqCount.inc()
}

func TestNew(t *testing.T) {
	pb := &spitest.Playback{}
	d, err := New(pb, irqPin(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if d.String() == "" {
		t.Error("String() returned empty value")
	}
	if _, err := New(&spitest.Playback{}, nil, nil); err == nil {
		t.Error("New() without IRQ pin should fail")
	}
	if err := pb.Close(); err != nil {
		t.Error(err)
	}
}

func TestPlayback(t *testing.T) {
	for _, tc := range []struct {
		name string
		ops  []conntest.IO
		run  func(d *Dev) error
	}{
		{
			name: "SetWatchdogThreshold",
			ops: []conntest.IO{
				{W: []byte{0x41, 0x00}, R: []byte{0x00, 0x22}},
				{W: []byte{0x01, 0x25}},
			},
			run: func(d *Dev) error { return d.SetWatchdogThreshold(5) },
		},
		{
			name: "SetWatchdogThreshold out of range",
			run: func(d *Dev) error {
				if err := d.SetWatchdogThreshold(16); err != nil {
					return err
				}
				return d.SetWatchdogThreshold(-1)
			},
		},
		{
			name: "SetMinimumNumberOfLightning",
			ops: []conntest.IO{
				{W: []byte{0x42, 0x00}, R: []byte{0x00, 0xC2}},
				{W: []byte{0x02, 0xE2}},
			},
			run: func(d *Dev) error {
				if err := d.SetMinimumNumberOfLightning(7); err != nil {
					return err
				}
				return d.SetMinimumNumberOfLightning(9)
			},
		},
		{
			name: "SetSpikeRejection",
			ops: []conntest.IO{
				{W: []byte{0x42, 0x00}, R: []byte{0x00, 0xC2}},
				{W: []byte{0x02, 0xCB}},
			},
			run: func(d *Dev) error {
				if err := d.SetSpikeRejection(16); err != nil {
					return err
				}
				return d.SetSpikeRejection(11)
			},
		},
		{
			name: "Reset",
			ops: []conntest.IO{
				{W: []byte{0x3C, 0x96}},
				{W: []byte{0x43, 0x00}, R: []byte{0x00, 0x00}},
			},
			run: func(d *Dev) error { return d.Reset() },
		},
		{
			name: "PowerDown",
			ops: []conntest.IO{
				{W: []byte{0x40, 0x00}, R: []byte{0x00, 0x1C}},
				{W: []byte{0x00, 0x1D}},
			},
			run: func(d *Dev) error { return d.PowerDown() },
		},
		{
			name: "ClearStatistics",
			ops: []conntest.IO{
				{W: []byte{0x42, 0x00}, R: []byte{0x00, 0xC2}},
				{W: []byte{0x02, 0x82}},
				{W: []byte{0x02, 0xC2}},
			},
			run: func(d *Dev) error { return d.ClearStatistics() },
		},
		{
			name: "SetOutdoorMode",
			ops: []conntest.IO{
				{W: []byte{0x00, 0x1C}},
				{W: []byte{0x41, 0x00}, R: []byte{0x00, 0x22}},
				{W: []byte{0x40, 0x00}, R: []byte{0x00, 0x1C}},
			},
			run: func(d *Dev) error {
				if err := d.SetOutdoorMode(true); err != nil {
					return err
				}
				if !d.OutdoorMode() {
					return errors.New("outdoor mode not set")
				}
				return nil
			},
		},
		{
			name: "Energy",
			ops: []conntest.IO{
				{W: []byte{0x46, 0x00}, R: []byte{0x00, 0xE3}},
				{W: []byte{0x45, 0x00}, R: []byte{0x00, 0x12}},
				{W: []byte{0x44, 0x00}, R: []byte{0x00, 0x34}},
			},
			run: func(d *Dev) error {
				e, err := d.Energy()
				if err == nil && e != 0x031234 {
					err = fmt.Errorf("Energy()=0x%x, want 0x31234", e)
				}
				return err
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			pb := &spitest.Playback{Playback: conntest.Playback{Ops: tc.ops, DontPanic: true}}
			d, err := New(pb, irqPin(), nil)
			if err != nil {
				t.Fatal(err)
			}
			d.sleep = func(time.Duration) {}
			if err := tc.run(d); err != nil {
				t.Error(err)
			}
			if err := pb.Close(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestDump(t *testing.T) {
	w := make([]byte, DumpSize+1)
	w[0] = 0x40
	r := make([]byte, DumpSize+1)
	for i := range DumpSize {
		r[i+1] = byte(i)
	}
	pb := &spitest.Playback{Playback: conntest.Playback{Ops: []conntest.IO{{W: w, R: r}}, DontPanic: true}}
	d, err := New(pb, irqPin(), nil)
	if err != nil {
		t.Fatal(err)
	}
	dump, err := d.Dump()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(r[1:], dump[:]); diff != "" {
		t.Errorf("Dump() difference (-want +got):\n%s", diff)
	}
}

func TestBusError(t *testing.T) {
	pb := &spitest.Playback{Playback: conntest.Playback{DontPanic: true}}
	d, err := New(pb, irqPin(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.WatchdogThreshold(); err == nil {
		t.Error("WatchdogThreshold() should report the bus error")
	}
}

func TestBeginEnd(t *testing.T) {
	f := newFakeSensor()
	f.set(regAFEGain, afeOutdoor)
	f.set(regThreshold, 0x52)
	d, _ := newTestDev(t, f, nil)
	if err := d.Begin(); err != nil {
		t.Fatal(err)
	}
	if err := d.Begin(); err == nil {
		t.Error("second Begin() should fail")
	}
	if !d.Responding() {
		t.Error("sensor should respond")
	}
	if !d.OutdoorMode() {
		t.Error("outdoor mode not read back")
	}
	if got := d.NoiseFloorIndex(); got != 5 {
		t.Errorf("NoiseFloorIndex()=%d, want 5", got)
	}
	if err := d.End(); err != nil {
		t.Error(err)
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
}

func TestBeginRetry(t *testing.T) {
	f := newFakeSensor()
	f.fail = 1
	d, _ := newTestDev(t, f, nil)
	if err := d.Begin(); err == nil {
		t.Fatal("Begin() should report the bus error")
	}
	if d.stop != nil {
		t.Fatal("edge watcher left running after a failed Begin()")
	}
	if err := d.Begin(); err != nil {
		t.Fatalf("Begin() after a transient error: %v", err)
	}
	if err := d.Halt(); err != nil {
		t.Error(err)
	}
}

func TestProbe(t *testing.T) {
	for _, tc := range []struct {
		name string
		fill byte
		want bool
	}{
		{name: "zero", fill: 0x00, want: false},
		{name: "floating", fill: 0xFF, want: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFakeSensor()
			for _, r := range []byte{regAFEGain, regThreshold, regLightning} {
				f.set(r, tc.fill)
			}
			d, _ := newTestDev(t, f, nil)
			if err := d.Begin(); err != nil {
				t.Fatal(err)
			}
			defer func() { _ = d.End() }()
			if got := d.Responding(); got != tc.want {
				t.Errorf("Responding()=%t, want %t", got, tc.want)
			}
		})
	}
}

func TestAccessors(t *testing.T) {
	f := newFakeSensor()
	d, _ := newTestDev(t, f, nil)

	if err := d.SetWatchdogThreshold(7); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.WatchdogThreshold(); v != 7 {
		t.Errorf("WatchdogThreshold()=%d, want 7", v)
	}
	if f.reg(regThreshold) != 0x27 {
		t.Errorf("noise floor level clobbered: 0x%02x", f.reg(regThreshold))
	}

	if err := d.SetMinimumNumberOfLightning(16); err != nil {
		t.Fatal(err)
	}
	if err := d.SetMinimumNumberOfLightning(7); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.MinimumNumberOfLightning(); v != 16 {
		t.Errorf("MinimumNumberOfLightning()=%d, want 16", v)
	}

	if err := d.SetSpikeRejection(9); err != nil {
		t.Fatal(err)
	}
	if v, _ := d.SpikeRejection(); v != 9 {
		t.Errorf("SpikeRejection()=%d, want 9", v)
	}
	if v, _ := d.MinimumNumberOfLightning(); v != 16 {
		t.Errorf("spike rejection clobbered minimum lightnings: %d", v)
	}

	f.set(regDistance, 0xC5)
	if v, _ := d.EstimatedDistance(); v != 5 {
		t.Errorf("EstimatedDistance()=%d, want 5", v)
	}
}

func TestTickNothing(t *testing.T) {
	f := newFakeSensor()
	d, clk := newTestDev(t, f, nil)
	changed, err := d.Tick()
	if err != nil || changed {
		t.Errorf("Tick()=%t, %v", changed, err)
	}
	if len(f.writes) != 0 || clk.slept != 0 {
		t.Errorf("idle Tick() accessed the sensor: %v", f.writes)
	}
}

func TestResetClearsCounter(t *testing.T) {
	f := newFakeSensor()
	d, _ := newTestDev(t, f, nil)
	f.set(regThreshold, 0x77)
	d.irqCount.inc()
	if err := d.Reset(); err != nil {
		t.Fatal(err)
	}
	if d.irqCount.load() != 0 {
		t.Error("Reset() should clear the interrupt counter")
	}
	if f.reg(regThreshold) != 0x22 {
		t.Errorf("registers not reset: 0x%02x", f.reg(regThreshold))
	}
}
