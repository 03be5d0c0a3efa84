// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

const (
	// MaxDetections is the number of lightnings kept by the driver.
	MaxDetections = 64

	// DistanceOutOfRange is reported as distance when the storm is too far
	// away for an estimation.
	DistanceOutOfRange = 0x3F
)

// Lightning is a single lightning detection.
type Lightning struct {
	// Time of the detection.
	Time time.Time
	// Energy has no physical unit, it is only meaningful relative to other
	// detections.
	Energy uint32
	// Estimated distance to the head of the storm in km. 1 means overhead.
	Distance uint8
}

// OutOfRange reports whether no distance could be estimated.
func (l Lightning) OutOfRange() bool {
	return l.Distance == DistanceOutOfRange
}

// Kilometres returns the estimated distance.
func (l Lightning) Kilometres() physic.Distance {
	return physic.Distance(l.Distance) * 1000 * physic.Metre
}

func (l Lightning) String() string {
	if l.OutOfRange() {
		return fmt.Sprintf("%s energy %d, out of range", l.Time.Format(time.RFC3339), l.Energy)
	}
	return fmt.Sprintf("%s energy %d, %d km", l.Time.Format(time.RFC3339), l.Energy, l.Distance)
}

// eventLog keeps the last lightnings, newest first, and counts disturbers.
//
// ring[head] is the newest entry, older entries follow with increasing index
// modulo MaxDetections.
type eventLog struct {
	ring [MaxDetections]Lightning
	head int
	n    int

	disturbers    uint32
	windowStart   time.Time
	lastDisturber time.Time
}

// addLightning inserts l as newest entry, dropping the oldest one if full.
func (e *eventLog) addLightning(l Lightning) {
	e.head = (e.head + MaxDetections - 1) % MaxDetections
	e.ring[e.head] = l
	if e.n < MaxDetections {
		e.n++
	}
}

// at returns the index-th most recent lightning.
func (e *eventLog) at(index int) (Lightning, bool) {
	if index < 0 || index >= e.n {
		return Lightning{}, false
	}
	l := e.ring[(e.head+index)%MaxDetections]
	if l.Time.IsZero() {
		return Lightning{}, false
	}
	return l, true
}

func (e *eventLog) len() int {
	return e.n
}

func (e *eventLog) addDisturber(now time.Time) {
	e.lastDisturber = now
	e.disturbers++
}

// perMinute returns the disturber rate since the window start.
func (e *eventLog) perMinute(now time.Time) uint32 {
	ms := now.Sub(e.windowStart).Milliseconds()
	if ms <= 0 {
		return 0
	}
	return uint32(int64(e.disturbers) * 60000 / ms)
}

// clear empties the log and starts a new disturber window at now.
func (e *eventLog) clear(now time.Time) {
	for i := range e.ring {
		e.ring[i].Time = time.Time{}
	}
	e.head = 0
	e.n = 0
	e.disturbers = 0
	e.windowStart = now
	e.lastDisturber = time.Time{}
}

// recordLightning reads energy and distance of the detection that caused
// the interrupt and logs it. d.mu must be held.
func (d *Dev) recordLightning(now time.Time) error {
	energy, err := d.readEnergy()
	if err != nil {
		return err
	}
	distance, err := d.b.readField(fieldDistance)
	if err != nil {
		return err
	}
	d.events.addLightning(Lightning{Time: now, Energy: energy, Distance: distance})
	return nil
}

func (d *Dev) readEnergy() (uint32, error) {
	high, err := d.b.readField(fieldEnergyHigh)
	if err != nil {
		return 0, err
	}
	mid, err := d.b.read(regEnergyMid)
	if err != nil {
		return 0, err
	}
	low, err := d.b.read(regEnergyLow)
	if err != nil {
		return 0, err
	}
	return uint32(high)<<16 | uint32(mid)<<8 | uint32(low), nil
}

// Energy reads the energy of the last lightning or disturber. It has no
// physical unit.
func (d *Dev) Energy() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readEnergy()
}

// EstimatedDistance reads the estimated distance to the head of the storm in
// km. DistanceOutOfRange means that the storm is out of range.
func (d *Dev) EstimatedDistance() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.b.readField(fieldDistance)
}

// LastLightningDetection returns one of the stored lightnings. Index 0 is the
// most recent one. It returns false if there is no lightning at index.
func (d *Dev) LastLightningDetection(index int) (Lightning, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events.at(index)
}

// Detections returns all stored lightnings, most recent first.
func (d *Dev) Detections() []Lightning {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Lightning, 0, d.events.len())
	for i := 0; i < d.events.len(); i++ {
		if l, ok := d.events.at(i); ok {
			out = append(out, l)
		}
	}
	return out
}

// DisturbersPerMinute returns the disturber rate since the last call to
// ClearDetections, or since the driver was created.
func (d *Dev) DisturbersPerMinute() uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events.perMinute(d.now())
}

// LastDisturberDetection returns the time of the last disturber, or the zero
// time if there was none since the last ClearDetections.
func (d *Dev) LastDisturberDetection() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.events.lastDisturber
}

// ClearDetections forgets all lightnings and restarts the disturber rate.
func (d *Dev) ClearDetections() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events.clear(d.now())
}
