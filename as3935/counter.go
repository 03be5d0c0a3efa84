// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// counter counts rising edges on the sensor's IRQ line.
//
// The edge watcher only ever increments it. Dev.Tick drains it and uses the
// result as a "something happened" flag; which events happened is read back
// from the interrupt register, which the sensor latches and clears on read.
// An edge that arrives between the drain and the register read is therefore
// not lost, it is only handled one tick later.
//
// During calibration the IRQ line outputs the divided antenna frequency and
// the counter value itself is the measurement.
type counter struct {
	n atomic.Uint32
}

func (c *counter) inc() {
	c.n.Add(1)
}

// drain returns the current count and resets it to zero.
func (c *counter) drain() uint32 {
	return c.n.Swap(0)
}

func (c *counter) reset() {
	c.n.Store(0)
}

func (c *counter) load() uint32 {
	return c.n.Load()
}

// watch counts edges reported by p until stop is closed. timeout bounds how
// long a stop request may go unnoticed.
func (c *counter) watch(p gpio.PinIn, timeout time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if p.WaitForEdge(timeout) {
			c.inc()
		}
	}
}
