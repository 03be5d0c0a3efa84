// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package as3935 drives an ams AS3935 Franklin lightning sensor over SPI.
//
// Besides register access the driver keeps the sensor usable in a noisy
// environment: the noise floor level is raised when the sensor reports too
// much noise and lowered again after a quiet period, and the watchdog
// threshold can optionally follow the disturber rate. Up to MaxDetections
// lightning events are kept, most recent first.
//
// Dev.Tick must be called at a bounded interval by the owner of the device,
// for example from a time.Ticker loop. Edges on the IRQ line are counted by a
// background goroutine started by Dev.Begin; everything else runs on the
// caller's goroutine.
//
// # Datasheet
//
// https://ams.com/documents/20143/36005/AS3935_DS000365_2-00.pdf
package as3935
