// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package indicator renders the detector status LED as a 1D strip on a
// terminal using ANSI color codes.
//
// Useful when the detector runs headless on a board without its RGB LED.
package indicator

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// State is what the indicator shows.
type State int

const (
	// Idle is a dim blue glow.
	Idle State = iota
	// Disturber is a short flash when a man-made disturber was rejected.
	Disturber
	// Lightning is a white flash.
	Lightning
	// OutOfRange is shown when the noise floor can't be raised anymore.
	OutOfRange
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Disturber:
		return "disturber"
	case Lightning:
		return "lightning"
	case OutOfRange:
		return "out-of-range"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Opts represents the options available for the indicator.
type Opts struct {
	// X is the number of LEDs on the strip.
	X int
	// Palette defaults to ansi256.Default.
	Palette *ansi256.Palette
	// W defaults to a colorable stdout.
	W io.Writer

	Enabled             bool
	BlueBrightness      uint8
	DisturberBrightness uint8
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	X:                   8,
	Enabled:             true,
	BlueBrightness:      48,
	DisturberBrightness: 48,
}

// Dev is a 1D LED strip emulator that outputs to the console.
type Dev struct {
	mu      sync.Mutex
	w       io.Writer
	l       int
	palette ansi256.Palette

	enabled   bool
	blue      uint8
	disturber uint8
	state     State

	pixels []byte
	buf    bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	l := opts.X
	if l <= 0 {
		l = 1
	}
	return &Dev{
		w:         w,
		l:         l,
		palette:   *p,
		enabled:   opts.Enabled,
		blue:      opts.BlueBrightness,
		disturber: opts.DisturberBrightness,
		pixels:    make([]byte, 3*l),
	}
}

func (d *Dev) String() string {
	return fmt.Sprintf("Indicator{%d}", d.l)
}

// Configure updates the brightness settings. A disabled indicator writes
// nothing.
func (d *Dev) Configure(enabled bool, blue, disturber uint8) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
	d.blue = blue
	d.disturber = disturber
}

// State returns the last state shown.
func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Show lights the whole strip for state s.
func (d *Dev) Show(s State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
	if !d.enabled {
		return nil
	}
	return d.draw(d.bounds(), &image.Uniform{C: d.colorOf(s)}, image.Point{})
}

func (d *Dev) colorOf(s State) color.NRGBA {
	switch s {
	case Disturber:
		return color.NRGBA{R: d.disturber, G: d.disturber / 2, A: 255}
	case Lightning:
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	case OutOfRange:
		return color.NRGBA{R: 255, A: 255}
	default:
		return color.NRGBA{B: d.blue, A: 255}
	}
}

// Halt implements conn.Resource.
//
// It resets the terminal colors so it is not corrupted.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return nil
	}
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return d.bounds()
}

// Draw implements display.Drawer.
//
// Only the first row of src is used.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.enabled {
		return nil
	}
	return d.draw(r, src, sp)
}

func (d *Dev) bounds() image.Rectangle {
	return image.Rectangle{Max: image.Point{X: d.l, Y: 1}}
}

func (d *Dev) draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		c := color.NRGBAModel.Convert(src.At(sp.X+x-r.Min.X, sp.Y)).(color.NRGBA)
		d.pixels[3*x] = c.R
		d.pixels[3*x+1] = c.G
		d.pixels[3*x+2] = c.B
	}
	return d.refresh()
}

func (d *Dev) refresh() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i := 0; i < len(d.pixels)/3; i++ {
		c := color.NRGBA{d.pixels[3*i], d.pixels[3*i+1], d.pixels[3*i+2], 255}
		_, _ = io.WriteString(&d.buf, d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
