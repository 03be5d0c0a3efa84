// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

import (
	"fmt"

	"periph.io/x/conn/v3/spi"
)

// bus performs single register transactions. Every call is one Tx, so the
// chip select line is asserted for exactly one address byte and one data
// byte. Callers serialize multi-register operations through Dev.mu.
type bus struct {
	c spi.Conn
}

// read returns the content of the register at addr.
func (b *bus) read(addr byte) (byte, error) {
	w := [2]byte{readFlag | addr&addrMask, 0x00}
	var r [2]byte
	if err := b.c.Tx(w[:], r[:]); err != nil {
		return 0, fmt.Errorf("as3935: read register 0x%02x: %w", addr, err)
	}
	return r[1], nil
}

// write sets the register at addr to v.
func (b *bus) write(addr, v byte) error {
	w := [2]byte{addr & addrMask, v}
	if err := b.c.Tx(w[:], nil); err != nil {
		return fmt.Errorf("as3935: write register 0x%02x: %w", addr, err)
	}
	return nil
}

func (b *bus) readField(f field) (byte, error) {
	v, err := b.read(f.reg)
	return f.get(v), err
}

// writeField is a read-modify-write of f. Other fields of the register are
// left untouched.
func (b *bus) writeField(f field, v byte) error {
	cur, err := b.read(f.reg)
	if err != nil {
		return err
	}
	return b.write(f.reg, f.set(cur, v))
}

// dump reads the whole register map in one transaction.
func (b *bus) dump() ([DumpSize]byte, error) {
	var out [DumpSize]byte
	w := make([]byte, DumpSize+1)
	r := make([]byte, DumpSize+1)
	w[0] = readFlag
	if err := b.c.Tx(w, r); err != nil {
		return out, fmt.Errorf("as3935: dump registers: %w", err)
	}
	copy(out[:], r[1:])
	return out, nil
}
