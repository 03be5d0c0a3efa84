// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages, like the
// CRC8 protecting the persisted settings record.
package common

// crc8Init is the initial value of a CRC8 calculation.
const crc8Init byte = 0xff

// CRC8 calculates the 8-bit CRC (polynomial 0x31) of the byte slice parameter
// and returns the calculated value.
func CRC8(bytes []byte) byte {
	return CRC8Update(crc8Init, bytes)
}

// CRC8Update continues a CRC8 calculation. Passing the result of CRC8 over a
// first chunk and the second chunk gives the CRC8 of both chunks, so a record
// can be checked without concatenating its parts.
func CRC8Update(crc byte, bytes []byte) byte {
	for _, val := range bytes {
		crc ^= val
		for range 8 {
			if crc&0x80 == 0 {
				crc <<= 1
			} else {
				crc = crc<<1 ^ 0x31
			}
		}
	}
	return crc
}
