// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package as3935

// Register addresses.
const (
	regAFEGain       byte = 0x00 // AFE gain boost and power down
	regThreshold     byte = 0x01 // noise floor level and watchdog threshold
	regLightning     byte = 0x02 // statistics, minimum lightnings, spike rejection
	regInterrupt     byte = 0x03 // frequency division ratio and interrupt status
	regEnergyLow     byte = 0x04
	regEnergyMid     byte = 0x05
	regEnergyHigh    byte = 0x06
	regDistance      byte = 0x07
	regTuning        byte = 0x08 // IRQ display flags and tuning capacitors
	regPresetDefault byte = 0x3C
	regCalibRCO      byte = 0x3D
)

const (
	// Written to regPresetDefault or regCalibRCO to run the direct command.
	directCommand byte = 0x96

	readFlag byte = 0x40
	addrMask byte = 0x3F

	// DumpSize is the number of registers returned by Dev.Dump.
	DumpSize = 0x33

	afeIndoor    byte = 0x24
	afeOutdoor   byte = 0x1C
	afePowerDown byte = 0x25
	gainOutdoor  byte = 0x0E

	tuneDisplayLCO  byte = 0x80
	tuneDisplayTRCO byte = 0x20

	divRatio128 byte = 0x03

	maxNoiseFloor = 7
	maxWatchdog   = 15
	maxSpike      = 15
)

// field is a bit field inside a single register.
type field struct {
	reg   byte
	mask  byte
	shift uint
}

func (f field) get(b byte) byte {
	return (b >> f.shift) & f.mask
}

// set returns b with the field replaced by v. Bits outside the field are kept.
func (f field) set(b, v byte) byte {
	return b&^(f.mask<<f.shift) | (v&f.mask)<<f.shift
}

var (
	fieldPowerDown      = field{reg: regAFEGain, mask: 0x01, shift: 0}
	fieldGain           = field{reg: regAFEGain, mask: 0x1F, shift: 1}
	fieldWatchdog       = field{reg: regThreshold, mask: 0x0F, shift: 0}
	fieldNoiseFloor     = field{reg: regThreshold, mask: 0x07, shift: 4}
	fieldSpikeRejection = field{reg: regLightning, mask: 0x0F, shift: 0}
	fieldMinLightning   = field{reg: regLightning, mask: 0x03, shift: 4}
	fieldClearStats     = field{reg: regLightning, mask: 0x01, shift: 6}
	fieldInterrupt      = field{reg: regInterrupt, mask: 0x0F, shift: 0}
	fieldDivRatio       = field{reg: regInterrupt, mask: 0x03, shift: 6}
	fieldEnergyHigh     = field{reg: regEnergyHigh, mask: 0x1F, shift: 0}
	fieldDistance       = field{reg: regDistance, mask: 0x3F, shift: 0}
	fieldTuneCap        = field{reg: regTuning, mask: 0x0F, shift: 0}
)

// Interrupt is the decoded content of the interrupt status register.
type Interrupt byte

const (
	// IntNoise is set when the noise level is too high.
	IntNoise Interrupt = 0x01
	// IntDisturber is set when a disturber was detected.
	IntDisturber Interrupt = 0x04
	// IntLightning is set when a lightning was detected.
	IntLightning Interrupt = 0x08
)

func (i Interrupt) String() string {
	s := ""
	for _, f := range []struct {
		bit  Interrupt
		name string
	}{{IntNoise, "noise"}, {IntDisturber, "disturber"}, {IntLightning, "lightning"}} {
		if i&f.bit != 0 {
			if s != "" {
				s += "|"
			}
			s += f.name
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

// Noise floor levels in µVrms, indexed by the noise floor register field.
var (
	outdoorLevels = [maxNoiseFloor + 1]int64{390, 630, 860, 1100, 1140, 1570, 1800, 2000}
	indoorLevels  = [maxNoiseFloor + 1]int64{28, 45, 62, 78, 95, 112, 130, 146}
)

// Accepted values for the minimum number of lightnings, indexed by register
// field value.
var minNumLightning = [4]int{1, 5, 9, 16}
