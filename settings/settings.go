// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package settings persists the user settings of a lightning detector.
//
// The settings are kept in a small binary record starting with a magic byte
// and ending with a CRC8. A record that is missing or fails either check is
// replaced by the defaults, which are written back immediately.
package settings

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"periph.io/x/kaminari/common"
)

const (
	magic   byte = 0x8C
	version byte = 1

	flagLED     byte = 0x01
	flagOutdoor byte = 0x02

	recordSize = 9
)

// ErrInvalid is returned by Decode for records that are not valid settings.
var ErrInvalid = errors.New("settings: invalid record")

// Settings are the persisted user settings.
type Settings struct {
	WatchdogThreshold        int
	MinimumNumberOfLightning int
	SpikeRejection           int
	OutdoorMode              bool

	LEDEnabled          bool
	BlueBrightness      int
	DisturberBrightness int
}

// Defaults returns the settings used when nothing valid was persisted.
func Defaults() Settings {
	return Settings{
		WatchdogThreshold:        1,
		MinimumNumberOfLightning: 1,
		SpikeRejection:           2,
		LEDEnabled:               true,
		BlueBrightness:           48,
		DisturberBrightness:      48,
	}
}

// Validate checks that all values can be applied to the sensor.
func (s Settings) Validate() error {
	if s.WatchdogThreshold < 0 || s.WatchdogThreshold > 15 {
		return fmt.Errorf("settings: watchdog threshold %d out of range 0..15", s.WatchdogThreshold)
	}
	switch s.MinimumNumberOfLightning {
	case 1, 5, 9, 16:
	default:
		return fmt.Errorf("settings: minimum number of lightning %d must be 1, 5, 9 or 16", s.MinimumNumberOfLightning)
	}
	if s.SpikeRejection < 0 || s.SpikeRejection > 15 {
		return fmt.Errorf("settings: spike rejection %d out of range 0..15", s.SpikeRejection)
	}
	if s.BlueBrightness < 0 || s.BlueBrightness > 255 {
		return fmt.Errorf("settings: blue brightness %d out of range 0..255", s.BlueBrightness)
	}
	if s.DisturberBrightness < 0 || s.DisturberBrightness > 255 {
		return fmt.Errorf("settings: disturber brightness %d out of range 0..255", s.DisturberBrightness)
	}
	return nil
}

// Encode returns the binary record of s.
func Encode(s Settings) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	var flags byte
	if s.LEDEnabled {
		flags |= flagLED
	}
	if s.OutdoorMode {
		flags |= flagOutdoor
	}
	b := []byte{
		magic,
		version,
		byte(s.WatchdogThreshold),
		byte(s.MinimumNumberOfLightning),
		byte(s.SpikeRejection),
		byte(s.BlueBrightness),
		byte(s.DisturberBrightness),
		flags,
	}
	return append(b, common.CRC8(b)), nil
}

// Decode parses a binary record. It returns an error wrapping ErrInvalid if
// the magic byte, the version, the CRC or a value is wrong.
func Decode(b []byte) (Settings, error) {
	if len(b) != recordSize {
		return Settings{}, fmt.Errorf("%w: %d bytes", ErrInvalid, len(b))
	}
	if b[0] != magic {
		return Settings{}, fmt.Errorf("%w: magic 0x%02x", ErrInvalid, b[0])
	}
	if b[1] != version {
		return Settings{}, fmt.Errorf("%w: version %d", ErrInvalid, b[1])
	}
	if crc := common.CRC8(b[:recordSize-1]); crc != b[recordSize-1] {
		return Settings{}, fmt.Errorf("%w: crc 0x%02x != 0x%02x", ErrInvalid, b[recordSize-1], crc)
	}
	s := Settings{
		WatchdogThreshold:        int(b[2]),
		MinimumNumberOfLightning: int(b[3]),
		SpikeRejection:           int(b[4]),
		BlueBrightness:           int(b[5]),
		DisturberBrightness:      int(b[6]),
		LEDEnabled:               b[7]&flagLED != 0,
		OutdoorMode:              b[7]&flagOutdoor != 0,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}

// Store loads and saves settings.
type Store interface {
	Load() (Settings, error)
	Save(s Settings) error
}

// FileStore keeps the settings record in a file.
type FileStore struct {
	path string
}

// NewFileStore returns a store using the file at path. The file is created
// on first Load if it does not exist.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) String() string {
	return fmt.Sprintf("settings.FileStore{%s}", f.path)
}

// Load returns the persisted settings. A missing or damaged record is
// replaced by Defaults, which are persisted right away.
func (f *FileStore) Load() (Settings, error) {
	b, err := os.ReadFile(f.path)
	if err == nil {
		s, err := Decode(b)
		if err == nil {
			return s, nil
		}
		log.Printf("settings: %s: %v", f.path, err)
	} else if !errors.Is(err, os.ErrNotExist) {
		return Settings{}, fmt.Errorf("settings: %w", err)
	}
	s := Defaults()
	log.Printf("settings: configuration was initialized")
	return s, f.Save(s)
}

// Save persists s. The record is replaced atomically.
func (f *FileStore) Save(s Settings) error {
	b, err := Encode(s)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("settings: failed to persist configuration: %w", err)
	}
	log.Printf("settings: configuration was persisted")
	return nil
}

var _ Store = &FileStore{}
