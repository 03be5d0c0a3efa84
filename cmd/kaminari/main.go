// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// kaminari watches an AS3935 lightning sensor and reports strikes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
	"periph.io/x/kaminari/as3935"
	"periph.io/x/kaminari/indicator"
	"periph.io/x/kaminari/internal/config"
	"periph.io/x/kaminari/settings"
)

func main() {
	configFile := flag.String("config", "", "YAML configuration file (optional)")
	dump := flag.Bool("dump", false, "Print the sensor registers and exit")
	flag.Parse()
	if flag.NArg() != 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := &config.Config{}
	if *configFile != "" {
		var err error
		if cfg, err = config.Load(*configFile); err != nil {
			log.Fatalf("config load failed: %v", err)
		}
	}
	config.Normalize(cfg)
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}

	if err := run(cfg, *dump); err != nil {
		log.Fatalf("kaminari: %v", err)
	}
}

func run(cfg *config.Config, dump bool) error {
	if _, err := host.Init(); err != nil {
		return err
	}
	p, err := spireg.Open(cfg.Sensor.SPI)
	if err != nil {
		return err
	}
	defer p.Close()
	irq := gpioreg.ByName(cfg.Sensor.IRQ)
	if irq == nil {
		return fmt.Errorf("no such pin %q", cfg.Sensor.IRQ)
	}

	dev, err := as3935.New(p, irq, driverOpts(cfg))
	if err != nil {
		return err
	}
	defer dev.Halt()
	if err := dev.Begin(); err != nil {
		return err
	}

	if dump {
		regs, err := dev.Dump()
		if err != nil {
			return err
		}
		printDump(os.Stdout, regs)
		return nil
	}

	store := settings.NewFileStore(cfg.Settings.Path)
	s, err := store.Load()
	if err != nil {
		return err
	}

	if err := dev.Reset(); err != nil {
		return err
	}
	if *cfg.Sensor.Calibrate {
		res, err := dev.Calibrate(physic.Frequency(cfg.Sensor.ResonanceHz) * physic.Hertz)
		if err != nil {
			return err
		}
		log.Printf("calibration: %s", res)
	}
	if err := applySettings(dev, s); err != nil {
		return err
	}
	if !dev.Responding() {
		log.Printf("%s: continuing without a responding sensor", dev)
	}

	led := indicator.New(&indicator.Opts{
		X:                   cfg.Indicator.LEDs,
		Enabled:             indicatorEnabled(cfg.Indicator.Mode, s.LEDEnabled, isatty.IsTerminal(os.Stdout.Fd())),
		BlueBrightness:      uint8(s.BlueBrightness),
		DisturberBrightness: uint8(s.DisturberBrightness),
	})
	defer led.Halt()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(cfg.Poll.Interval)
	defer ticker.Stop()
	w := watcher{dev: dev, led: led, now: time.Now}
	if err := w.show(indicator.Idle); err != nil {
		return err
	}
	for {
		select {
		case sig := <-sigCh:
			log.Printf("received %s, shutting down", sig)
			return nil
		case <-ticker.C:
			if err := w.poll(); err != nil {
				log.Printf("tick: %v", err)
			}
		}
	}
}

func driverOpts(cfg *config.Config) *as3935.Opts {
	s := cfg.Sensor
	opts := as3935.DefaultOpts
	opts.Frequency = physic.Frequency(s.SPIHz) * physic.Hertz
	opts.Noise = as3935.NoiseTuning{
		RaiseDelay:  s.Noise.RaiseDelay,
		ReduceDelay: s.Noise.ReduceDelay,
		Upper:       *s.Noise.Upper,
		Lower:       *s.Noise.Lower,
	}
	opts.Watchdog = as3935.AutoWatchdog{
		Enabled: s.Watchdog.Auto,
		Upper:   s.Watchdog.Upper,
		Lower:   s.Watchdog.Lower,
		Window:  s.Watchdog.Window,
	}
	return &opts
}
