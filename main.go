package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"ember/emberos"
	"ember/hal"
	"ember/internal/buildinfo"
	"ember/internal/config"
	"ember/internal/logging"
)

func main() {
	var (
		headless   bool
		hz         int
		ticks      uint64
		configPath string
		traceAddr  string
		logLevel   string
		logFormat  string
		version    bool
	)
	flag.BoolVar(&headless, "headless", false, "Run without a window.")
	flag.IntVar(&hz, "hz", 60, "Frame rate in headless mode.")
	flag.Uint64Var(&ticks, "ticks", 0, "Stop after N frames in headless mode (0 = run forever).")
	flag.StringVar(&configPath, "config", "", "Boot configuration file (YAML).")
	flag.StringVar(&traceAddr, "trace-addr", "", "Serve the activation trace API on this address.")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error).")
	flag.StringVar(&logFormat, "log-format", "text", "Log format (text, json).")
	flag.BoolVar(&version, "version", false, "Print the version and exit.")
	flag.Parse()

	if version {
		fmt.Println("ember " + buildinfo.Long())
		return
	}

	logger := logging.NewLogger(logging.ParseLevel(logLevel), logFormat)

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if traceAddr != "" {
		cfg.Trace.Enabled = true
		cfg.Trace.HTTPAddr = traceAddr
	}

	var sys *emberos.System
	newApp := func(h hal.HAL) func() error {
		s, err := emberos.NewSystem(h, cfg, logger)
		if err != nil {
			return func() error { return err }
		}
		sys = s
		return s.Step
	}

	var err error
	if headless {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, hal.HeadlessConfig{Hz: hz, Ticks: ticks})
		if err == context.Canceled {
			err = nil
		}
	} else {
		err = hal.RunWindow(newApp)
	}

	if sys != nil {
		sys.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
