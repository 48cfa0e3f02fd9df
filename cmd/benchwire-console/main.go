// Copyright 2026 The Benchwire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/benchwire/benchwire/capture"
	"github.com/benchwire/benchwire/console"
	"github.com/benchwire/benchwire/lib/config"
	"github.com/benchwire/benchwire/relay"
	"github.com/benchwire/benchwire/transport"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "benchwire-console: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath string
		debug      bool

		driver      string
		device      string
		baud        int
		address     string
		prompt      string
		timestamps  bool
		listen      string
		capturePath string
	)

	flagSet := pflag.NewFlagSet("benchwire-console", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to benchwire.yaml (default: $BENCHWIRE_CONFIG)")
	flagSet.BoolVar(&debug, "debug", false, "enable debug logging")
	flagSet.StringVar(&driver, "driver", "", "console driver: serial or tcp (overrides config)")
	flagSet.StringVar(&device, "device", "", "serial device path (overrides config)")
	flagSet.IntVar(&baud, "baud", 0, "serial line rate (overrides config)")
	flagSet.StringVar(&address, "address", "", "console server host:port for the tcp driver (overrides config)")
	flagSet.StringVar(&prompt, "prompt", "", "device shell prompt (overrides config)")
	flagSet.BoolVar(&timestamps, "timestamps", false, "annotate output lines with elapsed time")
	flagSet.StringVar(&listen, "listen", "", "accept console observers on this address (overrides config)")
	flagSet.StringVar(&capturePath, "capture", "", "capture console output to this file (overrides config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if driver != "" {
		cfg.Console.Driver = driver
	}
	if device != "" {
		cfg.Console.Device = device
	}
	if baud > 0 {
		cfg.Console.Baud = baud
	}
	if address != "" {
		cfg.Console.Address = address
	}
	if prompt != "" {
		cfg.Console.Prompt = prompt
	}
	if flagSet.Changed("timestamps") {
		cfg.Console.Timestamps = timestamps
	}
	if listen != "" {
		cfg.Relay.Listen = listen
	}
	if capturePath != "" {
		cfg.Capture.Path = capturePath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	consoleTransport, target, err := buildTransport(cfg)
	if err != nil {
		return err
	}

	var sinks []console.Sink

	var observerRelay *relay.Relay
	if cfg.Relay.Listen != "" {
		listener, err := net.Listen("tcp", cfg.Relay.Listen)
		if err != nil {
			return fmt.Errorf("listening for observers on %s: %w", cfg.Relay.Listen, err)
		}
		observerRelay, err = relay.New(relay.Config{
			Listener:     listener,
			Device:       target,
			Prompt:       cfg.Console.Prompt,
			HistoryBytes: cfg.Relay.HistoryBytes,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer observerRelay.Close()
		logger.Info("observer relay listening",
			"address", observerRelay.Address(),
			"session_id", observerRelay.SessionID())
		sinks = append(sinks, observerRelay)
	}

	var captureWriter *capture.Writer
	if cfg.Capture.Path != "" {
		captureWriter, err = capture.NewWriter(cfg.Capture.Path)
		if err != nil {
			return err
		}
		logger.Info("capturing console output", "path", captureWriter.Path())
		sinks = append(sinks, captureWriter)
	}

	session, err := console.New(console.Config{
		Transport:   consoleTransport,
		Prompt:      cfg.Console.Prompt,
		Timestamps:  cfg.Console.Timestamps,
		Sink:        combineSinks(sinks),
		Passthrough: os.Stdout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	logger.Info("console session starting", "target", target)
	session.Start()

	// Forward operator input to the device byte for byte.
	go func() {
		buffer := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buffer)
			if n > 0 {
				session.Write(string(buffer[:n]), true)
			}
			if err != nil {
				return
			}
		}
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	received := <-signals
	logger.Info("shutting down", "signal", received)

	session.Stop()
	if captureWriter != nil {
		digest, err := captureWriter.Close()
		if err != nil {
			return err
		}
		logger.Info("capture complete", "path", captureWriter.Path(), "blake3", digest)
	}
	return nil
}

// loadConfig resolves the effective configuration: an explicit --config
// path, then $BENCHWIRE_CONFIG, then pure defaults (for setups driven
// entirely by flags).
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("BENCHWIRE_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

// buildTransport constructs the configured console transport and
// returns it with a human-readable target description.
func buildTransport(cfg *config.Config) (console.Transport, string, error) {
	switch cfg.Console.Driver {
	case "serial":
		return transport.NewSerial(cfg.Console.Device, cfg.Console.Baud), cfg.Console.Device, nil
	case "tcp":
		return transport.NewTCP(cfg.Console.Address), cfg.Console.Address, nil
	default:
		return nil, "", fmt.Errorf("unknown console driver %q", cfg.Console.Driver)
	}
}

// multiSink fans one chunk out to several sinks.
type multiSink []console.Sink

func (m multiSink) Send(data []byte) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// combineSinks collapses the sink list: none means no sink (the session
// falls back to its passthrough writer), one is used directly, more are
// wrapped in a multiSink.
func combineSinks(sinks []console.Sink) console.Sink {
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return multiSink(sinks)
	}
}
