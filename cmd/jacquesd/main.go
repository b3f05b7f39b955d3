// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wingedpig/jacquesd/internal/config"
	"github.com/wingedpig/jacquesd/internal/daemon"
	"github.com/wingedpig/jacquesd/internal/pidfile"
)

var version = "0.1"

func main() {
	var (
		configPath  string
		host        string
		port        int
		showVersion bool
		debug       bool
	)

	flag.StringVar(&configPath, "config", "", "Path to config file (default: ~/.jacques/config.hjson)")
	flag.StringVar(&configPath, "c", "", "Path to config file (short)")
	flag.StringVar(&host, "host", "", "HTTP query server host (overrides config)")
	flag.IntVar(&port, "port", 0, "HTTP query server port (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "Show version")
	flag.BoolVar(&showVersion, "v", false, "Show version (short)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.Parse()

	if showVersion {
		fmt.Printf("jacquesd %s\n", version)
		os.Exit(0)
	}

	if configPath == "" {
		configPath = config.DefaultConfigPath()
	}

	cfg, err := config.NewLoader().LoadWithDefaults(configPath)
	if err != nil {
		log.Fatalf("jacquesd: load config %s: %v", configPath, err)
	}
	if host != "" {
		cfg.HTTP.Host = host
	}
	if port != 0 {
		cfg.HTTP.Port = port
	}

	logFlags := log.LstdFlags
	if debug {
		logFlags |= log.Lshortfile
	}
	logger := log.New(os.Stderr, "jacquesd: ", logFlags)
	logger.Printf("using config: %s", configPath)
	if debug {
		logger.Printf("debug logging enabled")
	}

	d, err := daemon.New(daemon.Options{Config: cfg, Logger: logger})
	if err != nil {
		logger.Fatalf("construct daemon: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, pidfile.ErrAlreadyRunning) {
			logger.Fatalf("another instance is already running: %v", err)
		}
		logger.Fatalf("daemon exited with error: %v", err)
	}
}
