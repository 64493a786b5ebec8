// Package main implements wsmanager, a command-line client that keeps a
// WebSocket connection open across drops. Each line read from stdin is sent
// as a message and everything received is printed to stdout.
//
// Usage:
//
//	wsmanager -url wss://example.com/ws -max-resume 10
//	wsmanager -config wsmanager.yaml -transport gorilla
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/codeGROOVE-dev/wsmanager/internal/config"
	"github.com/codeGROOVE-dev/wsmanager/pkg/logger"
	"github.com/codeGROOVE-dev/wsmanager/pkg/wsmanager"
)

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

var (
	configPath  = flag.String("config", os.Getenv("WSMANAGER_CONFIG"), "YAML config file")
	targetURL   = flag.String("url", os.Getenv("WSMANAGER_URL"), "WebSocket URL (ws:// or wss://)")
	transportID = flag.String("transport", os.Getenv("WSMANAGER_TRANSPORT"), "transport: xnet, gorilla or coderws")
	resume      = flag.Float64("resume-second", 0, "first reconnect delay in seconds")
	maxResume   = flag.Int("max-resume", envInt("WSMANAGER_MAX_RESUME", -1), "retries before giving up (0 = forever, -1 = from config)")
	restarts    = flag.Int("restarts", -1, "manager restarts after a fatal error (0 = forever, -1 = from config)")
	resetOnOpen = flag.Bool("reset-backoff", false, "reset the reconnect delay after every successful open")
	binary      = flag.Bool("binary", false, "send stdin lines as binary frames")
	showDebug   = flag.Bool("debug-events", false, "print the manager's debug events")
	logLevel    = flag.String("log-level", os.Getenv("WSMANAGER_LOG_LEVEL"), "log level: debug, info, warn or error")
	logJSON     = flag.Bool("log-json", false, "log as JSON")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "wsmanager: %v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides cfg with flags that were given a value.
func applyFlags(cfg *config.Config) {
	if *targetURL != "" {
		cfg.Client.URL = *targetURL
	}
	if *transportID != "" {
		cfg.Client.Transport = *transportID
	}
	if *resume > 0 {
		cfg.Client.ResumeSecond = *resume
	}
	if *maxResume >= 0 {
		cfg.Client.MaxResume = *maxResume
	}
	if *restarts >= 0 {
		cfg.Supervisor.Restarts = uint(*restarts)
	}
	if *resetOnOpen {
		cfg.Client.ResetBackoffOnOpen = true
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logJSON {
		cfg.Log.JSON = true
	}
}

func run() error {
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Client.Validate(); err != nil {
		return err
	}

	level, _ := logger.ParseLevel(cfg.Log.Level) //nolint:errcheck // checked by Validate
	logger.SetDefault(logger.New(os.Stderr, logger.Options{Level: level, JSON: cfg.Log.JSON}))
	log := logger.Component("wsmanager")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := &session{logger: log, out: os.Stdout, binary: *binary, debug: *showDebug}
	sup := &supervisor{
		logger: logger.Component("supervisor"),
		newManager: func() (*wsmanager.Manager, error) {
			return wsmanager.New(cfg.Client.Manager(log))
		},
		attach:   sess.attach,
		restarts: cfg.Supervisor.Restarts,
		delay:    cfg.Supervisor.Delay,
		maxDelay: cfg.Supervisor.MaxDelay,
	}

	go func() {
		if err := sess.pump(ctx, os.Stdin); err != nil {
			logger.Error(ctx, "stdin", err, nil)
		}
	}()

	logger.Info(ctx, "starting", logger.Fields{
		"url":        cfg.Client.URL,
		"transport":  cfg.Client.Transport,
		"max_resume": cfg.Client.MaxResume,
		"restarts":   cfg.Supervisor.Restarts,
	})
	if err := sup.run(ctx); err != nil {
		return fmt.Errorf("giving up: %w", err)
	}
	logger.Info(ctx, "stopped", nil)
	return nil
}
