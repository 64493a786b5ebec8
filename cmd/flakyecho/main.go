// Package main implements flakyecho, a WebSocket echo server that hangs up on
// its clients on purpose. Point wsmanager at it to watch reconnects happen.
//
// Usage:
//
//	flakyecho -addr :8080 -drop-every 5 -drop-after 30s
//	flakyecho -letsencrypt -le-domains=echo.example.com
package main

import (
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/codeGROOVE-dev/wsmanager/internal/config"
	"github.com/codeGROOVE-dev/wsmanager/internal/echo"
	"github.com/codeGROOVE-dev/wsmanager/pkg/logger"
)

const (
	readTimeout     = 10 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 10 * time.Second
)

var (
	configPath  = flag.String("config", os.Getenv("FLAKYECHO_CONFIG"), "YAML config file (echo and log sections)")
	addr        = flag.String("addr", os.Getenv("FLAKYECHO_ADDR"), "HTTP service address (default :8080)")
	dropAfter   = flag.Duration("drop-after", 0, "hang up on each client this long after it connects")
	dropEvery   = flag.Int("drop-every", 0, "hang up after echoing this many messages")
	acceptRate  = flag.Float64("accept-rate", 0, "new connections allowed per second (0 = unlimited)")
	maxPerIP    = flag.Int("max-conns-per-ip", 0, "maximum concurrent connections per IP (0 = unlimited)")
	maxTotal    = flag.Int("max-conns-total", 0, "maximum concurrent connections (0 = unlimited)")
	logLevel    = flag.String("log-level", os.Getenv("FLAKYECHO_LOG_LEVEL"), "log level: debug, info, warn or error")
	letsencrypt = flag.Bool("letsencrypt", false, "Use Let's Encrypt for automatic TLS certificates")
	leDomains   = flag.String("le-domains", "", "Comma-separated list of domains for Let's Encrypt certificates")
	leCacheDir  = flag.String("le-cache-dir", "./.letsencrypt", "Cache directory for Let's Encrypt certificates")
	leEmail     = flag.String("le-email", "", "Contact email for Let's Encrypt notifications")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "flakyecho: %v\n", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	if *addr != "" {
		cfg.Echo.Addr = *addr
	}
	if *dropAfter > 0 {
		cfg.Echo.DropAfter = *dropAfter
	}
	if *dropEvery > 0 {
		cfg.Echo.DropEvery = *dropEvery
	}
	if *acceptRate > 0 {
		cfg.Echo.AcceptRate = *acceptRate
		if cfg.Echo.AcceptBurst == 0 {
			cfg.Echo.AcceptBurst = config.DefaultAcceptBurst
		}
	}
	if *maxPerIP > 0 {
		cfg.Echo.MaxConnsPerIP = *maxPerIP
	}
	if *maxTotal > 0 {
		cfg.Echo.MaxConnsTotal = *maxTotal
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
}

// domains splits a comma-separated domain list, dropping blanks.
func domains(list string) []string {
	var out []string
	for d := range strings.SplitSeq(list, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
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

	level, _ := logger.ParseLevel(cfg.Log.Level) //nolint:errcheck // checked by Validate
	logger.SetDefault(logger.New(os.Stderr, logger.Options{Level: level, JSON: cfg.Log.JSON}))
	log := logger.Component("flakyecho")

	s := echo.New(echo.Config{
		Logger:        log,
		DropAfter:     cfg.Echo.DropAfter,
		DropEvery:     cfg.Echo.DropEvery,
		AcceptRate:    cfg.Echo.AcceptRate,
		AcceptBurst:   cfg.Echo.AcceptBurst,
		MaxConnsPerIP: cfg.Echo.MaxConnsPerIP,
		MaxConnsTotal: cfg.Echo.MaxConnsTotal,
	})

	// No WriteTimeout: it would cut long-lived WebSocket connections.
	server := &http.Server{
		Addr:              cfg.Echo.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    1 << 20,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down server", "stats", s.Stats())

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(sctx); err != nil {
			log.Warn("server shutdown", "error", err)
		}
	}()

	if *letsencrypt {
		err = serveLetsEncrypt(ctx, server)
	} else {
		log.Warn("TLS not enabled; use -letsencrypt for a public endpoint")
		log.Info("starting HTTP server", "addr", server.Addr,
			"drop_after", cfg.Echo.DropAfter, "drop_every", cfg.Echo.DropEvery)
		err = server.ListenAndServe()
	}
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	<-done
	log.Info("server stopped")
	return nil
}

func serveLetsEncrypt(ctx context.Context, server *http.Server) error {
	names := domains(*leDomains)
	if len(names) == 0 {
		return errors.New("let's encrypt requires -le-domains")
	}
	if err := os.MkdirAll(*leCacheDir, 0o700); err != nil {
		return fmt.Errorf("create Let's Encrypt cache directory: %w", err)
	}

	certManager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(names...),
		Cache:      autocert.DirCache(*leCacheDir),
		Email:      *leEmail,
	}

	server.Addr = ":443"
	server.TLSConfig = &tls.Config{
		GetCertificate: certManager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}

	acme := &http.Server{
		Addr:              ":80",
		Handler:           certManager.HTTPHandler(nil),
		ReadHeaderTimeout: readTimeout,
	}
	go func() {
		logger.Info(ctx, "starting HTTP server on :80 for ACME challenges", nil)
		if err := acme.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn(ctx, "ACME HTTP server failed; certificate issuance may fail", logger.Fields{"error": err.Error()})
		}
	}()
	go func() {
		<-ctx.Done()
		_ = acme.Close() //nolint:errcheck // shutting down
	}()

	logger.Info(ctx, "starting HTTPS server with Let's Encrypt", logger.Fields{"domains": names})
	return server.ListenAndServeTLS("", "")
}
