package config

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/wsmanager/pkg/transport"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport/coderws"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport/gorilla"
	"github.com/codeGROOVE-dev/wsmanager/pkg/transport/xnet"
	"github.com/codeGROOVE-dev/wsmanager/pkg/wsmanager"
)

// Transport names accepted in client.transport.
const (
	TransportXNet    = "xnet"
	TransportGorilla = "gorilla"
	TransportCoder   = "coderws"
)

// ResumeDelay converts ResumeSecond to a duration.
func (c *ClientConfig) ResumeDelay() time.Duration {
	return time.Duration(c.ResumeSecond * float64(time.Second))
}

// Dialer builds the configured transport. Call Validate first.
func (c *ClientConfig) Dialer() transport.Dialer {
	header := make(http.Header, len(c.Headers))
	for k, v := range c.Headers {
		header.Set(k, v)
	}

	switch c.Transport {
	case TransportGorilla:
		return gorilla.Dialer{Header: header, Subprotocols: c.Subprotocols, WriteTimeout: c.WriteTimeout}
	case TransportCoder:
		return coderws.Dialer{Header: header, Subprotocols: c.Subprotocols, WriteTimeout: c.WriteTimeout}
	default:
		return xnet.Dialer{Header: header, Protocol: c.Subprotocols, WriteTimeout: c.WriteTimeout}
	}
}

// Manager returns the wsmanager configuration for this client.
func (c *ClientConfig) Manager(logger *slog.Logger) wsmanager.Config {
	return wsmanager.Config{
		Logger:             logger,
		Dialer:             c.Dialer(),
		URL:                c.URL,
		ResumeDelay:        c.ResumeDelay(),
		MaxResume:          c.MaxResume,
		ResetBackoffOnOpen: c.ResetBackoffOnOpen,
	}
}
