package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/codeGROOVE-dev/wsmanager/pkg/logger"
)

// Validate checks the sections every command uses. The client section is
// checked separately by ClientConfig.Validate since only cmd/wsmanager needs it.
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	if c.Supervisor.Delay < 0 {
		return errors.New("supervisor.delay must be >= 0")
	}
	if c.Supervisor.MaxDelay < c.Supervisor.Delay {
		return fmt.Errorf("supervisor.max_delay (%s) must be >= supervisor.delay (%s)",
			c.Supervisor.MaxDelay, c.Supervisor.Delay)
	}

	if c.Echo.DropAfter < 0 {
		return errors.New("echo.drop_after must be >= 0")
	}
	if c.Echo.DropEvery < 0 {
		return errors.New("echo.drop_every must be >= 0")
	}
	if c.Echo.AcceptRate < 0 {
		return errors.New("echo.accept_rate must be >= 0")
	}
	if c.Echo.MaxConnsPerIP < 0 || c.Echo.MaxConnsTotal < 0 {
		return errors.New("echo connection limits must be >= 0")
	}
	return nil
}

// Bounds on client.resume_second. ResumeDelay overflows time.Duration at the
// upper bound.
const (
	minResumeSecond = float64(time.Millisecond) / float64(time.Second)
	maxResumeSecond = float64(math.MaxInt64) / float64(time.Second)
)

// Validate checks the client section.
func (c *ClientConfig) Validate() error {
	if c.URL == "" {
		return errors.New("client.url is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url must use ws or wss, got %q", u.Scheme)
	}
	if math.IsNaN(c.ResumeSecond) || c.ResumeSecond < minResumeSecond || c.ResumeSecond >= maxResumeSecond {
		return fmt.Errorf("client.resume_second must be in [%v, %v), got %v",
			minResumeSecond, maxResumeSecond, c.ResumeSecond)
	}
	if c.MaxResume < 0 {
		return fmt.Errorf("client.max_resume must be >= 0, got %d", c.MaxResume)
	}
	switch c.Transport {
	case TransportXNet, TransportGorilla, TransportCoder:
	default:
		return fmt.Errorf("client.transport must be one of %s, %s, %s; got %q",
			TransportXNet, TransportGorilla, TransportCoder, c.Transport)
	}
	return nil
}
