package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTransport       = TransportXNet
	DefaultResumeSecond    = 5.0
	DefaultWriteTimeout    = 5 * time.Second
	DefaultRestartDelay    = time.Second
	DefaultRestartMaxDelay = time.Minute
	DefaultEchoAddr        = ":8080"
	DefaultAcceptBurst     = 10
	DefaultLogLevel        = "info"
)

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Client.Transport == "" {
		c.Client.Transport = DefaultTransport
	}
	if c.Client.ResumeSecond == 0 {
		c.Client.ResumeSecond = DefaultResumeSecond
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}

	if c.Supervisor.Delay == 0 {
		c.Supervisor.Delay = DefaultRestartDelay
	}
	if c.Supervisor.MaxDelay == 0 {
		c.Supervisor.MaxDelay = DefaultRestartMaxDelay
	}

	if c.Echo.Addr == "" {
		c.Echo.Addr = DefaultEchoAddr
	}
	if c.Echo.AcceptRate > 0 && c.Echo.AcceptBurst == 0 {
		c.Echo.AcceptBurst = DefaultAcceptBurst
	}

	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}
