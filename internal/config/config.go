// Package config loads the YAML configuration shared by the wsmanager and
// flakyecho commands.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Echo       EchoConfig       `yaml:"echo"`
	Log        LogConfig        `yaml:"log"`
}

// ClientConfig configures the connection manager and its transport.
type ClientConfig struct {
	Headers      map[string]string `yaml:"headers"`
	URL          string            `yaml:"url"`
	Transport    string            `yaml:"transport"` // xnet, gorilla or coderws
	Subprotocols []string          `yaml:"subprotocols"`
	// ResumeSecond is the first reconnect delay in seconds. Fractions are allowed.
	ResumeSecond       float64       `yaml:"resume_second"`
	MaxResume          int           `yaml:"max_resume"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	ResetBackoffOnOpen bool          `yaml:"reset_backoff_on_open"`
}

// SupervisorConfig controls how the CLI restarts a manager that failed.
type SupervisorConfig struct {
	Restarts uint          `yaml:"restarts"` // 0 restarts forever
	Delay    time.Duration `yaml:"delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// EchoConfig configures the flaky echo server.
type EchoConfig struct {
	Addr          string        `yaml:"addr"`
	DropAfter     time.Duration `yaml:"drop_after"`
	DropEvery     int           `yaml:"drop_every"`
	AcceptRate    float64       `yaml:"accept_rate"`
	AcceptBurst   int           `yaml:"accept_burst"`
	MaxConnsPerIP int           `yaml:"max_conns_per_ip"`
	MaxConnsTotal int           `yaml:"max_conns_total"`
}

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}
