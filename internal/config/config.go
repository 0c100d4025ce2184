// Package config provides gateway configuration loaded from environment variables.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/kelseyhightower/envconfig"
)

const logPrefix = "config:LoadConfig"

// Trade facade kinds.
const (
	FacadeSimulator = "simulator"
	FacadeComms     = "comms"
)

// Config holds tts-gateway configuration.
type Config struct {
	// HTTP listener
	Host              string        `envconfig:"GATEWAY_HOST" default:"0.0.0.0"`
	Port              int           `envconfig:"GATEWAY_PORT" default:"8080"`
	MaxBodyBytes      int64         `envconfig:"GATEWAY_MAX_BODY_BYTES" default:"1048576"`
	ShutdownTimeout   time.Duration `envconfig:"GATEWAY_SHUTDOWN_TIMEOUT" default:"10s"`
	ReadHeaderTimeout time.Duration `envconfig:"GATEWAY_READ_HEADER_TIMEOUT" default:"5s"`

	// Trade facade
	TradeFacade         string        `envconfig:"TRADE_FACADE" default:"simulator"`
	TradeSubjectPrefix  string        `envconfig:"TRADE_SUBJECT_PREFIX" default:"cap.tts.trade.v1"`
	TradeRequestTimeout time.Duration `envconfig:"TRADE_REQUEST_TIMEOUT" default:"25s"`

	// Simulator
	SimFixtureFile      string `envconfig:"SIM_FIXTURE_FILE"`
	SimMinClientVersion string `envconfig:"SIM_MIN_CLIENT_VERSION"`

	// COMMS: empty COMMSURL disables the command transport, events and the comms facade.
	COMMSURL       string `envconfig:"COMMS_URL"`
	COMMSName      string `envconfig:"SERVICE_NAME" default:"tts-gateway"`
	CommandSubject string `envconfig:"GATEWAY_COMMAND_SUBJECT" default:"cap.tts.gateway.v1"`
	EventSubject   string `envconfig:"GATEWAY_EVENT_SUBJECT" default:"tts.gateway.commands"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Addr is the listener address, host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// CommsEnabled reports whether a COMMS URL is configured.
func (c *Config) CommsEnabled() bool {
	return c.COMMSURL != ""
}

// ValidateForServe checks required config when running the gateway.
func (c *Config) ValidateForServe() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%s - GATEWAY_PORT %d out of range", logPrefix, c.Port)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("%s - GATEWAY_MAX_BODY_BYTES must be positive", logPrefix)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_SHUTDOWN_TIMEOUT must be positive", logPrefix)
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("%s - GATEWAY_READ_HEADER_TIMEOUT must be positive", logPrefix)
	}
	if c.TradeRequestTimeout <= 0 {
		return fmt.Errorf("%s - TRADE_REQUEST_TIMEOUT must be positive", logPrefix)
	}
	switch c.TradeFacade {
	case FacadeSimulator:
	case FacadeComms:
		if !c.CommsEnabled() {
			return fmt.Errorf("%s - COMMS_URL is required for TRADE_FACADE=%s", logPrefix, FacadeComms)
		}
	default:
		return fmt.Errorf("%s - unknown TRADE_FACADE %q", logPrefix, c.TradeFacade)
	}
	if c.SimMinClientVersion != "" {
		if _, err := semver.NewConstraint(c.SimMinClientVersion); err != nil {
			return fmt.Errorf("%s - SIM_MIN_CLIENT_VERSION: %w", logPrefix, err)
		}
	}
	return nil
}
