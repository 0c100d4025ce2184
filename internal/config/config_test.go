package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const configTestPrefix = "config:config_test"

var envVars = []string{
	"GATEWAY_HOST", "GATEWAY_PORT", "GATEWAY_MAX_BODY_BYTES",
	"GATEWAY_SHUTDOWN_TIMEOUT", "GATEWAY_READ_HEADER_TIMEOUT",
	"TRADE_FACADE", "TRADE_SUBJECT_PREFIX", "TRADE_REQUEST_TIMEOUT",
	"SIM_FIXTURE_FILE", "SIM_MIN_CLIENT_VERSION",
	"COMMS_URL", "SERVICE_NAME", "GATEWAY_COMMAND_SUBJECT", "GATEWAY_EVENT_SUBJECT",
	"LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envVars {
		if val, ok := os.LookupEnv(env); ok {
			os.Unsetenv(env)
			t.Cleanup(func() { os.Setenv(env, val) })
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", configTestPrefix, err)
	}

	if cfg.Host != "0.0.0.0" {
		t.Errorf("%s - Host = %q, want 0.0.0.0", configTestPrefix, cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("%s - Port = %d, want 8080", configTestPrefix, cfg.Port)
	}
	if cfg.MaxBodyBytes != 1048576 {
		t.Errorf("%s - MaxBodyBytes = %d, want 1048576", configTestPrefix, cfg.MaxBodyBytes)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("%s - ShutdownTimeout = %v, want 10s", configTestPrefix, cfg.ShutdownTimeout)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second {
		t.Errorf("%s - ReadHeaderTimeout = %v, want 5s", configTestPrefix, cfg.ReadHeaderTimeout)
	}
	if cfg.TradeFacade != FacadeSimulator {
		t.Errorf("%s - TradeFacade = %q, want simulator", configTestPrefix, cfg.TradeFacade)
	}
	if cfg.TradeSubjectPrefix != "cap.tts.trade.v1" {
		t.Errorf("%s - TradeSubjectPrefix = %q", configTestPrefix, cfg.TradeSubjectPrefix)
	}
	if cfg.TradeRequestTimeout != 25*time.Second {
		t.Errorf("%s - TradeRequestTimeout = %v, want 25s", configTestPrefix, cfg.TradeRequestTimeout)
	}
	if cfg.SimFixtureFile != "" || cfg.SimMinClientVersion != "" {
		t.Errorf("%s - simulator settings should default to empty", configTestPrefix)
	}
	if cfg.COMMSURL != "" || cfg.CommsEnabled() {
		t.Errorf("%s - COMMS should be disabled by default, COMMSURL = %q", configTestPrefix, cfg.COMMSURL)
	}
	if cfg.COMMSName != "tts-gateway" {
		t.Errorf("%s - COMMSName = %q, want tts-gateway", configTestPrefix, cfg.COMMSName)
	}
	if cfg.CommandSubject != "cap.tts.gateway.v1" {
		t.Errorf("%s - CommandSubject = %q", configTestPrefix, cfg.CommandSubject)
	}
	if cfg.EventSubject != "tts.gateway.commands" {
		t.Errorf("%s - EventSubject = %q", configTestPrefix, cfg.EventSubject)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("%s - LogLevel = %q, want info", configTestPrefix, cfg.LogLevel)
	}
	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("%s - Addr() = %q", configTestPrefix, cfg.Addr())
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("%s - defaults should validate: %v", configTestPrefix, err)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	overrides := map[string]string{
		"GATEWAY_HOST":                "127.0.0.1",
		"GATEWAY_PORT":                "9090",
		"GATEWAY_MAX_BODY_BYTES":      "4096",
		"GATEWAY_SHUTDOWN_TIMEOUT":    "2s",
		"GATEWAY_READ_HEADER_TIMEOUT": "1s",
		"TRADE_FACADE":                "comms",
		"TRADE_SUBJECT_PREFIX":        "trade.custom",
		"TRADE_REQUEST_TIMEOUT":       "3s",
		"SIM_FIXTURE_FILE":            "/tmp/fixtures.yaml",
		"SIM_MIN_CLIENT_VERSION":      ">= 6.0.0",
		"COMMS_URL":                   "nats://custom:4222",
		"SERVICE_NAME":                "gw-test",
		"GATEWAY_COMMAND_SUBJECT":     "gw.cmd",
		"GATEWAY_EVENT_SUBJECT":       "gw.events",
		"LOG_LEVEL":                   "debug",
	}
	for key, val := range overrides {
		t.Setenv(key, val)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", configTestPrefix, err)
	}

	if cfg.Addr() != "127.0.0.1:9090" {
		t.Errorf("%s - Addr() = %q, want 127.0.0.1:9090", configTestPrefix, cfg.Addr())
	}
	if cfg.MaxBodyBytes != 4096 {
		t.Errorf("%s - MaxBodyBytes = %d, want 4096", configTestPrefix, cfg.MaxBodyBytes)
	}
	if cfg.ShutdownTimeout != 2*time.Second || cfg.ReadHeaderTimeout != time.Second || cfg.TradeRequestTimeout != 3*time.Second {
		t.Errorf("%s - timeouts = %v/%v/%v", configTestPrefix, cfg.ShutdownTimeout, cfg.ReadHeaderTimeout, cfg.TradeRequestTimeout)
	}
	if cfg.TradeFacade != FacadeComms || cfg.TradeSubjectPrefix != "trade.custom" {
		t.Errorf("%s - facade = %q prefix = %q", configTestPrefix, cfg.TradeFacade, cfg.TradeSubjectPrefix)
	}
	if cfg.SimFixtureFile != "/tmp/fixtures.yaml" || cfg.SimMinClientVersion != ">= 6.0.0" {
		t.Errorf("%s - simulator = %q / %q", configTestPrefix, cfg.SimFixtureFile, cfg.SimMinClientVersion)
	}
	if !cfg.CommsEnabled() || cfg.COMMSName != "gw-test" {
		t.Errorf("%s - COMMS = %q as %q", configTestPrefix, cfg.COMMSURL, cfg.COMMSName)
	}
	if cfg.CommandSubject != "gw.cmd" || cfg.EventSubject != "gw.events" {
		t.Errorf("%s - subjects = %q / %q", configTestPrefix, cfg.CommandSubject, cfg.EventSubject)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("%s - LogLevel = %q, want debug", configTestPrefix, cfg.LogLevel)
	}
	if err := cfg.ValidateForServe(); err != nil {
		t.Errorf("%s - overrides should validate: %v", configTestPrefix, err)
	}
}

func TestLoadConfig_InvalidValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("GATEWAY_PORT", "eighty")

	if _, err := LoadConfig(); err == nil {
		t.Errorf("%s - expected error for non-numeric port", configTestPrefix)
	}
}

func TestLoadConfig_LogLevels(t *testing.T) {
	clearEnv(t)
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Setenv("LOG_LEVEL", level)
		cfg, err := LoadConfig()
		if err != nil {
			t.Fatalf("%s - unexpected error for level %q: %v", configTestPrefix, level, err)
		}
		if cfg.LogLevel != level {
			t.Errorf("%s - LogLevel = %q, want %q", configTestPrefix, cfg.LogLevel, level)
		}
	}
}

func validConfig() *Config {
	return &Config{
		Host:                "127.0.0.1",
		Port:                0,
		MaxBodyBytes:        1024,
		ShutdownTimeout:     time.Second,
		ReadHeaderTimeout:   time.Second,
		TradeFacade:         FacadeSimulator,
		TradeRequestTimeout: time.Second,
	}
}

func TestValidateForServe(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid ephemeral port", mutate: func(*Config) {}},
		{name: "port too large", mutate: func(c *Config) { c.Port = 70000 }, wantErr: "GATEWAY_PORT"},
		{name: "negative port", mutate: func(c *Config) { c.Port = -1 }, wantErr: "GATEWAY_PORT"},
		{name: "zero body bound", mutate: func(c *Config) { c.MaxBodyBytes = 0 }, wantErr: "GATEWAY_MAX_BODY_BYTES"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.ShutdownTimeout = 0 }, wantErr: "GATEWAY_SHUTDOWN_TIMEOUT"},
		{name: "zero header timeout", mutate: func(c *Config) { c.ReadHeaderTimeout = 0 }, wantErr: "GATEWAY_READ_HEADER_TIMEOUT"},
		{name: "zero trade timeout", mutate: func(c *Config) { c.TradeRequestTimeout = 0 }, wantErr: "TRADE_REQUEST_TIMEOUT"},
		{name: "unknown facade", mutate: func(c *Config) { c.TradeFacade = "broker" }, wantErr: "TRADE_FACADE"},
		{name: "comms facade without url", mutate: func(c *Config) { c.TradeFacade = FacadeComms }, wantErr: "COMMS_URL"},
		{name: "comms facade with url", mutate: func(c *Config) { c.TradeFacade = FacadeComms; c.COMMSURL = "nats://127.0.0.1:4222" }},
		{name: "bad version constraint", mutate: func(c *Config) { c.SimMinClientVersion = "not a constraint" }, wantErr: "SIM_MIN_CLIENT_VERSION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.ValidateForServe()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("%s - unexpected error: %v", configTestPrefix, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("%s - error = %v, want mention of %s", configTestPrefix, err, tt.wantErr)
			}
		})
	}
}
