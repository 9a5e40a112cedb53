package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	BackendURL       string
	AuthKey          string
	Environment      string
	MinTicketAge     time.Duration
	PollAttempts     int
	PollInterval     time.Duration
	PreferredRegions []string
	PortName         string
	GatewayPort      int
	OpsPort          int
	LogLevel         string
}

func Load(getenv func(string) string) *Config {
	cfg := &Config{
		BackendURL:       strings.TrimRight(strings.TrimSpace(getenv("GATEWAY_BACKEND_URL")), "/"),
		AuthKey:          strings.TrimSpace(getenv("GATEWAY_AUTH_KEY")),
		Environment:      strings.TrimSpace(getEnv(getenv, "GATEWAY_ENVIRONMENT", "production")),
		MinTicketAge:     getEnvDuration(getenv, "GATEWAY_MIN_TICKET_AGE", 30*time.Second),
		PollAttempts:     getEnvInt(getenv, "GATEWAY_POLL_ATTEMPTS", 10),
		PollInterval:     getEnvDuration(getenv, "GATEWAY_POLL_INTERVAL", time.Second),
		PreferredRegions: splitCSV(getenv("GATEWAY_PREFERRED_REGIONS")),
		PortName:         strings.TrimSpace(getenv("GATEWAY_PORT_NAME")),
		GatewayPort:      getEnvInt(getenv, "GATEWAY_PORT", 8000),
		OpsPort:          getEnvInt(getenv, "GATEWAY_OPS_PORT", 8080),
		LogLevel:         strings.TrimSpace(getEnv(getenv, "GATEWAY_LOG_LEVEL", "info")),
	}

	if cfg.BackendURL == "" {
		log.Warn().Msg("backend URL not set; set GATEWAY_BACKEND_URL")
	}
	if cfg.AuthKey == "" {
		log.Warn().Msg("backend auth key not set; set GATEWAY_AUTH_KEY")
	}
	return cfg
}

func (c *Config) GatewayAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.GatewayPort))
}

func (c *Config) OpsAddr() string {
	return net.JoinHostPort("0.0.0.0", strconv.Itoa(c.OpsPort))
}

// Redacted returns a view safe for logging
func (c *Config) Redacted() map[string]any {
	return map[string]any{
		"backendURL":       c.BackendURL,
		"authKeyProvided":  c.AuthKey != "",
		"environment":      c.Environment,
		"minTicketAge":     c.MinTicketAge.String(),
		"pollAttempts":     c.PollAttempts,
		"pollInterval":     c.PollInterval.String(),
		"preferredRegions": c.PreferredRegions,
		"portName":         c.PortName,
		"gatewayPort":      c.GatewayPort,
		"opsPort":          c.OpsPort,
		"logLevel":         c.LogLevel,
	}
}

func getEnv(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(getenv func(string) string, key string, def int) int {
	if v := getenv(key); v != "" {
		iv, err := strconv.Atoi(v)
		if err == nil {
			return iv
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid int in environment; using default")
	}
	return def
}

func getEnvDuration(getenv func(string) string, key string, def time.Duration) time.Duration {
	if v := getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment; using default")
	}
	return def
}

func splitCSV(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
