package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay.
type Config struct {
	// Listen address
	Port             int
	BindHost         string
	PortFallbacks    []int
	PortAutoFallback bool

	// Relay behaviour
	HistorySize  int
	LocalEcho    bool
	RelayMedia   bool
	SelfID       string
	SelfName     string
	SendErrorAck bool

	// Viewer channels
	ViewerQueue    int
	WriteTimeoutMS int

	// Account gateway
	GatewayURL    string
	CallTimeoutMS int

	// Logging
	LogLevel string
	LogFile  string

	// Optional extras
	TranscriptDir   string
	TranscriptMaxMB int
	NotifyURL       string
	CORSOrigins     []string
	ConfigFile      string
}

// Load reads configuration from environment variables and optional .env file,
// then applies the YAML overlay named by RELAY_CONFIG_FILE.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		Port:             getEnvIntOrDefault("PORT", 3000),
		BindHost:         getEnvOrDefault("RELAY_BIND_HOST", ""),
		PortFallbacks:    getEnvIntList("RELAY_PORT_FALLBACKS"),
		PortAutoFallback: getEnvBoolOrDefault("RELAY_PORT_AUTO_FALLBACK", false),
		HistorySize:      getEnvIntOrDefault("RELAY_HISTORY_SIZE", 200),
		LocalEcho:        getEnvBoolOrDefault("RELAY_LOCAL_ECHO", true),
		RelayMedia:       getEnvBoolOrDefault("RELAY_RELAY_MEDIA", true),
		SelfID:           getEnvOrDefault("RELAY_SELF_ID", "self"),
		SelfName:         getEnvOrDefault("RELAY_SELF_NAME", "Me"),
		SendErrorAck:     getEnvBoolOrDefault("RELAY_SEND_ERROR_ACK", true),
		ViewerQueue:      getEnvIntOrDefault("RELAY_VIEWER_QUEUE", 256),
		WriteTimeoutMS:   getEnvIntOrDefault("RELAY_WRITE_TIMEOUT_MS", 10000),
		GatewayURL:       getEnvOrDefault("ACCOUNT_GATEWAY_URL", "ws://127.0.0.1:3100/gateway"),
		CallTimeoutMS:    getEnvIntOrDefault("ACCOUNT_CALL_TIMEOUT_MS", 30000),
		LogLevel:         strings.ToLower(getEnvOrDefault("RELAY_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("RELAY_LOG_FILE", "logs/relay.log"),
		TranscriptDir:    getEnvOrDefault("RELAY_TRANSCRIPT_DIR", ""),
		TranscriptMaxMB:  getEnvIntOrDefault("RELAY_TRANSCRIPT_MAX_MB", 50),
		NotifyURL:        getEnvOrDefault("RELAY_NOTIFY_URL", ""),
		CORSOrigins:      getEnvList("RELAY_CORS_ORIGINS"),
		ConfigFile:       getEnvOrDefault("RELAY_CONFIG_FILE", ""),
	}

	if cfg.ConfigFile != "" {
		overlay, err := LoadOverlay(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		overlay.Apply(cfg)
	}

	if cfg.WriteTimeoutMS < 1000 {
		cfg.WriteTimeoutMS = 1000
	}
	if cfg.CallTimeoutMS < 1000 {
		cfg.CallTimeoutMS = 1000
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: PORT out of range: %d", cfg.Port)
	}
	if cfg.HistorySize < 1 {
		return nil, fmt.Errorf("config: history size must be positive: %d", cfg.HistorySize)
	}
	return cfg, nil
}

// BindAddr returns the preferred listen address.
func (c *Config) BindAddr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.Port))
}

// FallbackAddrs returns the listen addresses tried when BindAddr is busy.
func (c *Config) FallbackAddrs() []string {
	addrs := make([]string, 0, len(c.PortFallbacks))
	for _, p := range c.PortFallbacks {
		addrs = append(addrs, net.JoinHostPort(c.BindHost, strconv.Itoa(p)))
	}
	return addrs
}

// WriteTimeout bounds a single viewer frame write.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMS) * time.Millisecond
}

// CallTimeout bounds a single account gateway request.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutMS) * time.Millisecond
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
		slog.Warn("ignoring invalid integer setting", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
		slog.Warn("ignoring invalid boolean setting", "key", key, "value", val)
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvIntList(key string) []int {
	var out []int
	for _, part := range getEnvList(key) {
		p, err := strconv.Atoi(part)
		if err != nil {
			slog.Warn("ignoring invalid port in list", "key", key, "value", part)
			continue
		}
		out = append(out, p)
	}
	return out
}
