package main

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port      string
	StaticDir string

	// Extra origins accepted on top of the server's own scheme+host.
	AllowedOrigins []string

	TokenTTL        time.Duration
	MaxMessageBytes int

	ChatLimit  int
	ChatWindow time.Duration
	CtrlLimit  int
	CtrlWindow time.Duration

	ConnectLimit  int
	ConnectWindow time.Duration
	BanDuration   time.Duration

	// Router-wide HTTP request throttle, requests per second per IP.
	HTTPRateLimit uint

	HSTS bool

	// Optional fixed key for IP pseudonymization; random per boot when empty.
	IdentityKey string
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	return time.Duration(envInt(key, int(fallback/time.Second))) * time.Second
}

func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func LoadConfig() Config {
	return Config{
		Port:            envStr("NT_PORT", "5000"),
		StaticDir:       envStr("NT_STATIC_DIR", ""),
		AllowedOrigins:  envList("NT_ALLOWED_ORIGINS"),
		TokenTTL:        envSeconds("NT_TOKEN_TTL_SECONDS", 120*time.Second),
		MaxMessageBytes: envInt("NT_MAX_MESSAGE_BYTES", 16384),
		ChatLimit:       envInt("NT_CHAT_LIMIT", 90),
		ChatWindow:      envSeconds("NT_CHAT_WINDOW_SECONDS", 10*time.Second),
		CtrlLimit:       envInt("NT_CTRL_LIMIT", 120),
		CtrlWindow:      envSeconds("NT_CTRL_WINDOW_SECONDS", 10*time.Second),
		ConnectLimit:    envInt("NT_CONN_LIMIT", 30),
		ConnectWindow:   envSeconds("NT_CONN_WINDOW_SECONDS", 60*time.Second),
		BanDuration:     envSeconds("NT_BAN_SECONDS", 60*time.Second),
		HTTPRateLimit:   uint(envInt("NT_HTTP_RATE_LIMIT", 150)),
		HSTS:            envBool("NT_HSTS", true),
		IdentityKey:     envStr("NT_IDENTITY_KEY", ""),
	}
}
