package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Catalog sources.
const (
	CatalogBuiltin = "builtin"
	CatalogFile    = "file"
	CatalogSQL     = "sql"
)

// Assistant modes.
const (
	AssistantLocal  = "local"
	AssistantRemote = "remote"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	LogMode  string // dev|prod

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	CatalogSource string // builtin|file|sql
	CatalogPath   string // for file

	DBDriver string // sqlite|postgres, for the sql catalog
	DBDSN    string

	AssistantMode     string // local|remote
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	OpenRouterModel   string
	OpenRouterReferer string
	OpenRouterTimeout time.Duration
	OpenRouterRetries int

	RedisAddr        string // optional reaction cache
	ReactionCacheTTL time.Duration

	SynthAttempts int
	SessionTTL    time.Duration // idle sessions are evicted after this; 0 keeps them

	OTelEnabled     bool
	OTelEndpoint    string
	OTelServiceName string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	logMode := "dev"
	if mode == ModeOnline {
		logMode = "prod"
	}
	return Config{
		Mode:     mode,
		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		LogMode:  envOr("LOG_MODE", logMode),

		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://moyenne.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:5173"),

		CatalogSource: strings.ToLower(envOr("CATALOG_SOURCE", CatalogBuiltin)),
		CatalogPath:   envOr("CATALOG_PATH", "./catalog.yaml"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),

		AssistantMode:     strings.ToLower(envOr("ASSISTANT_MODE", AssistantLocal)),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterBaseURL: strings.TrimRight(envOr("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"), "/"),
		OpenRouterModel:   envOr("OPENROUTER_MODEL", "meta-llama/llama-3.3-70b-instruct:free"),
		OpenRouterReferer: envOr("OPENROUTER_REFERER", "http://localhost:3000"),
		OpenRouterTimeout: time.Duration(envInt("OPENROUTER_TIMEOUT_SECONDS", 30)) * time.Second,
		OpenRouterRetries: envInt("OPENROUTER_MAX_RETRIES", 2),

		RedisAddr:        os.Getenv("REDIS_ADDR"),
		ReactionCacheTTL: envDuration("REACTION_CACHE_TTL", 10*time.Minute),

		SynthAttempts: envInt("SYNTH_ATTEMPTS", 1),
		SessionTTL:    envDuration("SESSION_TTL", 2*time.Hour),

		OTelEnabled:     envBool("OTEL_ENABLED", false),
		OTelEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OTelServiceName: envOr("OTEL_SERVICE_NAME", "moyenne"),
	}
}

// CORSOrigins returns the allowed origins for the configured mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
