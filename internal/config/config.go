package config

import (
	"os"
	"strings"
	"time"

	"github.com/onnwee/tripletree/internal/utils"
)

// Config holds application configuration derived from environment variables.
type Config struct {
	// Simulation defaults; request parameters override these per run.
	Coeff         float64 // triple-interaction coupling coefficient
	RelativeError float64 // allowed relative force error
	ZScore        float64 // confidence multiplier for sampled prunes
	LeafSize      int     // spatial tree leaf capacity
	MaxSamples    int     // sampling budget per node triple
	MonteCarlo    bool    // allow probabilistic pruning by default
	MaxPoints     int     // largest accepted dataset per run

	// Background job control
	JobInterval   time.Duration
	DisableRunJob bool

	// Result cache
	CacheMaxSizeMB int64
	CacheMaxItems  int64
	CacheTTL       time.Duration

	// Database
	DBStatementTimeout time.Duration

	// Security settings
	RateLimitGlobal      float64 // requests per second globally
	RateLimitGlobalBurst int
	RateLimitPerIP       float64 // requests per second per IP
	RateLimitPerIPBurst  int
	EnableRateLimit      bool

	// Observability settings
	LogLevel          string  // debug, info, warn, error
	OTELEnabled       bool
	OTELEndpoint      string
	OTELSampleRate    float64 // trace sampling rate (0.0 to 1.0)
	SentryDSN         string
	SentryEnvironment string
	SentryRelease     string
	SentrySampleRate  float64
}

var cached *Config

// Load reads env vars once and caches them.
func Load() *Config {
	if cached != nil {
		return cached
	}
	cached = &Config{
		Coeff:         utils.GetEnvAsFloat("TRIPLE_COEFF", 1e-18),
		RelativeError: utils.GetEnvAsFloat("RELATIVE_ERROR", 0.1),
		ZScore:        utils.GetEnvAsFloat("Z_SCORE", 1.96),
		LeafSize:      utils.GetEnvAsInt("TREE_LEAF_SIZE", 8),
		MaxSamples:    utils.GetEnvAsInt("MC_MAX_SAMPLES", 250),
		MonteCarlo:    utils.GetEnvAsBool("MC_PRUNING", false),
		MaxPoints:     utils.GetEnvAsInt("MAX_POINTS", 100000),

		JobInterval:   time.Duration(utils.GetEnvAsInt("RUN_JOB_INTERVAL_MS", 2000)) * time.Millisecond,
		DisableRunJob: utils.GetEnvAsBool("DISABLE_RUN_JOB", false),

		CacheMaxSizeMB: int64(utils.GetEnvAsInt("RESULT_CACHE_MB", 256)),
		CacheMaxItems:  int64(utils.GetEnvAsInt("RESULT_CACHE_ITEMS", 1000)),
		CacheTTL:       time.Duration(utils.GetEnvAsInt("RESULT_CACHE_TTL_MIN", 60)) * time.Minute,

		DBStatementTimeout: time.Duration(utils.GetEnvAsInt("DB_STATEMENT_TIMEOUT_MS", 25000)) * time.Millisecond,

		RateLimitGlobal:      utils.GetEnvAsFloat("RATE_LIMIT_GLOBAL", 100.0),
		RateLimitGlobalBurst: utils.GetEnvAsInt("RATE_LIMIT_GLOBAL_BURST", 200),
		RateLimitPerIP:       utils.GetEnvAsFloat("RATE_LIMIT_PER_IP", 10.0),
		RateLimitPerIPBurst:  utils.GetEnvAsInt("RATE_LIMIT_PER_IP_BURST", 20),
		EnableRateLimit:      utils.GetEnvAsBool("ENABLE_RATE_LIMIT", true),

		LogLevel:          strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))),
		OTELEnabled:       utils.GetEnvAsBool("OTEL_ENABLED", false),
		OTELEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampleRate:    utils.GetEnvAsFloat("OTEL_TRACE_SAMPLE_RATE", 0.1),
		SentryDSN:         strings.TrimSpace(os.Getenv("SENTRY_DSN")),
		SentryEnvironment: strings.TrimSpace(os.Getenv("SENTRY_ENVIRONMENT")),
		SentryRelease:     strings.TrimSpace(os.Getenv("SENTRY_RELEASE")),
		SentrySampleRate:  utils.GetEnvAsFloat("SENTRY_SAMPLE_RATE", 1.0),
	}
	if cached.LogLevel == "" {
		cached.LogLevel = "info"
	}
	if cached.SentryEnvironment == "" {
		if env := os.Getenv("ENV"); env != "" {
			cached.SentryEnvironment = env
		} else {
			cached.SentryEnvironment = "development"
		}
	}
	return cached
}

// ResetForTest clears cached config; for use in tests only.
func ResetForTest() { cached = nil }
