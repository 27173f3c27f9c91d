package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Provider mode constants control which generation backends the gateway
// tries, and in what order.
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderAuto       = "auto"
)

// Comment drip frequency tiers.
const (
	DripDense  = "dense"
	DripNormal = "normal"
	DripSlow   = "slow"
)

// Config holds application configuration loaded from environment variables
type Config struct {
	Env       string
	Port      string
	LogLevel  string
	LogFormat string
	APIToken  string

	DatabaseURL string
	RedisURL    string

	// Provider selection and credentials
	ProviderMode     string // openai | openrouter | auto
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	OpenRouterAPIKey string
	OpenRouterModel  string
	ImageProvider    string // backend used for image generation (no fallback)
	ImageStyle       string

	// Generation policy
	IntervalHours int // minimum hours between autonomous articles (floor 72)
	WordCountMin  int
	WordCountMax  int
	Tone          string
	SiteTimezone  string
	PreviewMode   bool // generation runs but nothing is persisted
	ImageBuilds   bool // publish image-build requests to the render sidecar

	// Engagement drip policy
	CommentMin           int
	CommentMax           int
	DripFrequency        string // dense | normal | slow
	CommentSimilarityPct int    // near-duplicate rejection threshold
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Env:       getEnvWithDefault("ENV", "development"),
		Port:      getEnvWithDefault("PORT", "8080"),
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),
		APIToken:  os.Getenv("API_TOKEN"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    getEnvWithDefault("REDIS_URL", "redis://localhost:6379/0"),

		ProviderMode:     getEnvWithDefault("PROVIDER_MODE", ProviderAuto),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvWithDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:  getEnvWithDefault("OPENROUTER_MODEL", "openai/gpt-4o-mini"),
		ImageProvider:    getEnvWithDefault("IMAGE_PROVIDER", ProviderOpenAI),
		ImageStyle:       getEnvWithDefault("IMAGE_STYLE", "editorial illustration, muted colors"),

		IntervalHours: getEnvInt("INTERVAL_HOURS", 96),
		WordCountMin:  getEnvInt("WORD_COUNT_MIN", 700),
		WordCountMax:  getEnvInt("WORD_COUNT_MAX", 1400),
		Tone:          getEnvWithDefault("TONE", "informal but well-researched"),
		SiteTimezone:  getEnvWithDefault("SITE_TIMEZONE", "UTC"),
		PreviewMode:   getEnvBool("PREVIEW_MODE", false),
		ImageBuilds:   getEnvBool("IMAGE_BUILDS", false),

		CommentMin:           getEnvInt("COMMENT_MIN", 2),
		CommentMax:           getEnvInt("COMMENT_MAX", 6),
		DripFrequency:        getEnvWithDefault("DRIP_FREQUENCY", DripNormal),
		CommentSimilarityPct: getEnvInt("COMMENT_SIMILARITY_PCT", 88),
	}

	cfg.normalize()
	return cfg
}

// normalize clamps malformed values to usable defaults instead of failing
// startup. Bounds invariants (min <= max) are enforced here so the drip and
// prompt sizing code can assume them.
func (c *Config) normalize() {
	switch c.ProviderMode {
	case ProviderOpenAI, ProviderOpenRouter, ProviderAuto:
	default:
		log.Printf("WARNING: unknown PROVIDER_MODE %q, using %q", c.ProviderMode, ProviderAuto)
		c.ProviderMode = ProviderAuto
	}

	switch c.DripFrequency {
	case DripDense, DripNormal, DripSlow:
	default:
		log.Printf("WARNING: unknown DRIP_FREQUENCY %q, using %q", c.DripFrequency, DripNormal)
		c.DripFrequency = DripNormal
	}

	if c.WordCountMin > c.WordCountMax {
		log.Printf("WARNING: WORD_COUNT_MIN %d > WORD_COUNT_MAX %d, swapping", c.WordCountMin, c.WordCountMax)
		c.WordCountMin, c.WordCountMax = c.WordCountMax, c.WordCountMin
	}
	if c.CommentMin > c.CommentMax {
		log.Printf("WARNING: COMMENT_MIN %d > COMMENT_MAX %d, swapping", c.CommentMin, c.CommentMax)
		c.CommentMin, c.CommentMax = c.CommentMax, c.CommentMin
	}
	if c.CommentMin < 0 {
		c.CommentMin = 0
	}

	if c.IntervalHours < 72 {
		log.Printf("WARNING: INTERVAL_HOURS %d below the 72h floor, raising", c.IntervalHours)
		c.IntervalHours = 72
	}

	if c.CommentSimilarityPct < 1 || c.CommentSimilarityPct > 100 {
		log.Printf("WARNING: COMMENT_SIMILARITY_PCT %d outside 1..100, using 88", c.CommentSimilarityPct)
		c.CommentSimilarityPct = 88
	}
}

// Location resolves the configured site timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.SiteTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DripWindow returns the length of the comment-drip window for the
// configured frequency tier.
func (c *Config) DripWindow() time.Duration {
	switch c.DripFrequency {
	case DripDense:
		return 36 * time.Hour
	case DripSlow:
		return 168 * time.Hour
	default:
		return 96 * time.Hour
	}
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("WARNING: %s=%q is not an integer, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		log.Printf("WARNING: %s=%q is not a boolean, using %t", key, raw, defaultValue)
		return defaultValue
	}
}
