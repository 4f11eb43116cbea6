package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config - all environment settings for the imagery server.
// Loaded once at startup and passed by reference to every component.
type Config struct {
	// Data
	SnapshotPath string
	RulesPath    string
	FeedbackPath string

	// Output
	OutputBase   string
	CounterStart int
	CounterMax   int

	// Gemini API
	GeminiAPIKeys []string
	ImageModel    string
	VisionModel   string

	// Generation
	EngineVersion    string // "v1" or "v2"
	AspectRatio      string
	ImageSize        string // 1K, 2K, 4K (v2 only)
	ConstitutionPath string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase mirror (optional)
	SupabaseURL        string
	SupabaseServiceKey string
	MirrorBucket       string

	// Server
	Port string
}

// Load - read .env (if present) plus process environment and validate.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := false
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	cfg := &Config{
		SnapshotPath: getEnv("PRODUCT_SNAPSHOT_PATH", "products.csv"),
		RulesPath:    getEnv("GOVERNANCE_RULES_PATH", "governance_rules.yaml"),
		FeedbackPath: getEnv("FEEDBACK_PATH", "feedback.yaml"),

		OutputBase:   getEnv("OUTPUT_BASE", "./output"),
		CounterStart: getEnvInt("COUNTER_START", 101),
		CounterMax:   getEnvInt("COUNTER_MAX", 110),

		GeminiAPIKeys: splitKeys(os.Getenv("GEMINI_API_KEY")),
		ImageModel:    getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		VisionModel:   getEnv("GEMINI_VISION_MODEL", "gemini-2.5-flash"),

		EngineVersion:    getEnv("ENGINE_VERSION", "v1"),
		AspectRatio:      getEnv("ASPECT_RATIO", "1:1"),
		ImageSize:        getEnv("IMAGE_SIZE", "1K"),
		ConstitutionPath: getEnv("SAFETY_CONSTITUTION_PATH", "safety_constitution.yaml"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		MirrorBucket:       getEnv("SUPABASE_MIRROR_BUCKET", "imagery"),

		Port: getEnv("PORT", "8080"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Snapshot: %s", cfg.SnapshotPath)
	log.Printf("   Rules: %s", cfg.RulesPath)
	log.Printf("   Engine: %s (image model: %s)", cfg.EngineVersion, cfg.ImageModel)
	log.Printf("   Output: %s (counters %d-%d)", cfg.OutputBase, cfg.CounterStart, cfg.CounterMax)

	return cfg, nil
}

// validate - required settings; the server cannot run without governance or data.
func (c *Config) validate() error {
	if c.RulesPath == "" {
		return fmt.Errorf("GOVERNANCE_RULES_PATH is required")
	}
	if c.SnapshotPath == "" {
		return fmt.Errorf("PRODUCT_SNAPSHOT_PATH is required")
	}
	if len(c.GeminiAPIKeys) == 0 {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.EngineVersion != "v1" && c.EngineVersion != "v2" {
		return fmt.Errorf("ENGINE_VERSION must be v1 or v2, got %q", c.EngineVersion)
	}
	if c.CounterStart > c.CounterMax {
		return fmt.Errorf("COUNTER_START (%d) must not exceed COUNTER_MAX (%d)", c.CounterStart, c.CounterMax)
	}
	return nil
}

// MirrorEnabled - whether the optional Supabase artifact mirror is configured.
func (c *Config) MirrorEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseServiceKey != ""
}

// GetRedisAddr - Redis connection string.
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

// getEnv - environment variable with default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt - integer environment variable with default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// splitKeys - comma-separated API keys for rate-limit rotation.
func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
