// package config loads application configuration from environment variables.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// youtube channel
	BotDisplayName string
	LiveVideoID    string // resolved through the api when empty

	// chat fetchers
	ScraperEnabled      bool
	ScraperHeadless     bool
	ScraperPollDelay    time.Duration
	ScraperSetupTimeout time.Duration
	ScraperMaxErrors    int
	APIEnabled          bool
	APIMaxResults       int64
	APIMaxErrors        int
	StartupDelay        time.Duration
	ManualInputEnabled  bool

	// youtube oauth
	YTClientSecretFile string
	YTTokenFile        string

	// merger
	MergerHistory int

	// relevance rules (optional yaml file)
	RelevanceConfigFile string

	// chat response
	ResponseEnabled bool
	SendEnabled     bool
	ResponseHistory int
	PromptPrefix    string

	// llm
	LLMBaseURL     string
	LLMModel       string
	LLMAPIKey      string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTopP        float64
	LLMTimeoutSec  int

	// profanity filter
	ProfanityFilterEnabled bool
	ProfanityWordAllowlist []string
	ProfanityAuthorAllow   []string

	// chat logging
	ChatLogEnabled        bool
	DatabaseURL           string
	ChatLogWriteFrequency time.Duration

	// nats
	NatsURL string

	// server
	HTTPPort           int
	HTTPAllowedOrigins []string
	OverlayLimit       int

	// logging
	LogLevel string
	LogFile  string
}

// ErrMissingBotName is returned when BOT_DISPLAY_NAME is not set.
var ErrMissingBotName = errors.New("BOT_DISPLAY_NAME is required")

// DefaultPromptPrefix is the persona used when PROMPT_PREFIX is not set.
const DefaultPromptPrefix = `Your name is Hopii. You are a knowledgable chatbot on the Rocket Future YouTube Channel. You are here to answer questions about SpaceX, Rockets, StarShip, and all things space.
You love space, technology, and ice cream. Your responses MUST be short, less than 150 characters. Do not include any prefixes, just act natural!`

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BotDisplayName:      getEnv("BOT_DISPLAY_NAME", ""),
		LiveVideoID:         getEnv("YT_LIVE_ID", ""),
		ScraperEnabled:      getEnvBool("SCRAPER_ENABLED", true),
		ScraperHeadless:     getEnvBool("SCRAPER_HEADLESS", true),
		ScraperPollDelay:    getEnvDuration("SCRAPER_POLL_DELAY", time.Second),
		ScraperSetupTimeout: getEnvDuration("SCRAPER_SETUP_TIMEOUT", 10*time.Second),
		ScraperMaxErrors:    getEnvInt("SCRAPER_MAX_ERRORS", 5),
		APIEnabled:          getEnvBool("API_ENABLED", true),
		APIMaxResults:       int64(getEnvInt("API_MAX_RESULTS", 100)),
		APIMaxErrors:        getEnvInt("API_MAX_ERRORS", 5),
		StartupDelay:        getEnvDuration("STARTUP_DELAY", 30*time.Second),
		ManualInputEnabled:  getEnvBool("MANUAL_INPUT_ENABLED", false),
		YTClientSecretFile:  getEnv("YT_CLIENT_SECRET_FILE", "google_secret.json"),
		YTTokenFile:         getEnv("YT_TOKEN_FILE", "token.json"),
		MergerHistory:       getEnvInt("MERGER_HISTORY", 50),
		RelevanceConfigFile: getEnv("RELEVANCE_CONFIG", ""),
		ResponseEnabled:     getEnvBool("RESPONSE_ENABLED", true),
		SendEnabled:         getEnvBool("SEND_ENABLED", true),
		ResponseHistory:     getEnvInt("RESPONSE_HISTORY", 100),
		PromptPrefix:        getEnv("PROMPT_PREFIX", DefaultPromptPrefix),
		LLMBaseURL:          getEnv("LLM_BASE_URL", ""),
		LLMModel:            getEnv("LLM_MODEL", "gpt-4"),
		LLMAPIKey:           getEnv("LLM_API_KEY", ""),
		LLMMaxTokens:        getEnvInt("LLM_MAX_TOKENS", 100),
		LLMTimeoutSec:       getEnvInt("LLM_TIMEOUT_SECONDS", 60),

		ProfanityFilterEnabled: getEnvBool("PROFANITY_FILTER_ENABLED", true),
		ProfanityWordAllowlist: getEnvList("PROFANITY_WORD_ALLOWLIST"),
		ProfanityAuthorAllow:   getEnvList("PROFANITY_AUTHOR_ALLOWLIST"),

		ChatLogEnabled:        getEnvBool("CHAT_LOG_ENABLED", false),
		DatabaseURL:           getEnv("DATABASE_URL", "sqlite://chat_logs/chat.db"),
		ChatLogWriteFrequency: getEnvDuration("CHAT_LOG_WRITE_FREQUENCY", 30*time.Second),
		NatsURL:               getEnv("NATS_URL", ""),
		HTTPPort:              getEnvInt("HTTP_PORT", 3100),
		HTTPAllowedOrigins:    getEnvList("HTTP_ALLOWED_ORIGINS"),
		OverlayLimit:          getEnvInt("OVERLAY_LIMIT", 20),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFile:               getEnv("LOG_FILE", "./logs/hopii.log"),
	}

	// float parsing helper
	cfg.LLMTemperature = getEnvFloat("LLM_TEMPERATURE", 0.9)
	cfg.LLMTopP = getEnvFloat("LLM_TOP_P", 0.9)

	if cfg.BotDisplayName == "" {
		return nil, ErrMissingBotName
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("1500ms") or plain seconds ("30").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}

// getEnvList splits a comma separated variable, dropping blanks and duplicates.
func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}
