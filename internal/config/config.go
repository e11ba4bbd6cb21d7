package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Version is the application version reported by the API and the CLI.
const Version = "v1.0.0"

// DefaultTopic is the topic used when a run is started without one.
const DefaultTopic = "Conduct research and provide a detailed explanation on Quantum Computer."

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"

	CacheMemory = "memory"
	CacheNone   = "none"
)

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Port string `json:"port" yaml:"port"`
	Host string `json:"host" yaml:"host"`

	// Gemini API settings
	GeminiAPIKey  string `json:"-" yaml:"-"` // Don't expose in JSON
	GeminiModel   string `json:"gemini_model" yaml:"geminiModel"`
	GeminiBaseURL string `json:"gemini_base_url,omitempty" yaml:"geminiBaseUrl"`
	LLMBackend    string `json:"llm_backend" yaml:"llmBackend"`

	// Prompt templates; empty means the embedded defaults
	PromptsDir string `json:"prompts_dir" yaml:"promptsDir"`

	// Research settings
	WikipediaAPIURL   string `json:"wikipedia_api_url" yaml:"wikipediaApiUrl"`
	ResearchSentences int    `json:"research_sentences" yaml:"researchSentences"`

	// Cache settings
	CacheType     string `json:"cache_type" yaml:"cacheType"`         // "memory" or "none"
	CacheDuration int    `json:"cache_duration" yaml:"cacheDuration"` // in hours

	// Archive settings
	ArchiveBucket string `json:"archive_bucket" yaml:"archiveBucket"`

	// Slack settings
	SlackBotToken string `json:"-" yaml:"-"` // Don't expose in JSON
	SlackChannel  string `json:"slack_channel" yaml:"slackChannel"`

	// Webhook settings
	WebhookAuthToken string `json:"-" yaml:"-"` // Don't expose in JSON

	// Scheduling
	ScheduleCron    string   `json:"schedule_cron" yaml:"scheduleCron"`
	ScheduledTopics []string `json:"scheduled_topics" yaml:"scheduledTopics"`
	DefaultTopic    string   `json:"default_topic" yaml:"defaultTopic"`

	// Logging
	LogLevel string `json:"log_level" yaml:"logLevel"`
	Verbose  bool   `json:"verbose" yaml:"verbose"`
}

// Load reads configuration from the .env file, an optional YAML file named by
// PIPELINE_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	config := defaults()

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}

	config.applyEnv()

	return config, config.validate()
}

func defaults() *Config {
	return &Config{
		Port:              "8080",
		Host:              "0.0.0.0",
		GeminiModel:       "gemini-2.5-flash",
		LLMBackend:        BackendREST,
		WikipediaAPIURL:   "https://en.wikipedia.org/w/api.php",
		ResearchSentences: 5,
		CacheType:         CacheMemory,
		CacheDuration:     24,
		SlackChannel:      "#general",
		DefaultTopic:      DefaultTopic,
		LogLevel:          "info",
	}
}

// loadFile overlays non-zero values from a YAML file.
func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	overlayString(&c.Port, fileCfg.Port)
	overlayString(&c.Host, fileCfg.Host)
	overlayString(&c.GeminiModel, fileCfg.GeminiModel)
	overlayString(&c.GeminiBaseURL, fileCfg.GeminiBaseURL)
	overlayString(&c.LLMBackend, fileCfg.LLMBackend)
	overlayString(&c.PromptsDir, fileCfg.PromptsDir)
	overlayString(&c.WikipediaAPIURL, fileCfg.WikipediaAPIURL)
	overlayString(&c.CacheType, fileCfg.CacheType)
	overlayString(&c.ArchiveBucket, fileCfg.ArchiveBucket)
	overlayString(&c.SlackChannel, fileCfg.SlackChannel)
	overlayString(&c.ScheduleCron, fileCfg.ScheduleCron)
	overlayString(&c.DefaultTopic, fileCfg.DefaultTopic)
	overlayString(&c.LogLevel, fileCfg.LogLevel)

	if fileCfg.ResearchSentences != 0 {
		c.ResearchSentences = fileCfg.ResearchSentences
	}
	if fileCfg.CacheDuration != 0 {
		c.CacheDuration = fileCfg.CacheDuration
	}
	if len(fileCfg.ScheduledTopics) > 0 {
		c.ScheduledTopics = fileCfg.ScheduledTopics
	}
	if fileCfg.Verbose {
		c.Verbose = true
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.Host = getEnvOrDefault("HOST", c.Host)
	c.GeminiAPIKey = getEnvOrDefault("GEMINI_API_KEY", getEnvOrDefault("GOOGLE_API_KEY", ""))
	c.GeminiModel = getEnvOrDefault("GEMINI_MODEL", c.GeminiModel)
	c.GeminiBaseURL = getEnvOrDefault("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.LLMBackend = strings.ToLower(getEnvOrDefault("LLM_BACKEND", c.LLMBackend))
	c.PromptsDir = getEnvOrDefault("PROMPTS_DIR", c.PromptsDir)
	c.WikipediaAPIURL = getEnvOrDefault("WIKIPEDIA_API_URL", c.WikipediaAPIURL)
	c.ResearchSentences = getEnvOrDefaultInt("RESEARCH_SENTENCES", c.ResearchSentences)
	c.CacheType = strings.ToLower(getEnvOrDefault("CACHE_TYPE", c.CacheType))
	c.CacheDuration = getEnvOrDefaultInt("CACHE_DURATION_HOURS", c.CacheDuration)
	c.ArchiveBucket = getEnvOrDefault("ARCHIVE_BUCKET", c.ArchiveBucket)
	c.SlackBotToken = getEnvOrDefault("SLACK_BOT_TOKEN", "")
	c.SlackChannel = getEnvOrDefault("SLACK_CHANNEL", c.SlackChannel)
	c.WebhookAuthToken = getEnvOrDefault("WEBHOOK_AUTH_TOKEN", "")
	c.ScheduleCron = getEnvOrDefault("SCHEDULE_CRON", c.ScheduleCron)
	if topics := os.Getenv("SCHEDULED_TOPICS"); topics != "" {
		c.ScheduledTopics = parseStringSlice(topics)
	}
	c.DefaultTopic = getEnvOrDefault("DEFAULT_TOPIC", c.DefaultTopic)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.Verbose = getEnvOrDefaultBool("VERBOSE", c.Verbose)
}

// validate checks if required configuration values are present
func (c *Config) validate() error {
	if c.GeminiAPIKey == "" {
		return &ConfigError{Field: "GEMINI_API_KEY", Message: "Gemini API key is required (GEMINI_API_KEY or GOOGLE_API_KEY)"}
	}
	if c.LLMBackend != BackendREST && c.LLMBackend != BackendSDK {
		return &ConfigError{Field: "LLM_BACKEND", Message: "must be one of rest, sdk"}
	}
	if c.ResearchSentences < 1 {
		return &ConfigError{Field: "RESEARCH_SENTENCES", Message: "must be at least 1"}
	}
	if c.CacheType != CacheMemory && c.CacheType != CacheNone {
		return &ConfigError{Field: "CACHE_TYPE", Message: "must be one of memory, none"}
	}
	if c.SlackBotToken != "" && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		return &ConfigError{Field: "SLACK_BOT_TOKEN", Message: "must start with xoxb-"}
	}
	if len(c.ScheduledTopics) > 0 && c.ScheduleCron == "" {
		return &ConfigError{Field: "SCHEDULE_CRON", Message: "required when SCHEDULED_TOPICS is set"}
	}
	return nil
}

// SlackEnabled reports whether run notifications should be posted.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != ""
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func overlayString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// parseStringSlice parses comma-separated string into slice
func parseStringSlice(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
