package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     LLMConfig     `yaml:"llm"`
	Output  OutputConfig  `yaml:"output"`
	Session SessionConfig `yaml:"session"`
	Task    TaskConfig    `yaml:"task"`
	GitHub  GitHubConfig  `yaml:"github"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// LLMConfig holds the model provider selection and per-provider credentials.
// Keys may be empty; a missing key is reported when a request is made.
type LLMConfig struct {
	Provider        string `yaml:"provider"`
	Model           string `yaml:"model"`
	GoogleAPIKey    string `yaml:"google_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OpenAIBaseURL   string `yaml:"openai_base_url"`
	DeepSeekAPIKey  string `yaml:"deepseek_api_key"`
	DeepSeekBaseURL string `yaml:"deepseek_base_url"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
}

// OutputConfig controls where and how generated files are written
type OutputConfig struct {
	Dir              string `yaml:"dir"`
	Mode             string `yaml:"mode"`
	Fallback         bool   `yaml:"fallback"`
	DefaultFilename  string `yaml:"default_filename"`
	ResearchFilename string `yaml:"research_filename"`
}

// SessionConfig holds per-session quota settings
type SessionConfig struct {
	FreeUses int           `yaml:"free_uses"`
	TTL      time.Duration `yaml:"ttl"`
}

// TaskConfig holds task-related configuration
type TaskConfig struct {
	MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
	QueueSize          int           `yaml:"queue_size"`
	TTL                time.Duration `yaml:"ttl"`
}

// GitHubConfig holds GitHub-related configuration
type GitHubConfig struct {
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8080",
			Host: "0.0.0.0",
		},
		LLM: LLMConfig{
			Provider:        "gemini",
			DeepSeekBaseURL: "https://api.deepseek.com",
			OpenAIBaseURL:   "https://api.openai.com/v1",
		},
		Output: OutputConfig{
			Dir:              ".",
			Mode:             "overwrite",
			DefaultFilename:  "generated_code",
			ResearchFilename: "research_output.txt",
		},
		Session: SessionConfig{
			FreeUses: 5,
			TTL:      2 * time.Hour,
		},
		Task: TaskConfig{
			MaxConcurrentTasks: 2,
			QueueSize:          32,
			TTL:                time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the
// environment, in that order. An empty path falls back to CONFIG_FILE.
func Load(path string) (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("SERVER_PORT", c.Server.Port)
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)

	c.LLM.Provider = strings.ToLower(getEnv("LLM_PROVIDER", c.LLM.Provider))
	c.LLM.Model = getEnv("LLM_MODEL", c.LLM.Model)
	c.LLM.GoogleAPIKey = getEnv("GOOGLE_API_KEY", getEnv("GEMINI_API_KEY", c.LLM.GoogleAPIKey))
	c.LLM.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.LLM.OpenAIAPIKey)
	c.LLM.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.LLM.OpenAIBaseURL)
	c.LLM.DeepSeekAPIKey = getEnv("DEEPSEEK_API_KEY", c.LLM.DeepSeekAPIKey)
	c.LLM.DeepSeekBaseURL = getEnv("DEEPSEEK_BASE_URL", c.LLM.DeepSeekBaseURL)
	c.LLM.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.LLM.AnthropicAPIKey)

	c.Output.Dir = getEnv("OUTPUT_DIR", c.Output.Dir)
	c.Output.Mode = strings.ToLower(getEnv("OUTPUT_MODE", c.Output.Mode))
	c.Output.Fallback = getEnvAsBool("OUTPUT_FALLBACK", c.Output.Fallback)
	c.Output.DefaultFilename = getEnv("DEFAULT_FILENAME", c.Output.DefaultFilename)
	c.Output.ResearchFilename = getEnv("RESEARCH_FILENAME", c.Output.ResearchFilename)

	c.Session.FreeUses = getEnvAsInt("FREE_USES", c.Session.FreeUses)
	c.Session.TTL = getEnvAsDuration("SESSION_TTL", c.Session.TTL)

	c.Task.MaxConcurrentTasks = getEnvAsInt("MAX_CONCURRENT_TASKS", c.Task.MaxConcurrentTasks)
	c.Task.QueueSize = getEnvAsInt("TASK_QUEUE_SIZE", c.Task.QueueSize)
	c.Task.TTL = getEnvAsDuration("TASK_TTL", c.Task.TTL)

	c.GitHub.Token = getEnv("GITHUB_TOKEN", c.GitHub.Token)
	c.GitHub.Owner = getEnv("GITHUB_OWNER", c.GitHub.Owner)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)
}

// Validate checks if required configuration fields are set
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai", "deepseek", "anthropic":
	default:
		return fmt.Errorf("unknown LLM provider %q, must be one of gemini, openai, deepseek, anthropic", c.LLM.Provider)
	}

	switch c.Output.Mode {
	case "overwrite", "append":
	default:
		return fmt.Errorf("unknown output mode %q, must be 'overwrite' or 'append'", c.Output.Mode)
	}

	if c.Output.DefaultFilename == "" {
		return fmt.Errorf("DEFAULT_FILENAME must not be empty")
	}

	if c.Task.MaxConcurrentTasks < 1 {
		return fmt.Errorf("MAX_CONCURRENT_TASKS must be at least 1")
	}

	if c.Session.FreeUses < 0 {
		return fmt.Errorf("FREE_USES must not be negative")
	}

	return nil
}

// APIKey returns the server-side key for the configured provider
func (c *LLMConfig) APIKey() string {
	switch c.Provider {
	case "gemini":
		return c.GoogleAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "deepseek":
		return c.DeepSeekAPIKey
	case "anthropic":
		return c.AnthropicAPIKey
	}
	return ""
}

// BaseURL returns the endpoint override for the configured provider, if any
func (c *LLMConfig) BaseURL() string {
	switch c.Provider {
	case "openai":
		return c.OpenAIBaseURL
	case "deepseek":
		return c.DeepSeekBaseURL
	}
	return ""
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as int or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
