package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings for the service.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Tools   ToolsConfig   `mapstructure:"tools"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig configures the HTTP API surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// LLMConfig configures the chat-completion backend.
type LLMConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// AgentConfig bounds the reason/act loop.
type AgentConfig struct {
	MaxSteps      int `mapstructure:"max_steps"`
	HistoryWindow int `mapstructure:"history_window"`
}

// ToolsConfig configures tool providers.
type ToolsConfig struct {
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	CallTimeout  time.Duration `mapstructure:"call_timeout"`
	Parallelism  int           `mapstructure:"parallelism"`
}

// StorageConfig selects and configures the session store backend.
type StorageConfig struct {
	// Backend is "file" or "postgres".
	Backend     string `mapstructure:"backend"`
	Dir         string `mapstructure:"dir"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
	CacheSize   int    `mapstructure:"cache_size"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from ~/.parley.yaml (or the file given via
// PARLEY_CONFIG), overlaid with PARLEY_* environment variables, on top of
// built-in defaults.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PARLEY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("PARLEY_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.SetConfigFile(filepath.Join(home, ".parley.yaml"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// A handful of keys follow established upstream names as well.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Tools.TavilyAPIKey == "" {
		cfg.Tools.TavilyAPIKey = os.Getenv("TAVILY_API_KEY")
	}
	if cfg.Tools.SerperAPIKey == "" {
		cfg.Tools.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 90*time.Second)

	v.SetDefault("agent.max_steps", 10)
	v.SetDefault("agent.history_window", 10)

	v.SetDefault("tools.max_results", 2)
	v.SetDefault("tools.call_timeout", 30*time.Second)
	v.SetDefault("tools.parallelism", 4)

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.dir", defaultStorageDir())
	v.SetDefault("storage.cache_size", 128)

	v.SetDefault("logging.level", "INFO")
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley/sessions"
	}
	return filepath.Join(home, ".parley", "sessions")
}
