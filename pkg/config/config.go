package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	LLM        LLMConfig        `yaml:"llm"`
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Image      ImageConfig      `yaml:"image"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Session    SessionConfig    `yaml:"session"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	// Prompts is the prompt/response history written by the provider chain.
	Prompts LogSettings `yaml:"prompts"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// LLMConfig holds settings for the Gemini provider and the provider chain.
type LLMConfig struct {
	Key         string            `yaml:"key"`         // API Key
	BaseURL     string            `yaml:"base_url"`    // empty = Google default
	Model       string            `yaml:"model"`       // default text model
	ImageModel  string            `yaml:"image_model"` // Imagen model
	Profiles    map[string]string `yaml:"profiles"`    // Map of intent -> model
	Temperature float32           `yaml:"temperature"`
	// Order lists providers for the failover chain, first is preferred.
	Order              []string `yaml:"order"`
	RequireCredentials bool     `yaml:"require_credentials"`
}

// OpenAIConfig holds settings for the optional OpenAI provider.
type OpenAIConfig struct {
	Key        string `yaml:"key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	ImageModel string `yaml:"image_model"`
}

// ImageConfig shapes generated day images.
type ImageConfig struct {
	AspectRatio string `yaml:"aspect_ratio"`
	MIMEType    string `yaml:"mime_type"`
	// MaxWidth and MaxHeight bound the embedded image; 0 keeps the original size.
	MaxWidth  int `yaml:"max_width"`
	MaxHeight int `yaml:"max_height"`
	Quality   int `yaml:"quality"`
}

// GenerationConfig holds orchestration limits.
type GenerationConfig struct {
	// ImageConcurrency bounds parallel image calls; 0 means one call per day at once.
	ImageConcurrency int      `yaml:"image_concurrency"`
	ImageTimeout     Duration `yaml:"image_timeout"`
	TextTimeout      Duration `yaml:"text_timeout"`
}

// StoreConfig selects and configures the saved-itinerary backend.
type StoreConfig struct {
	Driver string      `yaml:"driver"` // sqlite, postgres, redis, mongo, memory
	Path   string      `yaml:"path"`   // sqlite file
	DSN    string      `yaml:"dsn"`    // postgres connection string
	Redis  RedisConfig `yaml:"redis"`
	Mongo  MongoConfig `yaml:"mongo"`
}

// RedisConfig holds redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// SessionConfig holds planning session settings.
type SessionConfig struct {
	TTL Duration `yaml:"ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:        "localhost:8080",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
			Prompts: LogSettings{
				Path:  "./logs/prompts.log",
				Level: "INFO",
			},
		},
		LLM: LLMConfig{
			Model:      "gemini-2.5-flash",
			ImageModel: "imagen-4.0-generate-001",
			Profiles: map[string]string{
				"itinerary":       "gemini-2.5-flash",
				"more_activities": "gemini-2.5-flash",
			},
			Temperature: 0.7,
			Order:       []string{"gemini", "openai"},
		},
		OpenAI: OpenAIConfig{
			Model:      "gpt-4o-mini",
			ImageModel: "dall-e-3",
		},
		Image: ImageConfig{
			AspectRatio: "16:9",
			MIMEType:    "image/jpeg",
			MaxWidth:    1280,
			MaxHeight:   720,
			Quality:     85,
		},
		Generation: GenerationConfig{
			ImageConcurrency: 0,
			ImageTimeout:     Duration(90 * time.Second),
			TextTimeout:      Duration(3 * time.Minute),
		},
		Store: StoreConfig{
			Driver: "sqlite",
			Path:   "./data/voyageai.db",
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "voyageai:",
			},
			Mongo: MongoConfig{
				URI:      "mongodb://localhost:27017",
				Database: "voyageai",
			},
		},
		Session: SessionConfig{
			TTL: Duration(Day),
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Keys from the environment are a fallback and never written back to disk.
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if cfg.LLM.Key == "" {
		cfg.LLM.Key = firstEnv("GEMINI_API_KEY", "API_KEY")
	}
	if cfg.OpenAI.Key == "" {
		cfg.OpenAI.Key = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Store.DSN == "" {
		cfg.Store.DSN = os.Getenv("DATABASE_URL")
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

var aspectRatioRe = regexp.MustCompile(`^[1-9][0-9]*:[1-9][0-9]*$`)

// Validate checks values that would otherwise fail late at request time.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "sqlite", "postgres", "redis", "mongo", "memory":
	default:
		return fmt.Errorf("invalid store.driver '%s': must be one of sqlite, postgres, redis, mongo, memory", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for the postgres driver")
	}
	if !aspectRatioRe.MatchString(c.Image.AspectRatio) {
		return fmt.Errorf("invalid image.aspect_ratio '%s': must look like '16:9'", c.Image.AspectRatio)
	}
	if c.Image.Quality < 1 || c.Image.Quality > 100 {
		return fmt.Errorf("invalid image.quality %d: must be between 1 and 100", c.Image.Quality)
	}
	if c.Generation.ImageConcurrency < 0 {
		return fmt.Errorf("generation.image_concurrency must not be negative")
	}
	for _, p := range c.LLM.Order {
		if p != "gemini" && p != "openai" {
			return fmt.Errorf("unknown provider '%s' in llm.order", p)
		}
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# VoyageAI Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
# API keys left empty fall back to GEMINI_API_KEY (or API_KEY) and OPENAI_API_KEY.

`)
	data = append(header, data...)

	reDriver := regexp.MustCompile(`(?m)^(\s+)driver:`)
	data = reDriver.ReplaceAll(data, []byte("${1}# Options: sqlite, postgres, redis, mongo, memory\n${1}driver:"))

	reConc := regexp.MustCompile(`(?m)^(\s+)image_concurrency:`)
	data = reConc.ReplaceAll(data, []byte("${1}# 0 = all days at once\n${1}image_concurrency:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, do nothing
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
