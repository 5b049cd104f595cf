package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	AI         AIConfig         `yaml:"ai"`
	Assets     AssetsConfig     `yaml:"assets"`
	Generation GenerationConfig `yaml:"generation"`
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port" validate:"gte=1,lte=65535"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// MySQLConfig configures the story archive. An empty Host disables MySQL and
// the service runs in-memory only.
type MySQLConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// RedisConfig configures the snapshot cache. An empty Host disables it.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// QdrantConfig configures the memory vector store. An empty Host disables it
// and the assistant answers without recall.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
}

type AIConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig covers every model surface: chat, vision, embeddings, images,
// speech. An empty APIKey puts the service in demo mode with canned
// generation.
type OpenAIConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	ChatModel         string `yaml:"chat_model"`
	VisionModel       string `yaml:"vision_model"`
	EmbeddingModel    string `yaml:"embedding_model"`
	ImageModel        string `yaml:"image_model"`
	SpeechModel       string `yaml:"speech_model"`
	MaxRetries        int    `yaml:"max_retries"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// AssetsConfig says where generated illustrations and narration land on disk
// and under which URL prefix they are served.
type AssetsConfig struct {
	Dir     string `yaml:"dir"`
	URLBase string `yaml:"url_base"`
}

type GenerationConfig struct {
	Workers int `yaml:"workers" validate:"gte=0,lte=16"`
}

type AppConfig struct {
	DefaultLanguage string `yaml:"default_language" validate:"omitempty,oneof=en tr"`
	NarrationVoice  string `yaml:"narration_voice"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Load reads configuration from a YAML file, applies environment overrides,
// fills defaults, and validates the result. A missing file is not an error;
// the service then runs on defaults plus environment.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		log.Warnf("[Config] %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Apply environment variable overrides
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.AI.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.AI.OpenAI.BaseURL = v
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Database.Qdrant.APIKey = v
	}
	if v := os.Getenv("MYSQL_PASSWORD"); v != "" {
		cfg.Database.MySQL.Password = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Database.Redis.Password = v
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}

	if c.Database.MySQL.Port == 0 {
		c.Database.MySQL.Port = 3306
	}
	if c.Database.MySQL.MaxOpenConns == 0 {
		c.Database.MySQL.MaxOpenConns = 25
	}
	if c.Database.MySQL.MaxIdleConns == 0 {
		c.Database.MySQL.MaxIdleConns = 5
	}
	if c.Database.MySQL.ConnMaxLifetime == 0 {
		c.Database.MySQL.ConnMaxLifetime = time.Hour
	}

	if c.Database.Redis.Port == 0 {
		c.Database.Redis.Port = 6379
	}
	if c.Database.Redis.PoolSize == 0 {
		c.Database.Redis.PoolSize = 10
	}

	if c.Database.Qdrant.Port == 0 {
		c.Database.Qdrant.Port = 6334
	}
	if c.Database.Qdrant.Collection == "" {
		c.Database.Qdrant.Collection = "renkioo_memories"
	}

	if c.Assets.Dir == "" {
		c.Assets.Dir = "./data/assets"
	}
	if c.Assets.URLBase == "" {
		c.Assets.URLBase = "/assets"
	}

	if c.Generation.Workers == 0 {
		c.Generation.Workers = 2
	}

	if c.App.DefaultLanguage == "" {
		c.App.DefaultLanguage = "en"
	}
	if c.App.NarrationVoice == "" {
		c.App.NarrationVoice = "nova"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
