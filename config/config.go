package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for sitechat processes.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Chat      ChatConfig      `mapstructure:"chat"`
	Limits    LimitsConfig    `mapstructure:"limits"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	AppName     string `mapstructure:"app_name"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig contains HTTP server and auth settings
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	JWTSecret   string   `mapstructure:"jwt_secret"` // empty disables the admin guard
}

func (s ServerConfig) Validate() error {
	if strings.TrimSpace(s.Port) == "" {
		return fmt.Errorf("server.port required")
	}
	return nil
}

type StorageConfig struct {
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.Port) == "" {
		return fmt.Errorf("storage.postgres.port required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// ChatConfig tunes retrieval for the chat endpoint.
type ChatConfig struct {
	TopK          int `mapstructure:"top_k"`
	SourcePreview int `mapstructure:"source_preview"`
}

func (c ChatConfig) Normalize() ChatConfig {
	if c.TopK <= 0 {
		c.TopK = 3
	}
	if c.SourcePreview <= 0 {
		c.SourcePreview = 300
	}
	return c
}

// LimitsConfig caps text at each stage of the pipeline, in characters.
type LimitsConfig struct {
	EmbedInput     int `mapstructure:"embed_input"`
	PayloadContent int `mapstructure:"payload_content"`
	PageContent    int `mapstructure:"page_content"`
}

func (l LimitsConfig) Normalize() LimitsConfig {
	if l.EmbedInput <= 0 {
		l.EmbedInput = 5000
	}
	if l.PayloadContent <= 0 {
		l.PayloadContent = 2000
	}
	if l.PageContent <= 0 {
		l.PageContent = 10000
	}
	return l
}

// QueueConfig names the redis stream carrying scrape jobs.
type QueueConfig struct {
	Stream string        `mapstructure:"stream"`
	Group  string        `mapstructure:"group"`
	Block  time.Duration `mapstructure:"block"`
	Count  int64         `mapstructure:"count"`
}

func (q QueueConfig) Validate() error {
	if strings.TrimSpace(q.Stream) == "" {
		return fmt.Errorf("queue.stream required")
	}
	if strings.TrimSpace(q.Group) == "" {
		return fmt.Errorf("queue.group required")
	}
	return nil
}

// SchedulerConfig drives periodic re-crawls. An empty cron disables it.
type SchedulerConfig struct {
	RecrawlCron string `mapstructure:"recrawl_cron"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.app_name", "sitechat")
	v.SetDefault("general.environment", "dev")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.jwt_secret", "")

	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("storage.postgres.url", "")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", "5432")
	v.SetDefault("storage.postgres.user", "sitechat")
	v.SetDefault("storage.postgres.password", "sitechat")
	v.SetDefault("storage.postgres.dbname", "sitechat")
	v.SetDefault("storage.postgres.sslmode", "disable")

	v.SetDefault("vector.backend", VectorBackendQdrant)
	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.url", "")
	v.SetDefault("vector.api_key", "")
	v.SetDefault("vector.collection", "website_content")
	v.SetDefault("vector.use_tls", false)

	v.SetDefault("embedding.provider", EmbeddingProviderHash)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", 384)
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.api_key", "")

	v.SetDefault("llm.provider", LLMProviderGemini)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("crawl.user_agent", DefaultUserAgent)
	v.SetDefault("crawl.timeout", 10*time.Second)
	v.SetDefault("crawl.delay", 500*time.Millisecond)
	v.SetDefault("crawl.max_pages", 10)
	v.SetDefault("crawl.max_sitemap_depth", 5)
	v.SetDefault("crawl.max_retries", 0)
	v.SetDefault("crawl.respect_robots", false)
	v.SetDefault("crawl.renderer", RendererHTTP)
	v.SetDefault("crawl.extractor", ExtractorSelector)
	v.SetDefault("crawl.max_body_bytes", 5<<20)

	v.SetDefault("chat.top_k", 3)
	v.SetDefault("chat.source_preview", 300)

	v.SetDefault("limits.embed_input", 5000)
	v.SetDefault("limits.payload_content", 2000)
	v.SetDefault("limits.page_content", 10000)

	v.SetDefault("queue.stream", "sitechat:jobs:scrape")
	v.SetDefault("queue.group", "scrape-workers")
	v.SetDefault("queue.block", 5*time.Second)
	v.SetDefault("queue.count", 1)

	v.SetDefault("scheduler.recrawl_cron", "")
}

// Load reads configuration from path (or the default search paths when
// empty), applies SITECHAT_* environment overrides and validates every section.
// A missing config file is not an error; defaults and env still apply.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("SITECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Vector = cfg.Vector.Normalize()
	cfg.Embedding = cfg.Embedding.Normalize()
	cfg.LLM = cfg.LLM.Normalize()
	cfg.Crawl = cfg.Crawl.Normalize()
	cfg.Chat = cfg.Chat.Normalize()
	cfg.Limits = cfg.Limits.Normalize()

	validators := []interface{ Validate() error }{
		cfg.Server,
		cfg.Storage.Redis,
		cfg.Storage.Postgres,
		cfg.Vector,
		cfg.Embedding,
		cfg.LLM,
		cfg.Crawl,
		cfg.Queue,
	}
	for _, val := range validators {
		if err := val.Validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// LoadConfig is Load for process entrypoints: any error is fatal.
func LoadConfig(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return cfg
}
