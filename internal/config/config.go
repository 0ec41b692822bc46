package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type MeiliConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"apiKey"`
	Index  string `yaml:"index"`
}

type GeminiConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// CrawlerConfig holds the politeness and sizing knobs for the worker pool.
type CrawlerConfig struct {
	Workers           int    `yaml:"workers"`
	PolitenessMs      int    `yaml:"politenessMs"`
	TimeoutSecs       int    `yaml:"timeoutSecs"`
	MaxContentBytes   int    `yaml:"maxContentBytes"`
	UserAgent         string `yaml:"userAgent"`
	DiscoverLinks     bool   `yaml:"discoverLinks"`
	MaxLinkDepth      int    `yaml:"maxLinkDepth"`
	Enabled           bool   `yaml:"enabled"`
	IdlePollSecs      int    `yaml:"idlePollSecs"`
	RobotsTimeoutSecs int    `yaml:"robotsTimeoutSecs"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Meili     MeiliConfig     `yaml:"meilisearch"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Crawler   CrawlerConfig   `yaml:"crawler"`
}

// Load reads the YAML config at path, applies environment overrides, and
// fills defaults. Missing required settings abort the process.
func Load(path string) *Config {
	var cfg Config

	f, err := os.Open(path)
	if err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
			log.Fatalf("failed to decode config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("failed to open config file: %v", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.Database.DSN == "" {
		log.Fatalf("database.dsn (or DATABASE_URL) must be set")
	}
	if cfg.Meili.URL == "" {
		log.Fatalf("meilisearch.url (or MEILI_URL) must be set")
	}

	return &cfg
}

func (c *Config) applyEnv() {
	setStr(&c.Server.Host, "HOST")
	setInt(&c.Server.Port, "PORT")
	setStr(&c.Database.DSN, "DATABASE_URL")
	setStr(&c.Meili.URL, "MEILI_URL")
	setStr(&c.Meili.APIKey, "MEILI_MASTER_KEY")
	setStr(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setStr(&c.Redis.URL, "REDIS_URL")
	setInt(&c.Crawler.Workers, "CRAWLER_WORKERS")
	setInt(&c.Crawler.PolitenessMs, "CRAWLER_POLITENESS_MS")
	setInt(&c.Crawler.TimeoutSecs, "CRAWLER_TIMEOUT_SECS")
	setInt(&c.Crawler.MaxContentBytes, "CRAWLER_MAX_SIZE_BYTES")
	setStr(&c.Crawler.UserAgent, "CRAWLER_USER_AGENT")
	setBool(&c.Crawler.DiscoverLinks, "CRAWLER_DISCOVER_LINKS")
	setInt(&c.Crawler.MaxLinkDepth, "CRAWLER_MAX_LINK_DEPTH")
	setBool(&c.Crawler.Enabled, "CRAWLER_ENABLED")
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Meili.Index == "" {
		c.Meili.Index = "documents"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.0-flash"
	}
	if c.Crawler.Workers <= 0 {
		c.Crawler.Workers = 2
	}
	if c.Crawler.PolitenessMs <= 0 {
		c.Crawler.PolitenessMs = 1000
	}
	if c.Crawler.TimeoutSecs <= 0 {
		c.Crawler.TimeoutSecs = 30
	}
	if c.Crawler.MaxContentBytes <= 0 {
		c.Crawler.MaxContentBytes = 5 * 1024 * 1024
	}
	if c.Crawler.UserAgent == "" {
		c.Crawler.UserAgent = "NoticeBot/0.1 (+https://github.com/notice-search; notice-search-engine)"
	}
	if c.Crawler.MaxLinkDepth <= 0 {
		c.Crawler.MaxLinkDepth = 1
	}
	if c.Crawler.IdlePollSecs <= 0 {
		c.Crawler.IdlePollSecs = 5
	}
	if c.Crawler.RobotsTimeoutSecs <= 0 {
		c.Crawler.RobotsTimeoutSecs = 5
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
