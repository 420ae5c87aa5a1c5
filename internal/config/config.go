package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql, postgres or memory
		URL      string `yaml:"url"`    // full DSN, wins over the fields below
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey   string `yaml:"apiKey"`
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"baseURL"`
		Disabled bool   `yaml:"disabled"`
	} `yaml:"openai"`

	Enrichment struct {
		Concurrency          int           `yaml:"concurrency"`
		CallTimeout          time.Duration `yaml:"callTimeout"`
		MaxAttempts          int           `yaml:"maxAttempts"`
		RetryDelay           time.Duration `yaml:"retryDelay"`
		SummaryMaxTokens     int           `yaml:"summaryMaxTokens"`
		AlternativeMaxTokens int           `yaml:"alternativeMaxTokens"`
		DegradeSummary       bool          `yaml:"degradeSummary"`
	} `yaml:"enrichment"`

	Auth struct {
		// Tokens maps bearer token to subject.
		Tokens map[string]string `yaml:"tokens"`
	} `yaml:"auth"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	RateLimit struct {
		Enabled         bool `yaml:"enabled"`
		Capacity        int  `yaml:"capacity"`
		RefillPerSecond int  `yaml:"refillPerSecond"`
	} `yaml:"rateLimit"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes"`
	} `yaml:"upload"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	var c Config
	c.Server.Port = 5000
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 120 * time.Second
	c.Server.ShutdownTimeout = 10 * time.Second

	c.Database.Driver = "memory"
	c.Database.Host = "127.0.0.1"
	c.Database.SSLMode = "disable"

	c.Minio.BucketName = "green-tech-uploads"
	c.Minio.Region = "us-east-1"

	c.OpenAI.Model = "gpt-4o-mini"

	c.Enrichment.Concurrency = 5
	c.Enrichment.CallTimeout = 20 * time.Second
	c.Enrichment.MaxAttempts = 1
	c.Enrichment.RetryDelay = 200 * time.Millisecond
	c.Enrichment.SummaryMaxTokens = 200
	c.Enrichment.AlternativeMaxTokens = 80

	c.Log.Level = "info"
	c.Log.Format = "json"

	c.CORS.AllowedOrigins = []string{"*"}

	c.RateLimit.Enabled = true
	c.RateLimit.Capacity = 30
	c.RateLimit.RefillPerSecond = 1

	c.Upload.MaxBytes = 5 << 20
	return &c
}

// Load baca .env, file config.yaml (boleh tidak ada), lalu env override.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
		return nil
	}

	if v, ok := lookup("PORT"); ok && strings.TrimSpace(v) != "" {
		p, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	str("DATABASE_DRIVER", &c.Database.Driver)
	str("DATABASE_URL", &c.Database.URL)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("OPENAI_MODEL", &c.OpenAI.Model)
	str("OPENAI_BASE_URL", &c.OpenAI.BaseURL)
	str("LOG_LEVEL", &c.Log.Level)
	str("MINIO_ENDPOINT", &c.Minio.Endpoint)
	str("MINIO_ACCESS_KEY", &c.Minio.AccessKey)
	str("MINIO_SECRET_KEY", &c.Minio.SecretKey)
	str("MINIO_BUCKET", &c.Minio.BucketName)
	if err := boolean("MINIO_ENABLED", &c.Minio.Enabled); err != nil {
		return err
	}
	if err := boolean("OPENAI_DISABLED", &c.OpenAI.Disabled); err != nil {
		return err
	}
	if v, ok := lookup("AUTH_TOKENS"); ok && strings.TrimSpace(v) != "" {
		tokens, err := ParseTokens(v)
		if err != nil {
			return fmt.Errorf("AUTH_TOKENS: %w", err)
		}
		c.Auth.Tokens = tokens
	}
	return nil
}

// ParseTokens parses "token=subject,token2=subject2".
func ParseTokens(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		tok, sub, ok := strings.Cut(pair, "=")
		tok, sub = strings.TrimSpace(tok), strings.TrimSpace(sub)
		if !ok || tok == "" || sub == "" {
			return nil, fmt.Errorf("malformed entry %q, want token=subject", pair)
		}
		out[tok] = sub
	}
	return out, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres", "memory":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want mysql, postgres or memory", c.Database.Driver))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Enrichment.Concurrency <= 0 {
		errs = append(errs, errors.New("enrichment.concurrency must be positive"))
	}
	if !c.OpenAI.Disabled && strings.TrimSpace(c.OpenAI.APIKey) == "" {
		errs = append(errs, errors.New("openai.apiKey is required unless openai.disabled"))
	}
	if c.Minio.Enabled && (c.Minio.Endpoint == "" || c.Minio.BucketName == "") {
		errs = append(errs, errors.New("minio.endpoint and minio.bucketName are required when minio.enabled"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.maxBytes must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity <= 0 || c.RateLimit.RefillPerSecond <= 0) {
		errs = append(errs, errors.New("rateLimit.capacity and rateLimit.refillPerSecond must be positive"))
	}
	return errors.Join(errs...)
}

// DSN returns the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	switch c.Database.Driver {
	case "postgres":
		return c.PostgresDSN()
	case "mysql":
		return c.MySQLDSN()
	}
	return ""
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq URL.
func (c *Config) PostgresDSN() string {
	port := c.Database.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, port),
		Path:   "/" + c.Database.Name,
	}
	q := url.Values{}
	if c.Database.SSLMode != "" {
		q.Set("sslmode", c.Database.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
