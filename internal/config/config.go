package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Address      string        `yaml:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// AdminConfig seeds the first administrator. Empty email disables the bootstrap.
type AdminConfig struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type QueueConfig struct {
	Enabled     bool `yaml:"enabled"`
	Concurrency int  `yaml:"concurrency"`
}

type EmailConfig struct {
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUser     string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type JobsConfig struct {
	CloseExpiredEvery time.Duration `yaml:"close_expired_every"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Admin    AdminConfig    `yaml:"admin"`
	Redis    RedisConfig    `yaml:"redis"`
	Queue    QueueConfig    `yaml:"queue"`
	Email    EmailConfig    `yaml:"email"`
	Storage  StorageConfig  `yaml:"storage"`
	Jobs     JobsConfig     `yaml:"jobs"`
}

const DefaultPath = "config/config.yaml"

// Path is $CONFIG_PATH, or DefaultPath when unset.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("CONFIG_PATH")); p != "" {
		return p
	}
	return DefaultPath
}

var errMissingRequired = errors.New("missing required configuration")

// Load reads the YAML file at path (a missing file is fine), applies
// environment overrides and defaults, then validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("SERVER_ADDRESS", &cfg.Server.Address)
	str("POSTGRES_CONN", &cfg.Database.DSN)
	flag("MIGRATE_ON_START", &cfg.Database.MigrateOnStart)
	str("JWT_SECRET", &cfg.Auth.JWTSecret)
	dur("TOKEN_TTL", &cfg.Auth.TokenTTL)
	num("BCRYPT_COST", &cfg.Auth.BcryptCost)
	str("ADMIN_EMAIL", &cfg.Admin.Email)
	str("ADMIN_PASSWORD", &cfg.Admin.Password)
	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)
	num("REDIS_DB", &cfg.Redis.DB)
	dur("CACHE_TTL", &cfg.Redis.CacheTTL)
	flag("QUEUE_ENABLED", &cfg.Queue.Enabled)
	num("QUEUE_CONCURRENCY", &cfg.Queue.Concurrency)
	str("SMTP_HOST", &cfg.Email.SMTPHost)
	num("SMTP_PORT", &cfg.Email.SMTPPort)
	str("SMTP_USER", &cfg.Email.SMTPUser)
	str("SMTP_PASSWORD", &cfg.Email.SMTPPassword)
	str("SMTP_FROM", &cfg.Email.FromEmail)
	str("MINIO_ENDPOINT", &cfg.Storage.Endpoint)
	str("MINIO_ACCESS_KEY", &cfg.Storage.AccessKey)
	str("MINIO_SECRET_KEY", &cfg.Storage.SecretKey)
	str("MINIO_BUCKET", &cfg.Storage.Bucket)
	flag("MINIO_USE_SSL", &cfg.Storage.UseSSL)
	dur("CLOSE_EXPIRED_EVERY", &cfg.Jobs.CloseExpiredEvery)

	return errors.Join(errs...)
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = "0.0.0.0:8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 24 * time.Hour
	}
	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.Admin.FirstName == "" {
		cfg.Admin.FirstName = "Portal"
	}
	if cfg.Admin.LastName == "" {
		cfg.Admin.LastName = "Admin"
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = time.Minute
	}
	if cfg.Queue.Concurrency == 0 {
		cfg.Queue.Concurrency = 5
	}
	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = 587
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "tender-documents"
	}
	if cfg.Jobs.CloseExpiredEvery == 0 {
		cfg.Jobs.CloseExpiredEvery = 15 * time.Minute
	}
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.DSN == "" {
		missing = append(missing, "POSTGRES_CONN")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Queue.Enabled && c.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errMissingRequired, strings.Join(missing, ", "))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost %d out of range [4, 31]", c.Auth.BcryptCost)
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return errors.New("admin.password is required when admin.email is set")
	}
	return nil
}

func (c *Config) CacheEnabled() bool   { return c.Redis.Addr != "" }
func (c *Config) MailEnabled() bool    { return c.Email.SMTPHost != "" }
func (c *Config) StorageEnabled() bool { return c.Storage.Endpoint != "" }
