package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/config.yaml"

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // mysql | sqlite
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"user"`
	Password     string `yaml:"password"`
	DBName       string `yaml:"dbname"`
	Path         string `yaml:"path"` // sqlite のみ
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// 初回起動時にユーザーが0件なら作成する管理者
type BootstrapAdmin struct {
	DocumentNumber string `yaml:"document_number"`
	FullName       string `yaml:"full_name"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Capacity       int           `yaml:"capacity"`
	RefillTokens   int           `yaml:"refill_tokens"`
	RefillInterval time.Duration `yaml:"refill_interval"`
	TTL            time.Duration `yaml:"ttl"`
	Prefix         string        `yaml:"prefix"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type TicketConfig struct {
	Timezone string `yaml:"timezone"`
}

type Config struct {
	Version   string          `yaml:"version"`
	Mode      string          `yaml:"mode"`
	Server    ServerConfig    `yaml:"server"`
	DB        DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Bootstrap BootstrapAdmin  `yaml:"bootstrap_admin"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	Tickets   TicketConfig    `yaml:"tickets"`
}

// Load は .env → yaml → 環境変数 の順で設定を組み立てる。
// 秘密情報は環境変数が優先。
func Load(path string) (*Config, error) {
	// .env は無くてもよい
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(buf)
}

func Parse(buf []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(buf, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Mode: "dev",
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		DB: DatabaseConfig{
			Driver:       "mysql",
			Port:         3306,
			MaxOpenConns: 80,
			MaxIdleConns: 20,
		},
		Auth: AuthConfig{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		RateLimit: RateLimitConfig{
			Capacity:       10,
			RefillTokens:   1,
			RefillInterval: 6 * time.Second,
			TTL:            10 * time.Minute,
			Prefix:         "rl:login",
		},
		AMQP:    AMQPConfig{Exchange: "toolcrib.events"},
		Tickets: TicketConfig{Timezone: "UTC"},
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Mode, "APP_MODE")
	setString(&cfg.Server.Addr, "APP_ADDR")
	setString(&cfg.DB.Driver, "DB_DRIVER")
	setString(&cfg.DB.Host, "DB_HOST")
	setInt(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.Username, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASS")
	setString(&cfg.DB.DBName, "DB_NAME")
	setString(&cfg.DB.Path, "DB_PATH")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Bootstrap.Password, "BOOTSTRAP_ADMIN_PASSWORD")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.AMQP.URL, "AMQP_URL")
	setString(&cfg.Tickets.Timezone, "TICKET_TZ")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Mode != "dev" && c.Mode != "release" {
		errs = append(errs, fmt.Errorf("mode must be dev or release, got %q", c.Mode))
	}
	switch strings.ToLower(c.DB.Driver) {
	case "mysql":
		if c.DB.Host == "" || c.DB.DBName == "" {
			errs = append(errs, errors.New("database.host and database.dbname are required for mysql"))
		}
	case "sqlite":
		if c.DB.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported database.driver %q", c.DB.Driver))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 bytes"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if _, err := time.LoadLocation(c.Tickets.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("tickets.timezone: %w", err))
	}
	return errors.Join(errs...)
}

// TicketLocation は Validate 済みの前提。
func (c *Config) TicketLocation() *time.Location {
	loc, err := time.LoadLocation(c.Tickets.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
