package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}

type App struct {
	Name    string
	Env     string
	BaseURL string `mapstructure:"base_url"`
	HTTP    HTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int `mapstructure:"max_size_mb"`
	MaxBackups int `mapstructure:"max_backups"`
	MaxAgeDays int `mapstructure:"max_age_days"`
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int  `mapstructure:"access_token_ttl_min"`
	ResetTokenTTLMin  int  `mapstructure:"reset_token_ttl_min"`
	CookieSecure      bool `mapstructure:"cookie_secure"`
}

type Redis struct {
	Enable   bool   `mapstructure:"enable"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMin int    `mapstructure:"conn_max_lifetime_min"`
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	LogLevel           string `mapstructure:"log_level"`
}

type Mail struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
	TLS      bool
}

type AMQP struct {
	URL      string
	Exchange string
	Queue    string
}

// Queue 通知投递方式：sync 直接发信，redis / amqp 走队列由 worker 发信
type Queue struct {
	Mode        string
	RedisKey    string `mapstructure:"redis_key"`
	AMQP        AMQP
	Concurrency int
	MaxAttempts int `mapstructure:"max_attempts"`
}

type Cache struct {
	EventsTTLSec int `mapstructure:"events_ttl_sec"`
}

type Limits struct {
	RPS         float64
	Burst       int
	PerIPRPS    float64 `mapstructure:"per_ip_rps"`
	PerIPBurst  int     `mapstructure:"per_ip_burst"`
	Concurrency int64
	MaxBodyMB   int64 `mapstructure:"max_body_mb"`
	TimeoutSec  int   `mapstructure:"timeout_sec"`
}

type Config struct {
	App    App
	Log    Log
	JWT    JWT
	DB     DB
	Redis  Redis `mapstructure:"redis"`
	Mail   Mail
	Queue  Queue
	Cache  Cache
	Limits Limits
}

var ErrMissingSecret = errors.New("jwt.secret is required")

func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// validate 一次报告全部问题，免得改一项重启一次
func (c *Config) validate() error {
	var err error
	if strings.TrimSpace(c.JWT.Secret) == "" {
		err = multierr.Append(err, ErrMissingSecret)
	}
	switch c.DB.Driver {
	case "", "sqlite", "mysql", "postgres":
	default:
		err = multierr.Append(err, fmt.Errorf("db.driver %q: want sqlite, mysql or postgres", c.DB.Driver))
	}
	switch c.Queue.Mode {
	case "", "sync", "amqp":
	case "redis":
		if !c.Redis.Enable {
			err = multierr.Append(err, errors.New("queue.mode=redis requires redis.enable"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("queue.mode %q: want sync, redis or amqp", c.Queue.Mode))
	}
	return err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "grafik")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.base_url", "http://127.0.0.1:8080")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 10)
	v.SetDefault("app.http.writetimeoutsec", 30)
	v.SetDefault("app.http.idletimeoutsec", 60)

	v.SetDefault("log.level", "info")

	// 未设置 JWT_SECRET 时 AutomaticEnv 无法映射到未声明的 key，这里显式声明
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "grafik")
	v.SetDefault("jwt.access_token_ttl_min", 60*24*7)
	v.SetDefault("jwt.reset_token_ttl_min", 30)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "grafik.db")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime_min", 30)
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("db.log_level", "warn")

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.tls", true)

	v.SetDefault("queue.mode", "sync")
	v.SetDefault("queue.redis_key", "grafik:mail")
	v.SetDefault("queue.amqp.exchange", "grafik.mail")
	v.SetDefault("queue.amqp.queue", "grafik.mail.send")
	v.SetDefault("queue.concurrency", 4)
	v.SetDefault("queue.max_attempts", 3)

	v.SetDefault("cache.events_ttl_sec", 60)

	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.per_ip_rps", 20)
	v.SetDefault("limits.per_ip_burst", 40)
	v.SetDefault("limits.concurrency", 300)
	v.SetDefault("limits.max_body_mb", 16)
	v.SetDefault("limits.timeout_sec", 15)
}

func (c *Config) EventsTTL() time.Duration {
	return time.Duration(c.Cache.EventsTTLSec) * time.Second
}

func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func (c *Config) ResetTTL() time.Duration {
	return time.Duration(c.JWT.ResetTokenTTLMin) * time.Minute
}
