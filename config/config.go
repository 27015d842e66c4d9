package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	DB      DBConfig
	Redis   RedisConfig
	JWT     JWTConfig
	Cache   CacheConfig
	OpenFDA OpenFDAConfig
	Sweeper SweeperConfig
	Log     LogConfig
}

type AppConfig struct {
	Port       string
	Env        string
	CORSOrigin string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// CacheConfig selects the store backing the medication lookup cache.
// Driver is either "redis" or "memory".
type CacheConfig struct {
	Driver    string
	Namespace string
	TTL       time.Duration
}

type OpenFDAConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	RateLimit   float64
	ResultLimit int
}

type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
}

type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.cors_origin", "*")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "gab_health")
	v.SetDefault("db.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", "6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.refresh_expiry", "168h")

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.namespace", "openfda")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("openfda.base_url", "https://api.fda.gov/drug/event.json")
	v.SetDefault("openfda.api_key", "")
	v.SetDefault("openfda.timeout", "10s")
	v.SetDefault("openfda.rate_limit", 4)
	v.SetDefault("openfda.result_limit", 5)

	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "5m")

	v.SetDefault("log.level", "info")
}

// LoadConfig reads configuration from an optional config file and the
// environment. APP_PORT overrides app.port, OPENFDA_API_KEY overrides
// openfda.api_key and so on. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Port:       v.GetString("app.port"),
			Env:        v.GetString("app.env"),
			CORSOrigin: v.GetString("app.cors_origin"),
		},
		DB: DBConfig{
			Host:     v.GetString("db.host"),
			Port:     v.GetString("db.port"),
			User:     v.GetString("db.user"),
			Password: v.GetString("db.password"),
			Name:     v.GetString("db.name"),
			SSLMode:  v.GetString("db.sslmode"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetString("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("jwt.secret"),
			AccessExpiry:  v.GetDuration("jwt.access_expiry"),
			RefreshExpiry: v.GetDuration("jwt.refresh_expiry"),
		},
		Cache: CacheConfig{
			Driver:    v.GetString("cache.driver"),
			Namespace: v.GetString("cache.namespace"),
			TTL:       v.GetDuration("cache.ttl"),
		},
		OpenFDA: OpenFDAConfig{
			BaseURL:     v.GetString("openfda.base_url"),
			APIKey:      v.GetString("openfda.api_key"),
			Timeout:     v.GetDuration("openfda.timeout"),
			RateLimit:   v.GetFloat64("openfda.rate_limit"),
			ResultLimit: v.GetInt("openfda.result_limit"),
		},
		Sweeper: SweeperConfig{
			Enabled:  v.GetBool("sweeper.enabled"),
			Interval: v.GetDuration("sweeper.interval"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
}

// IsProduction reports whether the service runs with production settings
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
