// Package config loads server settings from the environment, an optional
// .env file and an optional config.yaml.
//
// Every key can be set with the COURSEHUB_ prefix and dots replaced by
// underscores, e.g. database.driver → COURSEHUB_DATABASE_DRIVER.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port           int
		RequestTimeout time.Duration
		CORSOrigins    []string
	}
	Log struct {
		Level  string // debug, info, warn, error
		Format string // text or json
	}
	Database struct {
		Driver string // sqlite or postgres
		Path   string // sqlite file, or ":memory:"
		DSN    string // postgres connection string
	}
	Auth struct {
		JWTSecret    string
		TokenTTL     time.Duration
		CookieSecure bool
	}
	OAuth struct {
		Google OAuthProvider
		GitHub OAuthProvider
	}
	Storage struct {
		Bucket    string
		Region    string
		Endpoint  string
		KeyPrefix string
	}
	AMQP struct {
		URL       string
		Exchange  string
		QueueSize int
	}
	Redis struct {
		Addr string
	}
	Idempotency struct {
		TTL time.Duration
	}
}

type OAuthProvider struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
}

// Load reads configuration. Values already in the environment win over
// .env, which wins over config.yaml, which wins over the defaults.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional

	v := viper.New()
	v.SetEnvPrefix("COURSEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requesttimeout", 10*time.Second)
	v.SetDefault("server.corsorigins", []string{"http://localhost:3000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/coursehub.db")
	v.SetDefault("database.dsn", "")
	v.SetDefault("auth.jwtsecret", "")
	v.SetDefault("auth.tokenttl", 24*time.Hour)
	v.SetDefault("auth.cookiesecure", false)
	for _, p := range []string{"google", "github"} {
		v.SetDefault("oauth."+p+".clientid", "")
		v.SetDefault("oauth."+p+".clientsecret", "")
		v.SetDefault("oauth."+p+".callbackurl", fmt.Sprintf("http://localhost:8080/auth/%s/callback", p))
	}
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.keyprefix", "avatars")
	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "coursehub.reviews")
	v.SetDefault("amqp.queuesize", 256)
	v.SetDefault("redis.addr", "")
	v.SetDefault("idempotency.ttl", 24*time.Hour)
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: COURSEHUB_AUTH_JWTSECRET is required")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("config: database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q (want sqlite or postgres)", c.Database.Driver)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q (want text or json)", c.Log.Format)
	}
	return nil
}
