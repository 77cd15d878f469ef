package redis

import (
	"crypto/tls"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envconfigPrefix = "REDIS"

// Config represents common configuration options for a Redis connection
type Config struct {
	Host      string `envconfig:"HOST" default:"localhost"`
	Port      int    `envconfig:"PORT" default:"6379"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `envconfig:"DB" default:"0"`
	EnableTLS bool   `envconfig:"ENABLE_TLS" default:"false"`
}

// ConfigFromEnvironment returns Redis connection configuration gathered from
// REDIS_* environment variables.
func ConfigFromEnvironment() (Config, error) {
	c := Config{}
	if err := envconfig.Process(envconfigPrefix, &c); err != nil {
		return c, errors.Wrap(
			err,
			"error getting redis configuration from environment",
		)
	}
	return c, nil
}

// Client returns a Redis client for the specified configuration. No connection
// is attempted until the client is first used.
func Client(c Config) *redis.Client {
	redisOpts := &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:   c.Password,
		DB:         c.DB,
		MaxRetries: 5,
	}
	if c.EnableTLS {
		redisOpts.TLSConfig = &tls.Config{
			ServerName: c.Host,
		}
	}
	return redis.NewClient(redisOpts)
}
