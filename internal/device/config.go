package device

import (
	"codeberg.org/mutker/homewatt/internal/errors"
	"github.com/go-redis/redis/v8"
)

const defaultAddr = "localhost:6379"

type Config struct {
	Addr     string
	Password string
	DB       int
}

func DefaultConfig() Config {
	return Config{
		Addr: defaultAddr,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Addr == "" {
		return errFactory.New(ErrInvalidConfig)
	}
	return nil
}

// NewRedisClient builds the client for the backing device store
func NewRedisClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
