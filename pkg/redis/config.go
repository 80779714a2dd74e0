package redis

import "time"

// Config configures the Redis connection.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required"`                   // redis://:password@localhost:6379/0
	RetryAttempts  uint64        `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"` // first backoff step, doubled per attempt
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	KeyPrefix      string        `env:"REDIS_KEY_PREFIX" envDefault:"notify"`
}
