package presence

import "fmt"

// StoreType identifies the presence store backend.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// Config holds presence store configuration.
type Config struct {
	Type  StoreType   `yaml:"type"`
	Redis RedisConfig `yaml:"redis"`
}

// NewStore creates a Store based on configuration.
func NewStore(cfg Config) (Store, error) {
	switch cfg.Type {
	case StoreTypeMemory, "":
		return NewMemoryStore(), nil
	case StoreTypeRedis:
		return NewRedisStore(cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown presence store type: %s", cfg.Type)
	}
}
