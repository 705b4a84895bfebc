package config

import (
	"os"
	"strings"
	"time"
)

// Config captures process-level configuration for the audit service.
type Config struct {
	Addr          string
	Source        string
	JWTSigningKey string
	KafkaBrokers  []string
	AuditTopic    string
	RedisURL      string
	DatabaseURL   string
}

// RedisConfig tunes the optional Redis sink connection.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
// Source identifies the owning application on every published record.
func FromEnv() Config {
	addr := os.Getenv("AUDIT_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	source := os.Getenv("AUDIT_SOURCE")
	if source == "" {
		source = "efaudit-sample"
	}
	topic := os.Getenv("AUDIT_TOPIC")
	if topic == "" {
		topic = "audit-trail"
	}

	var brokers []string
	if raw := os.Getenv("AUDIT_KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	return Config{
		Addr:          addr,
		Source:        source,
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		KafkaBrokers:  brokers,
		AuditTopic:    topic,
		RedisURL:      os.Getenv("REDIS_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
	}
}

// Redis returns the Redis sink configuration with pool defaults applied.
func (c Config) Redis() RedisConfig {
	return RedisConfig{
		URL:          c.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}
