package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"log"
)

type Config struct {
	Redis  Redis
	Notify Notify
}

type Redis struct {
	Addr             string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password         string `env:"REDIS_PASSWORD"`
	DB               int    `env:"REDIS_DB" envDefault:"0"`
	QueueKey         string `env:"REDIS_QUEUE_KEY" envDefault:"sla:jobs"`
	DeferredKey      string `env:"REDIS_DEFERRED_KEY" envDefault:"sla:jobs:deferred"`
	AuditStreamKey   string `env:"REDIS_AUDIT_STREAM" envDefault:"sla:audit"`
	SubmissionPrefix string `env:"REDIS_SUBMISSION_PREFIX" envDefault:"submission:"`
	OpenSetKey       string `env:"REDIS_OPEN_SET" envDefault:"submissions:open"`
}

type Notify struct {
	WebhookURL string        `env:"NOTIFY_WEBHOOK_URL" envDefault:"http://localhost:9090/notify"`
	Timeout    time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"10s"`
}

func Load() *Config {
	_ = godotenv.Load()

	var c Config
	if err := env.Parse(&c); err != nil {
		log.Fatal(err)
	}

	return &c
}
