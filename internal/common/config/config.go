package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`

		// Separate logical DB for the identity cache so flushing the
		// cache never touches canonical user records.
		CacheDB int `env:"REDIS_CACHE_DB" envDefault:"1"`
	}

	Telegram struct {
		BotToken string `env:"BOT_TOKEN,required"`
		Debug    bool   `env:"TELEGRAM_DEBUG" envDefault:"false"`
	}

	Sync struct {
		// How long a resolved identity stays fresh in the local cache.
		CacheTTL time.Duration `env:"SYNC_CACHE_TTL" envDefault:"24h"`

		// Retry policy for remote writes. The curve is a tunable, not a
		// contract: attempts cap the total tries, the delay doubles from
		// the base between tries.
		WriteMaxAttempts int           `env:"SYNC_WRITE_MAX_ATTEMPTS" envDefault:"4"`
		WriteBackoffBase time.Duration `env:"SYNC_WRITE_BACKOFF" envDefault:"200ms"`
		WriteTimeout     time.Duration `env:"SYNC_WRITE_TIMEOUT" envDefault:"5s"`

		// Hard upper bound on a whole orchestration run so the client is
		// never blocked by an unreachable store.
		RunTimeout time.Duration `env:"SYNC_RUN_TIMEOUT" envDefault:"15s"`
	}

	Referral struct {
		// Coins credited to the referrer on a confirmed referral.
		Bonus int64 `env:"REFERRAL_BONUS" envDefault:"500"`

		// Optional AMQP broker for referral.confirmed events. Empty
		// disables publishing.
		AMQPURL string `env:"REFERRAL_AMQP_URL" envDefault:""`
	}
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		// Ignore a missing .env file; in production the variables are
		// set directly in the environment.
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
