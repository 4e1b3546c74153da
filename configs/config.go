package configs

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

const devSecret = "dev-secret-change-me"

type Config struct {
	Env  string `env:"GO_ENV" envDefault:"development"`
	Port int    `env:"PORT" envDefault:"3004"`

	// file, postgres or sqlite
	StoreDriver string `env:"STORE_DRIVER" envDefault:"file"`
	DataFile    string `env:"DATA_FILE" envDefault:"data.json"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"tasks.db"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`

	RedisEnabled bool          `env:"REDIS_ENABLED" envDefault:"false"`
	RedisHost    string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort    int           `env:"REDIS_PORT" envDefault:"6379"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	JWTSecret  string        `env:"JWT_SECRET"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
	BcryptCost int           `env:"BCRYPT_COST" envDefault:"12"`

	ClientURL    string `env:"CLIENT_URL" envDefault:"http://localhost:3001"`
	RateLimitMax int    `env:"RATE_LIMIT_MAX" envDefault:"100"`
	LogDir       string `env:"LOG_DIR" envDefault:"logs"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func (c Config) Production() bool {
	return c.Env == "production"
}

func LoadConfig() (Config, error) {
	// Muat file .env
	if err := godotenv.Load(); err != nil {
		// Hanya log jika tidak dalam mode test
		if os.Getenv("GO_ENV") != "test" {
			log.Println("No .env file found, using environment variables")
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.StoreDriver == "" {
		c.StoreDriver = "file"
	}
	switch c.StoreDriver {
	case "file", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q (want file, postgres or sqlite)", c.StoreDriver)
	}
	if c.JWTSecret == "" {
		if c.Production() {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		c.JWTSecret = devSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
