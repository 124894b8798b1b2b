// backend-go/internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Engine   EngineConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	LogFormat      string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Driver selects the storage backend: "postgres" or "memory".
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConcurrentTx int64
}

type AppConfig struct {
	DataDir  string
	Timezone string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	OverviewTTLSeconds int
}

// EngineConfig holds the tunables of the inventory engine.
type EngineConfig struct {
	StockDisplayDays     int
	AlertExpiringDays    int
	AlertStockoutDays    int
	DefaultHorizonDays   int
	LedgerMaxRetries     int
	LedgerRetryBackoffMs int
}

type PipelineConfig struct {
	Port    string
	Workers int
}

// StorageConfig points the seed tooling at an S3-compatible bucket.
type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("LOG_LEVEL", "")
		viper.SetDefault("LOG_FORMAT", "console")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("DB_DRIVER", "postgres")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "freshstock")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_MAX_CONCURRENT_TX", 10)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_DATA_DIR", "./data")
		viper.SetDefault("APP_TIMEZONE", "UTC")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_OVERVIEW_TTL_SECONDS", 60)
		viper.SetDefault("STOCK_DISPLAY_DAYS", 2)
		viper.SetDefault("ALERT_EXPIRING_DAYS", 30)
		viper.SetDefault("ALERT_STOCKOUT_DAYS", 7)
		viper.SetDefault("REPLENISHMENT_DEFAULT_HORIZON_DAYS", 3)
		viper.SetDefault("LEDGER_MAX_RETRIES", 3)
		viper.SetDefault("LEDGER_RETRY_BACKOFF_MS", 25)
		viper.SetDefault("JOBS_PORT", "8090")
		viper.SetDefault("PIPELINE_WORKERS", 4)
		viper.SetDefault("S3_ENDPOINT", "")
		viper.SetDefault("S3_ACCESS_KEY", "")
		viper.SetDefault("S3_SECRET_KEY", "")
		viper.SetDefault("S3_BUCKET", "")
		viper.SetDefault("S3_REGION", "")
		viper.SetDefault("S3_USE_SSL", true)

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_DATA_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				LogLevel:       viper.GetString("LOG_LEVEL"),
				LogFormat:      viper.GetString("LOG_FORMAT"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Driver:          viper.GetString("DB_DRIVER"),
				Host:            viper.GetString("DB_HOST"),
				Port:            viper.GetString("DB_PORT"),
				User:            viper.GetString("DB_USER"),
				Password:        viper.GetString("DB_PASSWORD"),
				DBName:          viper.GetString("DB_NAME"),
				SSLMode:         viper.GetString("DB_SSLMODE"),
				MaxConcurrentTx: viper.GetInt64("DB_MAX_CONCURRENT_TX"),
			},
			App: AppConfig{
				DataDir:  viper.GetString("APP_DATA_DIR"),
				Timezone: viper.GetString("APP_TIMEZONE"),
			},
			Cache: CacheConfig{
				Enabled:            viper.GetBool("CACHE_ENABLED"),
				RedisURL:           viper.GetString("REDIS_URL"),
				RedisHost:          viper.GetString("REDIS_HOST"),
				RedisPort:          viper.GetString("REDIS_PORT"),
				RedisPassword:      viper.GetString("REDIS_PASSWORD"),
				RedisDB:            viper.GetInt("REDIS_DB"),
				OverviewTTLSeconds: viper.GetInt("CACHE_OVERVIEW_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				StockDisplayDays:     viper.GetInt("STOCK_DISPLAY_DAYS"),
				AlertExpiringDays:    viper.GetInt("ALERT_EXPIRING_DAYS"),
				AlertStockoutDays:    viper.GetInt("ALERT_STOCKOUT_DAYS"),
				DefaultHorizonDays:   viper.GetInt("REPLENISHMENT_DEFAULT_HORIZON_DAYS"),
				LedgerMaxRetries:     viper.GetInt("LEDGER_MAX_RETRIES"),
				LedgerRetryBackoffMs: viper.GetInt("LEDGER_RETRY_BACKOFF_MS"),
			},
			Pipeline: PipelineConfig{
				Port:    viper.GetString("JOBS_PORT"),
				Workers: viper.GetInt("PIPELINE_WORKERS"),
			},
			Storage: StorageConfig{
				Endpoint:  viper.GetString("S3_ENDPOINT"),
				AccessKey: viper.GetString("S3_ACCESS_KEY"),
				SecretKey: viper.GetString("S3_SECRET_KEY"),
				Bucket:    viper.GetString("S3_BUCKET"),
				Region:    viper.GetString("S3_REGION"),
				UseSSL:    viper.GetBool("S3_USE_SSL"),
			},
		}
		if instance.Server.LogLevel == "" {
			instance.Server.LogLevel = "info"
			if instance.Server.Mode == "debug" {
				instance.Server.LogLevel = "debug"
			}
		}
	})

	return instance
}

// Location resolves APP_TIMEZONE, defaulting to UTC.
func (c AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown APP_TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func (c EngineConfig) RetryBackoff() time.Duration {
	return time.Duration(c.LedgerRetryBackoffMs) * time.Millisecond
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
