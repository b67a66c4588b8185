// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Remote    RemoteConfig
	Cache     CacheConfig
	Sync      SyncConfig
	Archive   ArchiveConfig
	Analytics AnalyticsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RemoteConfig describes the upstream transactional API.
type RemoteConfig struct {
	BaseURL        string
	APIToken       string
	TimeoutSeconds int
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

// SyncConfig tunes the sync coordinator. Durations are in seconds so they can
// be overridden from the environment.
type SyncConfig struct {
	FromDate              string
	MaxRetries            int
	RetryDelaySeconds     int
	AttemptTimeoutSeconds int
	StaleLockSeconds      int
}

type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type AnalyticsConfig struct {
	LeadTimeDays    float64
	OrderCost       float64
	HoldingCostRate float64
	CostRatio       float64
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
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		// Empty host means no database: job history falls back to memory.
		viper.SetDefault("DB_HOST", "")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "invsync")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("REMOTE_BASE_URL", "")
		viper.SetDefault("REMOTE_API_TOKEN", "")
		viper.SetDefault("REMOTE_TIMEOUT_SECONDS", 30)
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("SYNC_FROM_DATE", "2025-01-01")
		viper.SetDefault("SYNC_MAX_RETRIES", 3)
		viper.SetDefault("SYNC_RETRY_DELAY_SECONDS", 120)
		viper.SetDefault("SYNC_ATTEMPT_TIMEOUT_SECONDS", 900)
		viper.SetDefault("SYNC_STALE_LOCK_SECONDS", 1200)
		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_ACCESS_KEY", "")
		viper.SetDefault("ARCHIVE_SECRET_KEY", "")
		viper.SetDefault("ARCHIVE_BUCKET", "invsync-snapshots")
		viper.SetDefault("ARCHIVE_USE_SSL", true)
		viper.SetDefault("ANALYTICS_LEAD_TIME_DAYS", 14)
		viper.SetDefault("ANALYTICS_ORDER_COST", 150000)
		viper.SetDefault("ANALYTICS_HOLDING_COST_RATE", 0.25)
		viper.SetDefault("ANALYTICS_COST_RATIO", 0.7)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Remote: RemoteConfig{
				BaseURL:        viper.GetString("REMOTE_BASE_URL"),
				APIToken:       viper.GetString("REMOTE_API_TOKEN"),
				TimeoutSeconds: viper.GetInt("REMOTE_TIMEOUT_SECONDS"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
			},
			Sync: SyncConfig{
				FromDate:              viper.GetString("SYNC_FROM_DATE"),
				MaxRetries:            viper.GetInt("SYNC_MAX_RETRIES"),
				RetryDelaySeconds:     viper.GetInt("SYNC_RETRY_DELAY_SECONDS"),
				AttemptTimeoutSeconds: viper.GetInt("SYNC_ATTEMPT_TIMEOUT_SECONDS"),
				StaleLockSeconds:      viper.GetInt("SYNC_STALE_LOCK_SECONDS"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			},
			Analytics: AnalyticsConfig{
				LeadTimeDays:    viper.GetFloat64("ANALYTICS_LEAD_TIME_DAYS"),
				OrderCost:       viper.GetFloat64("ANALYTICS_ORDER_COST"),
				HoldingCostRate: viper.GetFloat64("ANALYTICS_HOLDING_COST_RATE"),
				CostRatio:       viper.GetFloat64("ANALYTICS_COST_RATIO"),
			},
		}
	})

	return instance
}
