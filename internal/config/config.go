// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Sheetd   SheetdConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	CommandRPS     float64
	CommandBurst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// Upstream kinds
const (
	UpstreamWorkbook = "workbook"
	UpstreamHTTP     = "http"
	UpstreamPostgres = "postgres"
	UpstreamS3       = "s3"
	UpstreamDrive    = "drive"
)

type UpstreamConfig struct {
	Kind                 string
	URL                  string
	WorkbookPath         string
	S3                   S3Config
	DriveFileID          string
	DriveCredentialsJSON string
}

type S3Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	Object    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type SyncConfig struct {
	Interval       time.Duration
	PullTimeout    time.Duration
	CommandTimeout time.Duration
	Timezone       string
	TrendDays      int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled             bool
	RedisURL            string
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	DashboardTTLSeconds int
}

type SheetdConfig struct {
	Port string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()
		instance = fromEnv()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("SERVER_COMMAND_RPS", 5.0)
	viper.SetDefault("SERVER_COMMAND_BURST", 10)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "console")
	viper.SetDefault("UPSTREAM_KIND", UpstreamWorkbook)
	viper.SetDefault("UPSTREAM_URL", "http://localhost:3001")
	viper.SetDefault("UPSTREAM_WORKBOOK_PATH", "./data/ventory_sheet.xlsx")
	viper.SetDefault("UPSTREAM_S3_REGION", "us-east-1")
	viper.SetDefault("UPSTREAM_S3_OBJECT", "ventory_sheet.xlsx")
	viper.SetDefault("UPSTREAM_S3_USE_SSL", true)
	viper.SetDefault("SYNC_INTERVAL", 2*time.Second)
	viper.SetDefault("SYNC_PULL_TIMEOUT", 10*time.Second)
	viper.SetDefault("SYNC_COMMAND_TIMEOUT", 10*time.Second)
	viper.SetDefault("SYNC_TIMEZONE", "Local")
	viper.SetDefault("SYNC_TREND_DAYS", 30)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "vendbees")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_DASHBOARD_TTL_SECONDS", 60)
	viper.SetDefault("SHEETD_PORT", "3001")
}

func fromEnv() *Config {
	setDefaults()

	// Read from environment variables
	viper.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			CommandRPS:     viper.GetFloat64("SERVER_COMMAND_RPS"),
			CommandBurst:   viper.GetInt("SERVER_COMMAND_BURST"),
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
		Upstream: UpstreamConfig{
			Kind:         strings.ToLower(strings.TrimSpace(viper.GetString("UPSTREAM_KIND"))),
			URL:          viper.GetString("UPSTREAM_URL"),
			WorkbookPath: viper.GetString("UPSTREAM_WORKBOOK_PATH"),
			S3: S3Config{
				Endpoint:  viper.GetString("UPSTREAM_S3_ENDPOINT"),
				Region:    viper.GetString("UPSTREAM_S3_REGION"),
				Bucket:    viper.GetString("UPSTREAM_S3_BUCKET"),
				Object:    viper.GetString("UPSTREAM_S3_OBJECT"),
				AccessKey: viper.GetString("UPSTREAM_S3_ACCESS_KEY"),
				SecretKey: viper.GetString("UPSTREAM_S3_SECRET_KEY"),
				UseSSL:    viper.GetBool("UPSTREAM_S3_USE_SSL"),
			},
			DriveFileID:          viper.GetString("UPSTREAM_DRIVE_FILE_ID"),
			DriveCredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
		Sync: SyncConfig{
			Interval:       viper.GetDuration("SYNC_INTERVAL"),
			PullTimeout:    viper.GetDuration("SYNC_PULL_TIMEOUT"),
			CommandTimeout: viper.GetDuration("SYNC_COMMAND_TIMEOUT"),
			Timezone:       viper.GetString("SYNC_TIMEZONE"),
			TrendDays:      viper.GetInt("SYNC_TREND_DAYS"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:             viper.GetBool("CACHE_ENABLED"),
			RedisURL:            viper.GetString("REDIS_URL"),
			RedisHost:           viper.GetString("REDIS_HOST"),
			RedisPort:           viper.GetString("REDIS_PORT"),
			RedisPassword:       viper.GetString("REDIS_PASSWORD"),
			RedisDB:             viper.GetInt("REDIS_DB"),
			DashboardTTLSeconds: viper.GetInt("CACHE_DASHBOARD_TTL_SECONDS"),
		},
		Sheetd: SheetdConfig{
			Port: viper.GetString("SHEETD_PORT"),
		},
	}
}

// DSN returns the lib/pq connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Location resolves the configured timezone. Empty and "Local" mean the host zone.
func (c SyncConfig) Location() (*time.Location, error) {
	tz := strings.TrimSpace(c.Timezone)
	if tz == "" || strings.EqualFold(tz, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_TIMEZONE %q: %w", tz, err)
	}
	return loc, nil
}
