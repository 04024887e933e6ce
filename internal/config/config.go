package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultPort          = 3000
	defaultDatabase      = "kineticafs.db"
	defaultRegionsPath   = "./regions.json"
	defaultTokenPepper   = "change-me-token-pepper"
	defaultMasterKey     = "change-me-master-key"
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
	defaultBlobTTL       = "10m"
	defaultCORSOrigins   = "http://localhost:3000,http://localhost:5173"
	defaultCORSHeaders   = "Content-Type,Content-Length,Accept,Origin,X-Requested-With,x-api-token"
	defaultShutdownGrace = "20s"
)

// Config is the runtime configuration of the service and its CLI commands.
type Config struct {
	// ConfigFile is the config.yaml that was read, empty when none was found.
	ConfigFile         string
	AppEnv             string
	Port               int
	DatabaseDSN        string
	RegionsPath        string
	TokenPepper        string
	MasterKey          string
	CORSAllowedOrigins []string
	CORSAllowedHeaders []string
	LogLevel           string
	LogFormat          string
	MaxBlobSize        int64
	BlobTTL            time.Duration
	ShutdownGrace      time.Duration
}

// ServerURL is the base URL of a server started with this config on localhost.
func (c *Config) ServerURL() string {
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

// BindFlags registers the command-line flags understood by Load.
func BindFlags(fs *pflag.FlagSet) {
	fs.Int("port", defaultPort, "Server port")
	fs.StringP("database", "d", defaultDatabase, "Database DSN (postgres://... or a sqlite file path)")
	fs.StringP("region", "r", defaultRegionsPath, "Path to regions configuration file")
	fs.String("token-pepper", defaultTokenPepper, "Secret mixed into stored service token digests")
	fs.String("master-key", defaultMasterKey, "Secret used to seal bucket credentials at rest")
	fs.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-format", defaultLogFormat, "Log format (text, json)")
	fs.Int64("max-blob-size", 0, "Maximum accepted blob size in bytes (0 = unlimited)")
	fs.String("blob-ttl", defaultBlobTTL, "Age after which never-uploaded blob slots are purged")
	fs.String("env", "dev", "Application environment (dev, prod)")
}

// Load resolves configuration from defaults, an optional config.yaml, .env,
// KINETICAFS_* environment variables and the given flags, in increasing
// priority.
func Load(v *viper.Viper, fs *pflag.FlagSet) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v.SetDefault("port", defaultPort)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("region", defaultRegionsPath)
	v.SetDefault("token-pepper", defaultTokenPepper)
	v.SetDefault("master-key", defaultMasterKey)
	v.SetDefault("log-level", defaultLogLevel)
	v.SetDefault("log-format", defaultLogFormat)
	v.SetDefault("max-blob-size", 0)
	v.SetDefault("blob-ttl", defaultBlobTTL)
	v.SetDefault("env", "dev")
	v.SetDefault("cors-allowed-origins", defaultCORSOrigins)
	v.SetDefault("cors-allowed-headers", defaultCORSHeaders)
	v.SetDefault("shutdown-grace", defaultShutdownGrace)

	v.SetEnvPrefix("KINETICAFS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.kineticafs")
	v.AddConfigPath("/etc/kineticafs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	cfg := &Config{
		ConfigFile:         v.ConfigFileUsed(),
		AppEnv:             strings.ToLower(strings.TrimSpace(v.GetString("env"))),
		Port:               v.GetInt("port"),
		DatabaseDSN:        strings.TrimSpace(v.GetString("database")),
		RegionsPath:        strings.TrimSpace(v.GetString("region")),
		TokenPepper:        strings.TrimSpace(v.GetString("token-pepper")),
		MasterKey:          strings.TrimSpace(v.GetString("master-key")),
		CORSAllowedOrigins: splitList(v.GetString("cors-allowed-origins")),
		CORSAllowedHeaders: splitList(v.GetString("cors-allowed-headers")),
		LogLevel:           strings.TrimSpace(v.GetString("log-level")),
		LogFormat:          strings.TrimSpace(v.GetString("log-format")),
		MaxBlobSize:        v.GetInt64("max-blob-size"),
	}

	var err error
	cfg.BlobTTL, err = parseDuration("blob-ttl", v.GetString("blob-ttl"))
	if err != nil {
		return nil, err
	}
	cfg.ShutdownGrace, err = parseDuration("shutdown-grace", v.GetString("shutdown-grace"))
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be in 1..65535, got %d", cfg.Port)
	}
	if cfg.DatabaseDSN == "" {
		return fmt.Errorf("database must not be empty")
	}
	if cfg.TokenPepper == "" {
		return fmt.Errorf("token-pepper must not be empty")
	}
	if cfg.MasterKey == "" {
		return fmt.Errorf("master-key must not be empty")
	}
	if cfg.MaxBlobSize < 0 {
		return fmt.Errorf("max-blob-size must be >= 0")
	}
	if cfg.BlobTTL <= 0 {
		return fmt.Errorf("blob-ttl must be > 0")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.TokenPepper, defaultTokenPepper) {
			return fmt.Errorf("in prod/release token-pepper must be set and not default")
		}
		if isEmptyOrDefault(cfg.MasterKey, defaultMasterKey) {
			return fmt.Errorf("in prod/release master-key must be set and not default")
		}
	}
	return nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDuration(name, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
