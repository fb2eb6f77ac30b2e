package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	s3fm "github.com/Lkld-IO/wp-s3-file-manager"
	"github.com/Lkld-IO/wp-s3-file-manager/database"
)

// Config is the root configuration struct.
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Database database.Config `mapstructure:"database"`
	Admin    AdminConfig     `mapstructure:"admin"`
	Sync     SyncConfig      `mapstructure:"sync"`
	CORS     CORSConfig      `mapstructure:"cors"`
	Log      LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// StorageConfig holds the bucket credentials and addressing options.
// AccessKey, SecretKey, and Bucket may be empty at load time; operations
// that need the network fail fast until all three are set.
type StorageConfig struct {
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Region        string `mapstructure:"region" validate:"required"`
	Bucket        string `mapstructure:"bucket"`
	Prefix        string `mapstructure:"prefix"`
	PresignExpiry int    `mapstructure:"presign_expiry" validate:"min=1,max=604800"`
	ChunkSize     int64  `mapstructure:"chunk_size" validate:"min=5242880"`
}

// Credentials converts the storage section into the client's credential
// value.
func (s StorageConfig) Credentials() s3fm.Credentials {
	return s3fm.Credentials{
		AccessKey: s.AccessKey,
		SecretKey: s.SecretKey,
		Region:    s.Region,
		Bucket:    s.Bucket,
		Prefix:    s.Prefix,
	}
}

// AdminConfig guards the admin JSON API. An empty token disables the API.
type AdminConfig struct {
	Token string `mapstructure:"token"`
}

// SyncConfig controls the background reconciliation loop.
type SyncConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Interval int  `mapstructure:"interval" validate:"min=60"` // seconds
}

// CORSConfig holds CORS configuration for the admin API.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":    "database.type",
	"db-dsn":     "database.dsn",
	"bucket":     "storage.bucket",
	"region":     "storage.region",
	"access-key": "storage.access_key",
	"secret-key": "storage.secret_key",
	"prefix":     "storage.prefix",
	"port":       "server.port",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey := f.Name
		if mapped, ok := flagToViperKey[viperKey]; ok {
			viperKey = mapped
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8335)

	v.SetDefault("storage.region", s3fm.DefaultRegion)
	v.SetDefault("storage.presign_expiry", s3fm.DefaultPresignExpiry)
	v.SetDefault("storage.chunk_size", 8*1024*1024)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "s3fm.db")
	v.SetDefault("database.table", "s3fm_files")

	v.SetDefault("sync.enabled", true)
	v.SetDefault("sync.interval", 3600)

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("S3FM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
