package main

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/input-output-hk/catalyst-forge-libs/upload"
	"github.com/input-output-hk/catalyst-forge-libs/upload/presign"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/cloudinary"
	"github.com/input-output-hk/catalyst-forge-libs/upload/transport/minio"
)

const envPrefix = "UPLOADER"

// Config is the full command configuration.
type Config struct {
	Upload     UploadConfig      `mapstructure:"upload"`
	S3         presign.Config    `mapstructure:"s3"`
	MinIO      minio.Config      `mapstructure:"minio"`
	Cloudinary cloudinary.Config `mapstructure:"cloudinary"`
	Server     ServerConfig      `mapstructure:"server"`
	Log        LogConfig         `mapstructure:"log"`
}

// UploadConfig drives the upload command.
type UploadConfig struct {
	// Backend is one of s3, minio or cloudinary
	Backend     string        `mapstructure:"backend"`
	Folder      string        `mapstructure:"folder"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`

	// PresignURL is the presign server base URL; when empty the s3 section
	// is used to sign locally
	PresignURL string `mapstructure:"presign_url"`
}

// ServerConfig drives the presign-server command.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Metrics         bool          `mapstructure:"metrics"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("upload.backend", "s3")
	v.SetDefault("upload.folder", "")
	v.SetDefault("upload.concurrency", upload.DefaultConcurrency)
	v.SetDefault("upload.max_retries", upload.DefaultMaxRetries)
	v.SetDefault("upload.base_delay", upload.DefaultBaseDelay)
	v.SetDefault("upload.presign_url", "")

	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.public_url", "")
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.access_key_id", "")
	v.SetDefault("s3.secret_access_key", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)
	v.SetDefault("s3.expires", presign.DefaultExpires)

	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.access_key_id", "")
	v.SetDefault("minio.secret_access_key", "")
	v.SetDefault("minio.bucket", "")
	v.SetDefault("minio.region", "")
	v.SetDefault("minio.use_ssl", true)
	v.SetDefault("minio.public_url", "")

	v.SetDefault("cloudinary.cloud_name", "")
	v.SetDefault("cloudinary.upload_preset", "")
	v.SetDefault("cloudinary.base_url", cloudinary.DefaultBaseURL)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.metrics", true)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// readConfig layers defaults, the config file and UPLOADER_* environment
// variables into v. A missing default config file is not an error.
func readConfig(v *viper.Viper, file string) error {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("uploader")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/uploader")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !stderrors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}
	return nil
}

func loadConfig(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}
