// Package config reads the service configuration from the environment. A
// .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Listen   string `mapstructure:"listen"`
	LogLevel string `mapstructure:"log_level"`

	StorageType      string `mapstructure:"storage_type"`
	LocalStoragePath string `mapstructure:"local_storage_path"`
	DataSourceName   string `mapstructure:"data_source_name"`
	S3BucketName     string `mapstructure:"s3_bucket_name"`

	JWTSecret      string        `mapstructure:"jwt_secret"`
	LoginURL       string        `mapstructure:"login_url"`
	SentinelToken  string        `mapstructure:"sentinel_token"`
	SessionTimeout time.Duration `mapstructure:"session_timeout"`
	TextDebounce   time.Duration `mapstructure:"text_debounce"`

	CommerceAPIURL string `mapstructure:"commerce_api_url"`

	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	OpenAIImageModel string `mapstructure:"openai_image_model"`
	OpenAIChatModel  string `mapstructure:"openai_chat_model"`

	FontDir           string        `mapstructure:"font_dir"`
	RenderScale       float64       `mapstructure:"render_scale"`
	ImageFetchTimeout time.Duration `mapstructure:"image_fetch_timeout"`
	ImageHosts        []string      `mapstructure:"image_hosts"`
}

// Load reads .env, then the process environment, over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}
	return Parse(New())
}

// New returns a viper instance bound to the environment with every default
// set. Keys map to upper-case variables: storage_type reads STORAGE_TYPE.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return v
}

// Parse decodes v into a Config.
func Parse(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if c.RenderScale < 1 {
		c.RenderScale = 1
	}
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":3002")
	v.SetDefault("log_level", "info")

	v.SetDefault("storage_type", "memory")
	v.SetDefault("local_storage_path", "./data")
	v.SetDefault("data_source_name", "designs.db")
	v.SetDefault("s3_bucket_name", "")

	v.SetDefault("jwt_secret", "")
	v.SetDefault("login_url", "https://clothologyglobal.co.in/login")
	v.SetDefault("sentinel_token", "default")
	v.SetDefault("session_timeout", 30*time.Minute)
	v.SetDefault("text_debounce", 300*time.Millisecond)

	v.SetDefault("commerce_api_url", "")

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_base_url", "https://api.openai.com")
	v.SetDefault("openai_image_model", "gpt-image-1")
	v.SetDefault("openai_chat_model", "gpt-4o-mini")

	v.SetDefault("font_dir", "")
	v.SetDefault("render_scale", 2)
	v.SetDefault("image_fetch_timeout", 30*time.Second)
	v.SetDefault("image_hosts", []string{})
}
