package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Whisper   WhisperConfig
	Translate TranslateConfig
	Speech    SpeechConfig
	Storage   StorageConfig
	Pipeline  PipelineConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration int // hours
}

type RateLimitConfig struct {
	TranslationsPerHour int
	UploadsPerHour      int
}

// WhisperConfig points at the speech-to-text inference endpoint.
type WhisperConfig struct {
	EndpointURL string
	APIKey      string
}

// TranslateConfig points at the text translation service.
type TranslateConfig struct {
	EndpointURL string
	APIKey      string
}

// SpeechConfig points at the speech synthesis service.
type SpeechConfig struct {
	EndpointURL string
	APIKey      string
}

// StorageConfig describes the audio bucket.
type StorageConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

// PipelineConfig governs the orchestrator execution.
type PipelineConfig struct {
	PollInterval     time.Duration
	OverallTimeout   time.Duration
	JobRetention     time.Duration
	QueueConcurrency int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("JWT_SECRET")
	readSecret("WHISPER_API_KEY")
	readSecret("TRANSLATE_API_KEY")
	readSecret("SPEECH_API_KEY")
	readSecret("STORAGE_ACCESS_KEY_ID")
	readSecret("STORAGE_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("jwt.secret", "JWT_SECRET")
	_ = viper.BindEnv("jwt.expiration", "JWT_EXPIRATION")
	_ = viper.BindEnv("whisper.endpoint_url", "WHISPER_ENDPOINT_URL")
	_ = viper.BindEnv("whisper.api_key", "WHISPER_API_KEY")
	_ = viper.BindEnv("translate.endpoint_url", "TRANSLATE_ENDPOINT_URL")
	_ = viper.BindEnv("translate.api_key", "TRANSLATE_API_KEY")
	_ = viper.BindEnv("speech.endpoint_url", "SPEECH_ENDPOINT_URL")
	_ = viper.BindEnv("speech.api_key", "SPEECH_API_KEY")
	_ = viper.BindEnv("storage.region", "STORAGE_REGION")
	_ = viper.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = viper.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.bucket_name", "STORAGE_BUCKET_NAME")
	_ = viper.BindEnv("storage.public_url", "STORAGE_PUBLIC_URL")
	_ = viper.BindEnv("pipeline.poll_interval", "PIPELINE_POLL_INTERVAL")
	_ = viper.BindEnv("pipeline.overall_timeout", "PIPELINE_OVERALL_TIMEOUT")
	_ = viper.BindEnv("pipeline.job_retention", "PIPELINE_JOB_RETENTION")
	_ = viper.BindEnv("pipeline.queue_concurrency", "PIPELINE_QUEUE_CONCURRENCY")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expiration", 24)
	viper.SetDefault("ratelimit.translations_per_hour", 30)
	viper.SetDefault("ratelimit.uploads_per_hour", 50)

	// Storage defaults
	viper.SetDefault("storage.region", "us-east-1")

	// Pipeline defaults — overall timeout mirrors the 5-minute budget of the
	// upstream workflow this service fronts.
	viper.SetDefault("pipeline.poll_interval", "3s")
	viper.SetDefault("pipeline.overall_timeout", "5m")
	viper.SetDefault("pipeline.job_retention", "24h")
	viper.SetDefault("pipeline.queue_concurrency", 10)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:     viper.GetString("jwt.secret"),
			Expiration: viper.GetInt("jwt.expiration"),
		},
		RateLimit: RateLimitConfig{
			TranslationsPerHour: viper.GetInt("ratelimit.translations_per_hour"),
			UploadsPerHour:      viper.GetInt("ratelimit.uploads_per_hour"),
		},
		Whisper: WhisperConfig{
			EndpointURL: viper.GetString("whisper.endpoint_url"),
			APIKey:      viper.GetString("whisper.api_key"),
		},
		Translate: TranslateConfig{
			EndpointURL: viper.GetString("translate.endpoint_url"),
			APIKey:      viper.GetString("translate.api_key"),
		},
		Speech: SpeechConfig{
			EndpointURL: viper.GetString("speech.endpoint_url"),
			APIKey:      viper.GetString("speech.api_key"),
		},
		Storage: StorageConfig{
			Region:          viper.GetString("storage.region"),
			Endpoint:        viper.GetString("storage.endpoint"),
			AccessKeyID:     viper.GetString("storage.access_key_id"),
			SecretAccessKey: viper.GetString("storage.secret_access_key"),
			BucketName:      viper.GetString("storage.bucket_name"),
			PublicURL:       viper.GetString("storage.public_url"),
		},
		Pipeline: PipelineConfig{
			PollInterval:     viper.GetDuration("pipeline.poll_interval"),
			OverallTimeout:   viper.GetDuration("pipeline.overall_timeout"),
			JobRetention:     viper.GetDuration("pipeline.job_retention"),
			QueueConcurrency: viper.GetInt("pipeline.queue_concurrency"),
		},
	}

	return cfg, nil
}
