// Package config loads process configuration from .env, an optional
// notes.yaml file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/smartsum/backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type AIConfig struct {
	Adapter string

	ChatURL        string
	ChatKey        string
	ChatModel      string
	SecondaryModel string

	EmbedURL   string
	EmbedKey   string
	EmbedModel string

	AudioURL   string
	AudioKey   string
	AudioModel string

	Timeout     time.Duration
	RPS         float64
	ParallelReq int64
}

type PipelineConfig struct {
	SimilarityThreshold float64
	MaxWords            int
	MinWords            int

	Delay             time.Duration
	MaxRetries        int
	Workers           int
	RateLimitCooldown time.Duration

	Mindmap        bool
	OverallSummary bool
}

type StorageConfig struct {
	Backend   string
	OutputDir string
	UploadDir string

	AWSRegion    string
	AWSEndpoint  string
	AWSAccessKey string
	AWSSecretKey string
	AWSBucket    string
}

type DatabaseConfig struct {
	Backend    string
	URL        string
	SQLitePath string
}

type QueueConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
}

type AuthConfig struct {
	URL       string
	MasterKey string
}

// Config is the complete process configuration. It is passed to
// constructors explicitly.
type Config struct {
	Debug bool
	Port  string

	AI       AIConfig
	Pipeline PipelineConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Queue    QueueConfig
	Auth     AuthConfig

	FFmpegPath string
}

var defaults = map[string]any{
	"debug": false,
	"port":  "8080",

	"ai_adapter":         "openai",
	"ai_chat_model":      "llama-3.3-70b-versatile",
	"ai_secondary_model": "",
	"ai_audio_model":     "whisper-large-v3-turbo",
	"ai_embed_model":     "",
	"ai_timeout":         "60s",
	"ai_rps":             0.0,
	"ai_parallel_req":    4,

	"segment_similarity_threshold": 0.5,
	"segment_max_words":            500,
	"segment_min_words":            100,
	"api_delay":                    "1s",
	"max_retries":                  3,
	"extract_workers":              1,
	"rate_limit_cooldown":          "10s",
	"generate_mindmap":             true,
	"overall_summary":              false,

	"storage_backend": "file",
	"output_dir":      "outputs",
	"upload_dir":      "uploads",
	"aws_region":      "us-east-1",

	"database_backend": "sqlite",
	"sqlite_path":      "notes.db",

	"rabbitmq_host": "localhost",
	"rabbitmq_port": "5672",
	"queue_name":    "notes_queue",

	"ffmpeg_path": "ffmpeg",
}

// FlagBinding ties a command line flag to a config key. A changed flag
// wins over every other source.
type FlagBinding struct {
	Key  string
	Flag *pflag.Flag
}

// Load reads .env into the environment, then resolves configuration from
// configFile (or notes.yaml on the search path), the environment and
// defaults, in that order of precedence: flag, env, file, default.
func Load(configFile string, flags ...FlagBinding) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("[Config] No .env file found, using system environment variables")
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("notes")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".smartsum"))
		}
	}

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai_chat_key", "AI_CHAT_KEY", "GROQ_API_KEY"); err != nil {
		return nil, err
	}
	for _, b := range flags {
		if b.Flag == nil {
			continue
		}
		if err := v.BindPFlag(b.Key, b.Flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.Flag.Name, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		logger.Debug("[Config] Using config file", "path", v.ConfigFileUsed())
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Debug: v.GetBool("debug"),
		Port:  v.GetString("port"),
		AI: AIConfig{
			Adapter:        strings.ToLower(v.GetString("ai_adapter")),
			ChatURL:        v.GetString("ai_chat_url"),
			ChatKey:        v.GetString("ai_chat_key"),
			ChatModel:      v.GetString("ai_chat_model"),
			SecondaryModel: v.GetString("ai_secondary_model"),
			EmbedURL:       v.GetString("ai_embed_url"),
			EmbedKey:       v.GetString("ai_embed_key"),
			EmbedModel:     v.GetString("ai_embed_model"),
			AudioURL:       v.GetString("ai_audio_url"),
			AudioKey:       v.GetString("ai_audio_key"),
			AudioModel:     v.GetString("ai_audio_model"),
			Timeout:        v.GetDuration("ai_timeout"),
			RPS:            v.GetFloat64("ai_rps"),
			ParallelReq:    v.GetInt64("ai_parallel_req"),
		},
		Pipeline: PipelineConfig{
			SimilarityThreshold: v.GetFloat64("segment_similarity_threshold"),
			MaxWords:            v.GetInt("segment_max_words"),
			MinWords:            v.GetInt("segment_min_words"),
			Delay:               v.GetDuration("api_delay"),
			MaxRetries:          v.GetInt("max_retries"),
			Workers:             v.GetInt("extract_workers"),
			RateLimitCooldown:   v.GetDuration("rate_limit_cooldown"),
			Mindmap:             v.GetBool("generate_mindmap"),
			OverallSummary:      v.GetBool("overall_summary"),
		},
		Storage: StorageConfig{
			Backend:      strings.ToLower(v.GetString("storage_backend")),
			OutputDir:    v.GetString("output_dir"),
			UploadDir:    v.GetString("upload_dir"),
			AWSRegion:    v.GetString("aws_region"),
			AWSEndpoint:  v.GetString("aws_endpoint"),
			AWSAccessKey: v.GetString("aws_access_key"),
			AWSSecretKey: v.GetString("aws_secret_key"),
			AWSBucket:    v.GetString("aws_bucket"),
		},
		Database: DatabaseConfig{
			Backend:    strings.ToLower(v.GetString("database_backend")),
			URL:        v.GetString("database_url"),
			SQLitePath: v.GetString("sqlite_path"),
		},
		Queue: QueueConfig{
			User:     v.GetString("rabbitmq_user"),
			Password: v.GetString("rabbitmq_password"),
			Host:     v.GetString("rabbitmq_host"),
			Port:     v.GetString("rabbitmq_port"),
			Name:     v.GetString("queue_name"),
		},
		Auth: AuthConfig{
			URL:       v.GetString("auth_url"),
			MasterKey: v.GetString("master_api_key"),
		},
		FFmpegPath: v.GetString("ffmpeg_path"),
	}

	// The embedding endpoint defaults to the chat endpoint.
	if cfg.AI.EmbedURL == "" {
		cfg.AI.EmbedURL = cfg.AI.ChatURL
	}
	if cfg.AI.EmbedKey == "" {
		cfg.AI.EmbedKey = cfg.AI.ChatKey
	}
	if cfg.AI.AudioURL == "" {
		cfg.AI.AudioURL = cfg.AI.ChatURL
	}
	if cfg.AI.AudioKey == "" {
		cfg.AI.AudioKey = cfg.AI.ChatKey
	}
	return cfg
}
