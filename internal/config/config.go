package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/kelseyhightower/envconfig"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server         ServerConfig
	Log            LogConfig
	Relay          RelayConfig
	AI             AIConfig
	Chat           ChatConfig
	Realtime       RealtimeConfig
	Image          ImageConfig
	DefaultProfile string
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	cfg := &Config{}

	sections := []struct {
		name   string
		target any
	}{
		{"server", &cfg.Server},
		{"log", &cfg.Log},
		{"relay", &cfg.Relay},
		{"ai", &cfg.AI},
		{"chat", &cfg.Chat},
		{"realtime", &cfg.Realtime},
		{"image", &cfg.Image},
	}
	for _, section := range sections {
		if err := envconfig.Process("", section.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", section.name, err)
		}
	}

	var profile struct {
		DefaultProfile string `envconfig:"DEFAULT_PROFILE" default:"exha"`
	}
	if err := envconfig.Process("", &profile); err != nil {
		return nil, fmt.Errorf("load profile config: %w", err)
	}
	cfg.DefaultProfile = strings.TrimSpace(profile.DefaultProfile)

	if _, err := cfg.Server.Addr(); err != nil {
		return nil, err
	}
	if cfg.Relay.Timeout <= 0 {
		return nil, fmt.Errorf("invalid RELAY_TIMEOUT value %s: must be positive", cfg.Relay.Timeout)
	}

	return cfg, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Addr 解析服务器监听地址。
func (c ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	if strings.Contains(port, ":") {
		// 允许直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	return ":" + port, nil
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"`
	File   string `envconfig:"LOG_FILE"`
}

// RelayConfig describes the remote chat API.
type RelayConfig struct {
	BaseURL string        `envconfig:"RELAY_BASE_URL" default:"https://neo-abhinav.onrender.com/api"`
	Timeout time.Duration `envconfig:"RELAY_TIMEOUT" default:"30s"`
}

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	APIKey         string   `envconfig:"ARK_API_KEY"`
	AccessKey      string   `envconfig:"ARK_ACCESS_KEY"`
	SecretKey      string   `envconfig:"ARK_SECRET_KEY"`
	Model          string   `envconfig:"ARK_MODEL"`
	BaseURL        string   `envconfig:"ARK_BASE_URL" default:"https://ark.cn-beijing.volces.com/api/v3"`
	Region         string   `envconfig:"ARK_REGION" default:"cn-beijing"`
	Temperature    *float32 `envconfig:"ARK_TEMPERATURE"`
	TopP           *float32 `envconfig:"ARK_TOP_P"`
	MaxTokens      *int     `envconfig:"ARK_MAX_TOKENS"`
	StreamResponse bool     `envconfig:"ARK_STREAM" default:"true"`
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_MODEL with ARK_API_KEY or an AK/SK pair")
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		TopP:        c.TopP,
	}

	return ark.NewChatModel(ctx, cfg)
}

// ChatConfig controls the chat registry and transcript storage.
type ChatConfig struct {
	TTL             time.Duration `envconfig:"CHAT_TTL" default:"24h"`
	CleanupInterval time.Duration `envconfig:"CHAT_CLEANUP_INTERVAL" default:"10m"`
	TranscriptPath  string        `envconfig:"TRANSCRIPT_PATH"`
	TranscriptLimit int           `envconfig:"TRANSCRIPT_LIMIT" default:"50"`
}

// RealtimeConfig tunes the websocket transport.
type RealtimeConfig struct {
	MessagesPerSecond float64  `envconfig:"WS_MESSAGES_PER_SECOND" default:"1"`
	Burst             int      `envconfig:"WS_BURST" default:"5"`
	MaxMessageLength  int      `envconfig:"WS_MAX_MESSAGE_LENGTH" default:"4000"`
	QueueSize         int      `envconfig:"WS_QUEUE_SIZE" default:"8"`
	AllowedOrigins    []string `envconfig:"WS_ALLOWED_ORIGINS"`
}

// ImageConfig points the image: command at an image generator.
type ImageConfig struct {
	BaseURL string `envconfig:"IMAGE_BASE_URL" default:"https://text.pollinations.ai/"`
}
