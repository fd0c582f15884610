package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dreamtumulus/andun/internal/provider"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Provider provider.Config
	Agents   AgentConfig
	Auth     AuthConfig
	Store    StoreConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	providerCfg, err := loadProviderConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Provider: providerCfg,
		Agents:   loadAgentConfig(),
		Auth:     auth,
		Store:    StoreConfig{DBPath: strings.TrimSpace(os.Getenv("ANDUN_DB_PATH"))},
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// AgentConfig 两个智能体的显示名称，可自定义。
type AgentConfig struct {
	AssessmentName string
	CounselingName string
}

// AuthConfig 会话令牌签名配置。
type AuthConfig struct {
	Secret   string
	TokenTTL time.Duration
}

// StoreConfig 持久化配置。DBPath 为空时使用内存存储。
type StoreConfig struct {
	DBPath string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// loadProviderConfig 解析模型后端配置。显式提供的密钥与模型名
// 始终覆盖各后端的默认值。
func loadProviderConfig() (provider.Config, error) {
	name := strings.ToLower(strings.TrimSpace(os.Getenv("ANDUN_PROVIDER")))
	if name == "" {
		name = provider.NameGemini
	}

	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("PROVIDER_TIMEOUT"); err != nil {
		return provider.Config{}, err
	} else if override != nil && *override > 0 {
		timeoutSeconds = *override
	}

	cfg := provider.Config{
		Name:    name,
		Model:   strings.TrimSpace(os.Getenv("ANDUN_MODEL")),
		BaseURL: strings.TrimSpace(os.Getenv("ANDUN_BASE_URL")),
		Timeout: time.Duration(timeoutSeconds) * time.Second,
	}

	switch name {
	case provider.NameGemini:
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	case provider.NameOpenRouter:
		cfg.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	case provider.NameArk:
		cfg.APIKey = strings.TrimSpace(os.Getenv("ARK_API_KEY"))
	default:
		return provider.Config{}, fmt.Errorf("unknown ANDUN_PROVIDER value: %q", name)
	}
	return cfg, nil
}

func loadAgentConfig() AgentConfig {
	return AgentConfig{
		AssessmentName: getEnvOrDefault("ANDUN_ASSESSMENT_AGENT", "心语"),
		CounselingName: getEnvOrDefault("ANDUN_COUNSELING_AGENT", "蓝盾"),
	}
}

func loadAuthConfig() (AuthConfig, error) {
	ttlHours := 12
	if override, err := parseOptionalIntEnv("ANDUN_TOKEN_TTL_HOURS"); err != nil {
		return AuthConfig{}, err
	} else if override != nil && *override > 0 {
		ttlHours = *override
	}

	return AuthConfig{
		Secret:   getEnvOrDefault("ANDUN_TOKEN_SECRET", "andun-dev-secret"),
		TokenTTL: time.Duration(ttlHours) * time.Hour,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
