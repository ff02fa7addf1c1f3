package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultSecretsFile 默认密钥文件位置。
const DefaultSecretsFile = ".streamlit/secrets.toml"

// ErrServiceURLMissing 表示未配置远程研究服务地址。
var ErrServiceURLMissing = errors.New("research service URL is not configured: set RESEARCH_SERVICE_URL or the Service key in the secrets file")

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Research ResearchConfig
	Session  SessionConfig
}

// Load 从环境变量与密钥文件加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	research, err := loadResearchConfig()
	if err != nil {
		return nil, err
	}

	session, err := loadSessionConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Research: research, Session: session}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
	// AllowedOrigins 允许跨域访问与 WebSocket 握手的来源，为空时只接受同源请求。
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	origins := parseListEnv("CORS_ALLOWED_ORIGINS")

	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// ResearchConfig 描述远程研究工作流服务配置。
type ResearchConfig struct {
	ServiceURL  string
	AssistantID string
	APIKey      string
	RunTimeout  time.Duration
	SecretsFile string
}

// Secrets 对应 TOML 密钥文件的结构。
type Secrets struct {
	Service string `toml:"Service"`
	APIKey  string `toml:"LANGGRAPH_API_KEY"`
}

// LoadSecrets 读取 TOML 密钥文件；文件不存在时返回空值。
func LoadSecrets(path string) (Secrets, error) {
	var secrets Secrets
	if path == "" {
		return secrets, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return secrets, nil
	}
	if _, err := toml.DecodeFile(path, &secrets); err != nil {
		return Secrets{}, fmt.Errorf("invalid secrets file %s: %w", path, err)
	}
	secrets.Service = strings.TrimSpace(secrets.Service)
	secrets.APIKey = strings.TrimSpace(secrets.APIKey)
	return secrets, nil
}

func loadResearchConfig() (ResearchConfig, error) {
	secretsFile := getEnvOrDefault("RESEARCH_SECRETS_FILE", DefaultSecretsFile)
	secrets, err := LoadSecrets(secretsFile)
	if err != nil {
		return ResearchConfig{}, err
	}

	serviceURL := getEnvOrDefault("RESEARCH_SERVICE_URL", secrets.Service)
	if serviceURL == "" {
		return ResearchConfig{}, ErrServiceURLMissing
	}

	timeout, err := parseOptionalIntEnv("RESEARCH_RUN_TIMEOUT")
	if err != nil {
		return ResearchConfig{}, err
	}
	var runTimeout time.Duration
	if timeout != nil {
		if *timeout < 0 {
			return ResearchConfig{}, fmt.Errorf("invalid RESEARCH_RUN_TIMEOUT value %d: must not be negative", *timeout)
		}
		runTimeout = time.Duration(*timeout) * time.Second
	}

	apiKey := strings.TrimSpace(os.Getenv("LANGGRAPH_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("LANGSMITH_API_KEY"))
	}
	if apiKey == "" {
		apiKey = secrets.APIKey
	}

	return ResearchConfig{
		ServiceURL:  serviceURL,
		AssistantID: getEnvOrDefault("RESEARCH_ASSISTANT_ID", "research_assistant"),
		APIKey:      apiKey,
		RunTimeout:  runTimeout,
		SecretsFile: secretsFile,
	}, nil
}

// SessionConfig 描述用户会话配置，TTL 为会话自创建起的有效期。
type SessionConfig struct {
	TTL        time.Duration
	CookieName string
	SecureOnly bool
}

func loadSessionConfig() (SessionConfig, error) {
	ttlMinutes := 60
	if override, err := parseOptionalIntEnv("SESSION_TTL"); err != nil {
		return SessionConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return SessionConfig{}, fmt.Errorf("invalid SESSION_TTL value %d: must be positive", *override)
		}
		ttlMinutes = *override
	}

	secure, err := parseBoolEnv("SESSION_COOKIE_SECURE", false)
	if err != nil {
		return SessionConfig{}, err
	}

	return SessionConfig{
		TTL:        time.Duration(ttlMinutes) * time.Minute,
		CookieName: getEnvOrDefault("SESSION_COOKIE", "research_session"),
		SecureOnly: secure,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseListEnv 解析逗号分隔的列表，忽略空项。
func parseListEnv(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
