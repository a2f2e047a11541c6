package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	defaultModel       = "gpt-4o-mini"
	defaultDatabaseURL = "file:DB/fansafe.db"
	defaultPort        = "8081"
	defaultLogLevel    = "info"
)

type Config struct {
	APIKey                 string `json:"api_key"`
	BaseURL                string `json:"base_url"`
	Model                  string `json:"model"`
	VisionModel            string `json:"vision_model"`
	StrictOutputValidation bool   `json:"strict_output_validation"`

	ManagedDatabaseURL   string `json:"managed_database_url"`
	ManagedDatabaseToken string `json:"managed_database_token"`
	DatabaseURL          string `json:"database_url"`

	RedisAddr string `json:"redis_addr"`
	RedisPwd  string `json:"redis_password"`
	RedisDB   int    `json:"redis_db"`

	AdminUsername     string `json:"admin_username"`
	AdminPasswordHash string `json:"admin_password_hash"`
	JWTSecret         string `json:"jwt_secret"`

	LogLevel       string   `json:"log_level"`
	LogFile        string   `json:"log_file"`
	Port           string   `json:"port"`
	TrustedProxies []string `json:"trusted_proxies"`
}

// LoadConfig 读取可选的 JSON 配置文件，再用 .env 与环境变量覆盖。
// 配置文件不存在不算错误，便于纯环境变量部署。
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	if strings.TrimSpace(path) != "" {
		resolvedPath := resolveConfigPath(path)
		file, err := os.Open(resolvedPath)
		switch {
		case err == nil:
			defer file.Close()
			decoder := json.NewDecoder(file)
			if err := decoder.Decode(&cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to open config file (%s): %w", resolvedPath, err)
		}
	}

	// .env 缺失时静默回退到系统环境变量
	_ = godotenv.Load()

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// IsOpenAIConfigured 判断推理服务密钥是否已配置。
func (c *Config) IsOpenAIConfigured() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// UsesManagedDatabase 仅当托管库地址与令牌同时存在时返回 true。
func (c *Config) UsesManagedDatabase() bool {
	return strings.TrimSpace(c.ManagedDatabaseURL) != "" && strings.TrimSpace(c.ManagedDatabaseToken) != ""
}

// UsesRedis 判断是否启用 Redis 限流存储。
func (c *Config) UsesRedis() bool {
	return strings.TrimSpace(c.RedisAddr) != ""
}

func (c *Config) applyEnv() {
	overrideString(&c.APIKey, "OPENAI_API_KEY")
	overrideString(&c.BaseURL, "OPENAI_BASE_URL")
	overrideString(&c.Model, "OPENAI_MODEL")
	overrideString(&c.VisionModel, "OPENAI_VISION_MODEL")
	overrideBool(&c.StrictOutputValidation, "STRICT_OUTPUT_VALIDATION")

	overrideString(&c.ManagedDatabaseURL, "MANAGED_DATABASE_URL")
	overrideString(&c.ManagedDatabaseToken, "MANAGED_DATABASE_TOKEN")
	overrideString(&c.DatabaseURL, "DATABASE_URL")

	overrideString(&c.RedisAddr, "REDIS_ADDR")
	overrideString(&c.RedisPwd, "REDIS_PASSWORD")
	overrideInt(&c.RedisDB, "REDIS_DB")

	overrideString(&c.AdminUsername, "ADMIN_USERNAME")
	overrideString(&c.AdminPasswordHash, "ADMIN_PASSWORD_HASH")
	overrideString(&c.JWTSecret, "JWT_SECRET")

	overrideString(&c.LogLevel, "LOG_LEVEL")
	overrideString(&c.LogFile, "LOG_FILE")
	overrideString(&c.Port, "PORT")
	overrideList(&c.TrustedProxies, "TRUSTED_PROXIES")
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	if strings.TrimSpace(c.VisionModel) == "" {
		c.VisionModel = c.Model
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		c.DatabaseURL = defaultDatabaseURL
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaultLogLevel
	}
	if strings.TrimSpace(c.Port) == "" {
		c.Port = defaultPort
	}
	if strings.TrimSpace(c.AdminUsername) == "" {
		c.AdminUsername = "admin"
	}
}

func overrideString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		*target = strings.TrimSpace(val)
	}
}

// overrideList 逗号分隔，忽略空项。
func overrideList(target *[]string, key string) {
	val, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(val) == "" {
		return
	}
	items := make([]string, 0)
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*target = items
}

func overrideInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			*target = n
		}
	}
}

func overrideBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			*target = b
		}
	}
}

func resolveConfigPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	if _, err := os.Stat(path); err == nil {
		return path
	}

	_, currentFile, _, ok := runtime.Caller(0)
	if ok {
		projectRoot := filepath.Clean(filepath.Join(filepath.Dir(currentFile), ".."))
		candidate := filepath.Join(projectRoot, path)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return path
}
