package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置结构体（完全匹配config.yaml）
type Config struct {
	Server   ServerConfig            `mapstructure:"server"`   // 服务器配置
	Postgres PostgresConfig          `mapstructure:"postgres"` // PostgreSQL配置
	Analysis AnalysisConfig          `mapstructure:"analysis"` // 分析任务配置
	Sources  map[string]SourceConfig `mapstructure:"sources"`  // 多数据源独立配置
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `mapstructure:"port"` // 服务端口
	Mode string `mapstructure:"mode"` // Gin运行模式：debug/release/test
}

// PostgresConfig PostgreSQL数据库配置
type PostgresConfig struct {
	DSN             string        `mapstructure:"dsn"`               // 连接DSN
	MaxOpenConns    int           `mapstructure:"max_open_conns"`    // 最大打开连接数
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`    // 最大空闲连接数
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"` // 连接最大存活时间
}

// AnalysisConfig 分析任务配置
type AnalysisConfig struct {
	Deadline        time.Duration `mapstructure:"deadline"`          // 整体分析硬超时
	SocialPaceDelay time.Duration `mapstructure:"social_pace_delay"` // Social调用间隔（限流保护）
	SignalTimeout   time.Duration `mapstructure:"signal_timeout"`    // 单次信号调用超时
}

// SourceConfig 单个数据源的独立配置
type SourceConfig struct {
	BaseURL     string `mapstructure:"base_url"`      // API基础地址
	ClobBaseURL string `mapstructure:"clob_base_url"` // 订单簿API地址（仅polymarket用）
	Timeout     int    `mapstructure:"timeout"`       // 请求超时（秒）
	RetryCount  int    `mapstructure:"retry_count"`   // 重试次数
	AuthToken   string `mapstructure:"auth_token"`    // 通用认证Token
	Proxy       string `mapstructure:"proxy"`         // 代理地址
	Model       string `mapstructure:"model"`         // 推理模型名（仅oracle数据源用）
}

// LoadConfig 加载配置文件（config/config.yaml），敏感项从 .env 覆盖（不提交 git）
func LoadConfig() (*Config, error) {
	// 1. 加载 .env（若存在），env 中的值会覆盖 config.yaml 中同名字段
	_ = godotenv.Load() // 忽略错误（.env 可不存在）

	// 2. 读取 config.yaml
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	viper.SetTypeByDefaultValue(true)
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 3. 敏感字段：用 env 覆盖（优先级 env > yaml）
	overrideFromEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// overrideFromEnv 用环境变量覆盖敏感配置
func overrideFromEnv(cfg *Config) {
	envTokens := map[string]string{
		"news":   "NEWS_AUTH_TOKEN",
		"social": "SOCIAL_AUTH_TOKEN",
		"oracle": "ORACLE_AUTH_TOKEN",
	}
	for name, envKey := range envTokens {
		s, ok := cfg.Sources[name]
		if !ok {
			continue
		}
		if v := os.Getenv(envKey); v != "" {
			s.AuthToken = v
		}
		cfg.Sources[name] = s
	}
	if p, ok := cfg.Sources["polymarket"]; ok {
		if v := os.Getenv("POLYMARKET_PROXY"); v != "" {
			p.Proxy = v
		}
		cfg.Sources["polymarket"] = p
	}
	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
}

// applyDefaults 分析参数兜底（配置缺省时仍可运行）
func applyDefaults(cfg *Config) {
	if cfg.Analysis.Deadline <= 0 {
		cfg.Analysis.Deadline = 90 * time.Second
	}
	if cfg.Analysis.SocialPaceDelay <= 0 {
		cfg.Analysis.SocialPaceDelay = 500 * time.Millisecond
	}
	if cfg.Analysis.SignalTimeout <= 0 {
		cfg.Analysis.SignalTimeout = 10 * time.Second
	}
}
