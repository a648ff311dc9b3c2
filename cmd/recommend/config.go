package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"product_recommend/internal/logger"
	"product_recommend/pkg/llm"
)

// LLMGlobalConfig 对应 configs/llm.yaml
type LLMGlobalConfig struct {
	LLMs map[string]llm.Config `yaml:"llms" validate:"dive"`
}

// ServerConfig 对应 configs/server.yaml
type ServerConfig struct {
	Server struct {
		Port        string `yaml:"port" validate:"required,numeric"`
		Debug       bool   `yaml:"debug"`
		AllowOrigin string `yaml:"allow_origin"` // CORS 来源，默认 "*"
	} `yaml:"server"`
	Paths struct {
		Database  string `yaml:"database" validate:"required"`
		SeedCSV   string `yaml:"seed_csv"`
		Pipelines string `yaml:"pipelines"`
		LLM       string `yaml:"llm"`
		Behaviors string `yaml:"behaviors"`
	} `yaml:"paths"`
	Recommend struct {
		DefaultTopK           int    `yaml:"default_top_k" validate:"gte=0"`
		LLMKey                string `yaml:"llm_key"`
		ExplainTimeoutMs      int    `yaml:"explain_timeout_ms" validate:"gte=0"`
		BreakerThreshold      uint32 `yaml:"breaker_threshold"`
		BreakerOpenMs         int    `yaml:"breaker_open_ms" validate:"gte=0"`
		BehaviorRetentionDays int    `yaml:"behavior_retention_days" validate:"gte=0"`
	} `yaml:"recommend"`
}

var validate = validator.New()

func defaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.Server.Port = "8000"
	cfg.Server.AllowOrigin = "*"
	cfg.Paths.Database = "database.db"
	cfg.Paths.SeedCSV = "sample_data.csv"
	cfg.Paths.Pipelines = "configs/pipelines.json"
	cfg.Paths.LLM = "configs/llm.yaml"
	cfg.Paths.Behaviors = "data/behaviors.jsonl"
	cfg.Recommend.DefaultTopK = 3
	cfg.Recommend.LLMKey = "default"
	cfg.Recommend.ExplainTimeoutMs = 30000
	cfg.Recommend.BreakerThreshold = 5
	cfg.Recommend.BreakerOpenMs = 30000
	cfg.Recommend.BehaviorRetentionDays = 30
	return cfg
}

// serverFlags 命令行参数，只有显式设置的参数才会覆盖配置文件
type serverFlags struct {
	configPath string
	port       string
	debug      bool
	database   string
	seedCSV    string
	pipelines  string
	llm        string
	behaviors  string
}

func (f *serverFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.configPath, "config", "configs/server.yaml", "Path to server config file")
	fs.StringVar(&f.port, "port", "", "Server port")
	fs.BoolVar(&f.debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.database, "db", "", "Path to the SQLite database")
	fs.StringVar(&f.seedCSV, "seed", "", "Path to the seed CSV file")
	fs.StringVar(&f.pipelines, "pipelines", "", "Path to pipelines.json")
	fs.StringVar(&f.llm, "llm", "", "Path to llm.yaml")
	fs.StringVar(&f.behaviors, "behaviors", "", "Path to behaviors.jsonl")
}

// loadServerConfig 读取配置文件并覆盖到 cfg 上，文件中未出现的字段保持原值
func loadServerConfig(path string, cfg *ServerConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// InitServerConfig 初始化服务器配置，优先级：命令行参数 > 配置文件 > 默认值
func InitServerConfig(f *serverFlags, fs *pflag.FlagSet) (*ServerConfig, error) {
	// 1. 默认值
	cfg := defaultServerConfig()

	// 2. 配置文件；默认路径不存在时直接使用默认值，显式指定的文件必须可读
	if err := loadServerConfig(f.configPath, cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || fs.Changed("config") {
			return nil, err
		}
		logger.Debug("Config file '%s' not found, using defaults and flags", f.configPath)
	}

	// 3. 命令行参数 (优先级最高)
	if fs.Changed("port") {
		cfg.Server.Port = f.port
	}
	if fs.Changed("debug") {
		cfg.Server.Debug = f.debug
	}
	if fs.Changed("db") {
		cfg.Paths.Database = f.database
	}
	if fs.Changed("seed") {
		cfg.Paths.SeedCSV = f.seedCSV
	}
	if fs.Changed("pipelines") {
		cfg.Paths.Pipelines = f.pipelines
	}
	if fs.Changed("llm") {
		cfg.Paths.LLM = f.llm
	}
	if fs.Changed("behaviors") {
		cfg.Paths.Behaviors = f.behaviors
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid server config: %w", err)
	}
	return cfg, nil
}

// loadLLMConfig 读取 llm.yaml，支持 ${ENV} 形式的环境变量。
// 文件不存在时返回空配置 (所有解释都走未配置兜底)。
func loadLLMConfig(path string) (*LLMGlobalConfig, error) {
	cfg := &LLMGlobalConfig{LLMs: map[string]llm.Config{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("LLM config '%s' not found", path)
	} else if err != nil {
		return nil, err
	} else if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if cfg.LLMs == nil {
		cfg.LLMs = map[string]llm.Config{}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid llm config: %w", err)
	}
	return cfg, nil
}

// resolveLLM 返回 key 对应的凭证。
// 没有该项时按 Gemini 默认配置处理；Gemini 的 api_key 为空时读取 GEMINI_API_KEY。
func (c *LLMGlobalConfig) resolveLLM(key string) llm.Config {
	cred, ok := c.LLMs[key]
	if !ok {
		cred = llm.Config{Provider: "gemini"}
	}
	if cred.Provider == "gemini" && cred.APIKey == "" {
		cred.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	return cred
}
