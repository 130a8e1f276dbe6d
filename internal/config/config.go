package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

const envPrefix = "DOMPEASSIST"

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `mapstructure:"basic_config"`
	Providers   map[string]ProviderConfig `mapstructure:"providers"`
	Assistant   AssistantConfig           `mapstructure:"assistant"`
	Search      SearchConfig              `mapstructure:"search"`
	Redis       RedisConfig               `mapstructure:"redis"`
}

type ProviderConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api_key"`
	APIVersion string `mapstructure:"api_version"`
	ByAzure    bool   `mapstructure:"by_azure"`
}

type BasicConfig struct {
	ServerAddress      string   `mapstructure:"server_address"`
	Production         bool     `mapstructure:"production"`
	StaticDir          string   `mapstructure:"static_dir"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	Debug              bool     `mapstructure:"debug"`
}

type AssistantConfig struct {
	Provider             string `mapstructure:"provider"`
	KnowledgeDir         string `mapstructure:"knowledge_dir"`
	ClarificationEnabled bool   `mapstructure:"clarification_enabled"`
	FinalMaxTokens       int    `mapstructure:"final_max_tokens"`
	CallTimeoutSeconds   int    `mapstructure:"call_timeout_seconds"`
}

type SearchConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	CompanyName     string `mapstructure:"company_name"`
	OfficialSiteURL string `mapstructure:"official_site_url"`
	ResultLimit     int    `mapstructure:"result_limit"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CallTimeout is the bound applied to each completion call.
func (c AssistantConfig) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// Timeout is the bound applied to the outbound search request.
func (c SearchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Provider returns the settings of the provider the assistant is configured to use.
func (c *Config) Provider() (string, ProviderConfig, error) {
	name := strings.ToLower(strings.TrimSpace(c.Assistant.Provider))
	prov, ok := c.Providers[name]
	if !ok {
		return "", ProviderConfig{}, fmt.Errorf("provider %s not configured", name)
	}
	return name, prov, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("basic_config.server_address", ":5001")
	v.SetDefault("basic_config.production", false)
	v.SetDefault("basic_config.static_dir", "./frontend/build")
	v.SetDefault("basic_config.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("basic_config.rate_limit_per_minute", 0)
	v.SetDefault("basic_config.debug", false)

	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-3.5-turbo")
	v.SetDefault("providers.openai.api_key", "")
	v.SetDefault("providers.openai.api_version", "2023-05-15")
	v.SetDefault("providers.openai.by_azure", false)

	v.SetDefault("assistant.provider", "openai")
	v.SetDefault("assistant.knowledge_dir", "./knowledge_base")
	v.SetDefault("assistant.clarification_enabled", true)
	v.SetDefault("assistant.final_max_tokens", 1000)
	v.SetDefault("assistant.call_timeout_seconds", 30)

	v.SetDefault("search.endpoint", "https://duckduckgo.com/html/")
	v.SetDefault("search.company_name", "Dompé Pharmaceuticals")
	v.SetDefault("search.official_site_url", "https://www.dompe.com/en")
	v.SetDefault("search.result_limit", 4)
	v.SetDefault("search.timeout_seconds", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
}

// Load reads configuration from the provided path. An empty path looks for an
// optional config.json in the working directory; everything can also come from
// DOMPEASSIST_* environment variables (and a .env file).
func Load(path string) (*Config, error) {
	_ = gotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		v.SetConfigFile(absPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", absPath, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyLegacyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.BasicConfig.StaticDir != "" && !filepath.IsAbs(cfg.BasicConfig.StaticDir) && v.ConfigFileUsed() != "" {
		cfg.BasicConfig.StaticDir = filepath.Join(filepath.Dir(v.ConfigFileUsed()), cfg.BasicConfig.StaticDir)
	}
	if cfg.Assistant.KnowledgeDir != "" && !filepath.IsAbs(cfg.Assistant.KnowledgeDir) && v.ConfigFileUsed() != "" {
		cfg.Assistant.KnowledgeDir = filepath.Join(filepath.Dir(v.ConfigFileUsed()), cfg.Assistant.KnowledgeDir)
	}
	return &cfg, nil
}

// applyLegacyEnv honours the variable names used by the previous deployment.
func applyLegacyEnv(cfg *Config) {
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	openai := cfg.Providers["openai"]
	if openai.APIKey == "" {
		openai.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if endpoint := os.Getenv("OPENAI_ENDPOINT"); endpoint != "" {
		openai.BaseURL = endpoint
	}
	if version := os.Getenv("OPENAI_API_VERSION"); version != "" {
		openai.APIVersion = version
	}
	if deployment := os.Getenv("OPENAI_DEPLOYMENT_NAME"); deployment != "" {
		openai.Model = deployment
	}
	if strings.Contains(strings.ToLower(openai.BaseURL), "azure") {
		openai.ByAzure = true
	}
	cfg.Providers["openai"] = openai

	if port := os.Getenv("PORT"); port != "" {
		cfg.BasicConfig.ServerAddress = ":" + port
	}
	if strings.EqualFold(os.Getenv("NODE_ENV"), "production") {
		cfg.BasicConfig.Production = true
	}
	if strings.EqualFold(os.Getenv("DEBUG"), "true") {
		cfg.BasicConfig.Debug = true
	}
}

func (c *Config) validate() error {
	if c.BasicConfig.ServerAddress == "" {
		return errors.New("server_address must be configured")
	}
	if _, _, err := c.Provider(); err != nil {
		return err
	}
	if c.Search.ResultLimit <= 0 {
		return errors.New("search.result_limit must be positive")
	}
	if c.Search.TimeoutSeconds <= 0 || c.Assistant.CallTimeoutSeconds <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.Assistant.FinalMaxTokens <= 0 {
		return errors.New("assistant.final_max_tokens must be positive")
	}
	return nil
}
