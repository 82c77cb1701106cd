// Package config loads the pipeline configuration.
//
// Precedence: defaults, then the config file (YAML, or JSON when the file ends
// in .json), then environment variables. Credentials are usually supplied
// through the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredentials is returned by Validate when a required API key is absent.
var ErrMissingCredentials = errors.New("missing credentials")

// Config is the full application configuration.
type Config struct {
	Search SearchConfig `yaml:"search" json:"search"`
	LLM    LLMConfig    `yaml:"llm" json:"llm"`
	WeChat WeChatConfig `yaml:"wechat" json:"wechat"`
	Server ServerConfig `yaml:"server" json:"server"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// SearchConfig configures the web search provider.
type SearchConfig struct {
	Provider      string `yaml:"provider" json:"provider"`
	APIKey        string `yaml:"api_key" json:"api_key"`
	BaseURL       string `yaml:"base_url" json:"base_url,omitempty"`
	MaxResults    int    `yaml:"max_results" json:"max_results"`
	IncludeAnswer bool   `yaml:"include_answer" json:"include_answer"`
}

// LLMConfig configures the text generation provider shared by all agents.
type LLMConfig struct {
	Provider   string     `yaml:"provider" json:"provider"`
	Model      string     `yaml:"model" json:"model"`
	APIKey     string     `yaml:"api_key" json:"api_key"`
	BaseURL    string     `yaml:"base_url" json:"base_url,omitempty"`
	Researcher RoleConfig `yaml:"researcher" json:"researcher"`
	Writer     RoleConfig `yaml:"writer" json:"writer"`
	Critic     RoleConfig `yaml:"critic" json:"critic"`
}

// RoleConfig overrides model settings for one agent. An empty Model falls
// back to LLMConfig.Model.
type RoleConfig struct {
	Model       string  `yaml:"model" json:"model,omitempty"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
}

// WeChatConfig holds the official-account credentials used for publishing.
type WeChatConfig struct {
	AppID     string `yaml:"app_id" json:"app_id"`
	AppSecret string `yaml:"app_secret" json:"app_secret"`
	Author    string `yaml:"author" json:"author,omitempty"`
}

// Enabled reports whether publishing is configured.
func (w WeChatConfig) Enabled() bool {
	return w.AppID != "" && w.AppSecret != ""
}

type ServerConfig struct {
	Addr       string        `yaml:"addr" json:"addr"`
	RunTimeout time.Duration `yaml:"run_timeout" json:"run_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Search: SearchConfig{
			Provider:      "tavily",
			MaxResults:    5,
			IncludeAnswer: true,
		},
		LLM: LLMConfig{
			Provider:   "gemini",
			Model:      "gemini-2.5-flash",
			Researcher: RoleConfig{Temperature: 0.3},
			Writer:     RoleConfig{Temperature: 0.7},
			Critic:     RoleConfig{Temperature: 0.2},
		},
		Server: ServerConfig{
			Addr:       ":8080",
			RunTimeout: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (if non-empty) over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(data, &cfg)
		} else {
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// llmKeyEnv lists the environment variables consulted per LLM provider, in order.
var llmKeyEnv = map[string][]string{
	"gemini":    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	"openai":    {"OPENAI_API_KEY"},
	"deepseek":  {"DEEPSEEK_API_KEY"},
	"anthropic": {"ANTHROPIC_API_KEY"},
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("TAVILY_API_KEY"); v != "" && c.Search.APIKey == "" {
		c.Search.APIKey = v
	}
	if v := getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if c.LLM.APIKey == "" {
		for _, name := range llmKeyEnv[c.LLM.Provider] {
			if v := getenv(name); v != "" {
				c.LLM.APIKey = v
				break
			}
		}
	}
	if v := getenv("WECHAT_APP_ID"); v != "" {
		c.WeChat.AppID = v
	}
	if v := getenv("WECHAT_APP_SECRET"); v != "" {
		c.WeChat.AppSecret = v
	}
}

// Validate checks that a run can start: both the search and the generation
// credential must be present.
func (c Config) Validate() error {
	var missing []string
	if c.Search.APIKey == "" {
		missing = append(missing, "search.api_key (TAVILY_API_KEY)")
	}
	if c.LLM.APIKey == "" {
		hint := "llm.api_key"
		if envs := llmKeyEnv[c.LLM.Provider]; len(envs) > 0 {
			hint += " (" + envs[0] + ")"
		}
		missing = append(missing, hint)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if _, ok := llmKeyEnv[c.LLM.Provider]; !ok {
		return fmt.Errorf("llm provider %q not supported", c.LLM.Provider)
	}
	return nil
}

// ModelFor returns the model name for a role, falling back to the shared model.
func (l LLMConfig) ModelFor(role RoleConfig) string {
	if role.Model != "" {
		return role.Model
	}
	return l.Model
}
