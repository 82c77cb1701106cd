package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"TAVILY_API_KEY", "GOOGLE_API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY",
		"DEEPSEEK_API_KEY", "ANTHROPIC_API_KEY", "LLM_PROVIDER", "LLM_MODEL",
		"WECHAT_APP_ID", "WECHAT_APP_SECRET",
	} {
		t.Setenv(name, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "tavily", cfg.Search.Provider)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 0.7, cfg.LLM.Writer.Temperature)
	assert.Equal(t, 0.2, cfg.LLM.Critic.Temperature)
	assert.False(t, cfg.WeChat.Enabled())
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
search:
  api_key: tv-key
  max_results: 3
llm:
  provider: openai
  model: gpt-4o-mini
  api_key: sk-test
  writer:
    model: gpt-4o
    temperature: 0.9
server:
  addr: ":9090"
  run_timeout: 90s
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tv-key", cfg.Search.APIKey)
	assert.Equal(t, 3, cfg.Search.MaxResults)
	assert.True(t, cfg.Search.IncludeAnswer, "unset fields keep defaults")
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.ModelFor(cfg.LLM.Writer))
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ModelFor(cfg.LLM.Critic))
	assert.Equal(t, 90*time.Second, cfg.Server.RunTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "wechat": {"app_id": "wx1", "app_secret": "s"},
  "llm": {"provider": "deepseek", "model": "deepseek-chat", "base_url": "https://api.deepseek.com"}
}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.WeChat.Enabled())
	assert.Equal(t, "deepseek", cfg.LLM.Provider)
	assert.Equal(t, "https://api.deepseek.com", cfg.LLM.BaseURL)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TAVILY_API_KEY", "tv-env")
	t.Setenv("GOOGLE_API_KEY", "g-env")
	t.Setenv("WECHAT_APP_ID", "wx-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "tv-env", cfg.Search.APIKey)
	assert.Equal(t, "g-env", cfg.LLM.APIKey)
	assert.Equal(t, "wx-env", cfg.WeChat.AppID)
	assert.NoError(t, cfg.Validate())
}

func TestEnvProviderSwitchPicksMatchingKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("GOOGLE_API_KEY", "g-env")
	t.Setenv("ANTHROPIC_API_KEY", "a-env")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "a-env", cfg.LLM.APIKey)
}

func TestValidateMissingCredentials(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Contains(t, err.Error(), "TAVILY_API_KEY")
	assert.Contains(t, err.Error(), "GOOGLE_API_KEY")

	cfg.Search.APIKey = "tv"
	err = cfg.Validate()
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.NotContains(t, err.Error(), "TAVILY_API_KEY")

	cfg.LLM.APIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.LLM.Provider = "llama"
	assert.Error(t, cfg.Validate())
}
