package generator

import (
	"context"
	"fmt"
)

// LLMClient 抽象大模型客户端，便于替换/Mock。
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings 提供给具体实现的基础配置。
type LLMSettings struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
}

// NewLLM 按 provider 构建客户端。
func NewLLM(cfg LLMSettings) (LLMClient, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGeminiLLM(context.Background(), &cfg)
	case "openai":
		return NewOpenAILLMFromConfig(&cfg)
	case "deepseek":
		// DeepSeek 提供 OpenAI 兼容接口，需填写 base_url。
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return NewOpenAILLMFromConfig(&cfg)
	case "anthropic":
		return NewAnthropicLLM(&cfg)
	case "":
		return nil, fmt.Errorf("llm provider missing; please set llm.provider")
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.Provider)
	}
}
