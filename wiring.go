package main

import (
	"fmt"

	"go.uber.org/zap"

	"agentic_research_writer/config"
	"agentic_research_writer/generator"
	"agentic_research_writer/pipeline"
	"agentic_research_writer/research"
)

// buildOrchestrator 按配置组装研究、写作、评审三个角色。offline 时全部使用 Mock。
func buildOrchestrator(cfg config.Config, offline bool, logger *zap.Logger, rec pipeline.Recorder) (*pipeline.Orchestrator, error) {
	var provider research.Provider
	var researcher, writer, critic generator.LLMClient
	if offline {
		provider = research.MockProvider{}
		researcher, writer, critic = generator.MockLLM{}, generator.MockLLM{}, generator.MockLLM{}
	} else {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		var err error
		if provider, err = searchProvider(cfg.Search); err != nil {
			return nil, err
		}
		if researcher, err = roleLLM(cfg.LLM, cfg.LLM.Researcher); err != nil {
			return nil, err
		}
		if writer, err = roleLLM(cfg.LLM, cfg.LLM.Writer); err != nil {
			return nil, err
		}
		if critic, err = roleLLM(cfg.LLM, cfg.LLM.Critic); err != nil {
			return nil, err
		}
	}

	synth, err := research.NewSynthesizer(provider, researcher, cfg.Search.MaxResults, logger)
	if err != nil {
		return nil, err
	}
	agent, err := generator.NewAgent(writer, critic, logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(synth, agent, agent, pipeline.WithLogger(logger), pipeline.WithRecorder(rec))
}

func searchProvider(cfg config.SearchConfig) (research.Provider, error) {
	switch cfg.Provider {
	case "", "tavily":
		return research.NewTavily(research.TavilyOptions{
			APIKey:        cfg.APIKey,
			BaseURL:       cfg.BaseURL,
			IncludeAnswer: cfg.IncludeAnswer,
		})
	case "mock":
		return research.MockProvider{}, nil
	default:
		return nil, fmt.Errorf("search provider %s not supported", cfg.Provider)
	}
}

func roleLLM(cfg config.LLMConfig, role config.RoleConfig) (generator.LLMClient, error) {
	return generator.NewLLM(generator.LLMSettings{
		Provider:    cfg.Provider,
		Model:       cfg.ModelFor(role),
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Temperature: role.Temperature,
	})
}
