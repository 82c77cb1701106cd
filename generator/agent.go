package generator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Agent 负责撰写、修订和评审稿件：writer 与 critic 可使用不同的模型/温度。
type Agent struct {
	writer LLMClient
	critic LLMClient
	logger *zap.Logger
}

func NewAgent(writer, critic LLMClient, logger *zap.Logger) (*Agent, error) {
	if writer == nil || critic == nil {
		return nil, errors.New("writer and critic llm clients are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		writer: writer,
		critic: critic,
		logger: logger.With(zap.String("component", "generator")),
	}, nil
}

// GenerateDraft 根据研究笔记生成首稿。
func (a *Agent) GenerateDraft(ctx context.Context, topic, notes string) (string, error) {
	return a.draft(ctx, a.writer, BuildInitialPrompt(topic, notes))
}

// ReviseDraft 基于评审反馈修订稿件，输出完整新稿。
func (a *Agent) ReviseDraft(ctx context.Context, topic, priorDraft, feedback string) (string, error) {
	return a.draft(ctx, a.writer, BuildRevisionPrompt(topic, priorDraft, feedback))
}

// Judge 返回评审模型的原始输出，解析由 pipeline 负责。
func (a *Agent) Judge(ctx context.Context, topic, notes, draft string) (string, error) {
	return a.complete(ctx, a.critic, BuildCritiquePrompt(topic, notes, draft))
}

func (a *Agent) draft(ctx context.Context, llm LLMClient, prompt Prompt) (string, error) {
	raw, err := a.complete(ctx, llm, prompt)
	if err != nil {
		return "", err
	}
	d, err := PostProcess(raw)
	if err != nil {
		return "", err
	}
	return d.Markdown, nil
}

func (a *Agent) complete(ctx context.Context, llm LLMClient, prompt Prompt) (string, error) {
	start := time.Now()
	out, err := llm.Complete(ctx, prompt)
	if err != nil {
		a.logger.Error("llm call failed", zap.String("kind", string(prompt.Kind)), zap.Error(err))
		return "", err
	}
	a.logger.Debug("llm call completed",
		zap.String("kind", string(prompt.Kind)),
		zap.Int("chars", len(out)),
		zap.Duration("duration", time.Since(start)),
	)
	return out, nil
}
