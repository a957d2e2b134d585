package service

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/smallbiznis/praxis/internal/assistant/domain"
	"github.com/smallbiznis/praxis/internal/config"
	"github.com/smallbiznis/praxis/internal/observability/metrics"
	"github.com/smallbiznis/praxis/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const systemPrompt = "You are a billing assistant for a professional services firm. " +
	"You help staff understand WIP balances, write-offs, realization and invoice status. " +
	"Answer concisely and never invent figures that were not provided in the conversation."

const (
	chatRatePerSecond = 0.5
	chatBurst         = 5
)

type Params struct {
	fx.In

	Cfg     config.Config
	Billing *config.BillingConfigHolder
	Log     *zap.Logger
	Limiter *ratelimit.TokenBucket `optional:"true"`
	Metrics *metrics.BillingMetrics
}

type Service struct {
	client  *openai.Client
	billing *config.BillingConfigHolder
	log     *zap.Logger
	limiter *ratelimit.TokenBucket
	metrics *metrics.BillingMetrics
}

func New(p Params) domain.Service {
	var client *openai.Client
	if p.Cfg.OpenAIAPIKey != "" {
		clientCfg := openai.DefaultConfig(p.Cfg.OpenAIAPIKey)
		if p.Cfg.OpenAIBaseURL != "" {
			clientCfg.BaseURL = p.Cfg.OpenAIBaseURL
		}
		client = openai.NewClientWithConfig(clientCfg)
	}

	return &Service{
		client:  client,
		billing: p.Billing,
		log:     p.Log.Named("assistant.service"),
		limiter: p.Limiter,
		metrics: p.Metrics,
	}
}

func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	if s.client == nil {
		return domain.ChatResponse{}, domain.ErrNotConfigured
	}

	model, err := s.resolveModel(req.Model)
	if err != nil {
		s.metrics.RecordAssistantRequest(req.Model, "rejected")
		return domain.ChatResponse{}, err
	}

	messages, err := buildMessages(req.Messages)
	if err != nil {
		s.metrics.RecordAssistantRequest(model, "rejected")
		return domain.ChatResponse{}, err
	}

	if err := s.checkRateLimit(ctx, req.Caller); err != nil {
		s.metrics.RecordAssistantRequest(model, "rate_limited")
		return domain.ChatResponse{}, err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		s.log.Warn("chat completion failed", zap.String("model", model), zap.Error(err))
		s.metrics.RecordAssistantRequest(model, "error")
		return domain.ChatResponse{}, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	if len(resp.Choices) == 0 {
		s.metrics.RecordAssistantRequest(model, "error")
		return domain.ChatResponse{}, fmt.Errorf("%w: empty completion", domain.ErrUpstream)
	}

	s.metrics.RecordAssistantRequest(model, "ok")

	return domain.ChatResponse{
		Model: model,
		Reply: resp.Choices[0].Message.Content,
		Usage: domain.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// resolveModel applies the allow-list from the billing policy. An empty
// request model falls back to the first allowed model.
func (s *Service) resolveModel(requested string) (string, error) {
	allowed := s.billing.Current().AssistantModels
	if len(allowed) == 0 {
		return "", domain.ErrNotConfigured
	}

	model := strings.TrimSpace(requested)
	if model == "" {
		return allowed[0], nil
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, model) {
			return candidate, nil
		}
	}
	return "", domain.ErrModelNotAllowed
}

// checkRateLimit fails open when no limiter is configured.
func (s *Service) checkRateLimit(ctx context.Context, caller string) error {
	if s.limiter == nil {
		return nil
	}
	if caller == "" {
		caller = "anonymous"
	}

	key := "praxis:assistant:" + caller
	result, err := s.limiter.Allow(ctx, key, chatRatePerSecond, chatBurst)
	if err != nil {
		// Redis trouble should not take the assistant down.
		s.log.Warn("rate limit check failed, allowing request", zap.Error(err))
		s.metrics.RecordRateLimit("assistant", true)
		return nil
	}

	s.metrics.RecordRateLimit("assistant", result.Allowed)
	if !result.Allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func buildMessages(input []domain.Message) ([]openai.ChatCompletionMessage, error) {
	if len(input) == 0 {
		return nil, domain.ErrEmptyMessages
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(input)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt,
	})

	for _, msg := range input {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			return nil, domain.ErrEmptyMessages
		}
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: content,
			})
		case domain.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: content,
			})
		default:
			// Callers cannot override the system prompt.
			return nil, domain.ErrInvalidRole
		}
	}

	return messages, nil
}
