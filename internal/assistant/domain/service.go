package domain

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type ChatRequest struct {
	// Caller identifies the requester for rate limiting purposes.
	Caller   string    `json:"-"`
	Model    string    `json:"model"`
	Messages []Message `json:"messages" binding:"required,min=1"`
}

type ChatResponse struct {
	Model   string `json:"model"`
	Reply   string `json:"reply"`
	Usage   Usage  `json:"usage"`
	Limited bool   `json:"-"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type Service interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

var (
	ErrNotConfigured   = errors.New("assistant_not_configured")
	ErrModelNotAllowed = errors.New("model_not_allowed")
	ErrEmptyMessages   = errors.New("empty_messages")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrRateLimited     = errors.New("rate_limited")
	ErrUpstream        = errors.New("assistant_upstream_error")
)
