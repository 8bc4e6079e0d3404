// File: internal/services/assistant_service.go
package services

import (
	"context"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	consultation "github.com/lexserve/go-lexserve/internal/services/consultation"
)

const assistantSystemPrompt = "You are a legal information assistant for an Indian legal services platform. " +
	"Answer general questions about Indian law in plain language. " +
	"Always remind the user that this is general information, not legal advice, " +
	"and that specific matters need a consultation with an advocate."

// AssistantConfig holds the chat-completion settings for the pre-consultation
// legal FAQ bot.
type AssistantConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float32
}

func (c *AssistantConfig) Validate() error {
	if c.APIKey == "" {
		return consultation.NewValidationError("config", "ASSISTANT_API_KEY is required")
	}
	if c.Model == "" {
		return consultation.NewValidationError("config", "ASSISTANT_MODEL is required")
	}
	if c.Timeout <= 0 {
		return consultation.NewValidationError("config", "assistant timeout must be positive")
	}
	return nil
}

func DefaultAssistantConfig() *AssistantConfig {
	return &AssistantConfig{
		Model:       "gpt-4o-mini",
		Timeout:     60 * time.Second,
		Temperature: 0.2,
	}
}

// AssistantService answers general legal questions before a user commits to
// a paid consultation. It is deliberately stateless: no conversation memory,
// one question in, one answer out.
type AssistantService struct {
	config *AssistantConfig
	client *openai.Client
	logger Logger
}

func NewAssistantService(config *AssistantConfig, logger Logger) (*AssistantService, error) {
	if config == nil {
		return nil, consultation.NewValidationError("constructor", "assistant config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	return &AssistantService{
		config: config,
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// Ask sends one question to the model and returns the answer text.
func (s *AssistantService) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", consultation.NewValidationError("ask", "question cannot be empty")
	}
	if len(question) > 4000 {
		return "", consultation.NewValidationError("ask", "question exceeds maximum length")
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: s.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: assistantSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Temperature: s.config.Temperature,
	})
	if err != nil {
		s.logger.Error("assistant completion failed", "error", err.Error())
		return "", &consultation.ConsultError{
			Type:      consultation.ErrTypeDelivery,
			Operation: "ask",
			Message:   "assistant is unavailable",
			Cause:     err,
		}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &consultation.ConsultError{
			Type:      consultation.ErrTypeDelivery,
			Operation: "ask",
			Message:   "assistant returned an empty answer",
		}
	}
	return resp.Choices[0].Message.Content, nil
}
