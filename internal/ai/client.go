package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/medfolio/backend/internal/search"
	"github.com/medfolio/backend/internal/storage/models"
	"github.com/medfolio/backend/pkg/circuitbreaker"
	"github.com/medfolio/backend/pkg/logger"
	"github.com/medfolio/backend/pkg/retry"
)

const maxContextDocuments = 20

// Client implements search.Generator on top of the OpenAI chat API, wrapped
// in a circuit breaker and retry so a flapping provider degrades into the
// engine's document fallback instead of cascading failures.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.NewCircuitBreaker("ai-generator", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    2,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       3 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	logger.Info("AI generator client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) Generate(ctx context.Context, query string, docs []models.DocumentRecord) (*search.GeneratedAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	systemPrompt := "You are a medical document assistant. Answer using only the provided documents. " +
		"Reference documents by their bracketed id, e.g. [doc-123]. If the documents do not contain " +
		"the answer, say so."
	userPrompt := fmt.Sprintf("Documents:\n%s\nQuestion: %s", formatDocumentContext(docs), query)

	var content string
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model: c.model,
					Messages: []openai.ChatCompletionMessage{
						{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
						{Role: openai.ChatMessageRoleUser, Content: userPrompt},
					},
					Temperature: c.temperature,
					MaxTokens:   c.maxTokens,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}
			if len(resp.Choices) == 0 {
				return fmt.Errorf("completion returned no choices")
			}

			logger.Debug("Answer generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return &search.GeneratedAnswer{
		Text:             content,
		CitedDocumentIDs: citedIDs(content, docs),
	}, nil
}

func formatDocumentContext(docs []models.DocumentRecord) string {
	if len(docs) == 0 {
		return "(no matching documents)\n"
	}

	var builder strings.Builder
	for i, doc := range docs {
		if i >= maxContextDocuments {
			break
		}
		builder.WriteString(fmt.Sprintf("[%s] %s (%s, %s)\n",
			doc.ID,
			doc.DisplayName,
			doc.Category,
			doc.UploadDate.Format("2006-01-02"),
		))
		if doc.Analysis.SearchSummary != "" {
			builder.WriteString(doc.Analysis.SearchSummary)
			builder.WriteString("\n")
		}
	}
	return builder.String()
}

func citedIDs(text string, docs []models.DocumentRecord) []string {
	cited := make([]string, 0)
	for _, doc := range docs {
		if strings.Contains(text, doc.ID) {
			cited = append(cited, doc.ID)
		}
	}
	return cited
}
