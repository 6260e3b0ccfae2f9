// Package answer turns a question and retrieved context into prose.
package answer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a helpful assistant that answers questions based on provided document context. " +
	"Use only the provided information and be concise."

// NoResultAnswer is returned when retrieval found nothing relevant.
const NoResultAnswer = "I couldn't find relevant information in your documents to answer this question."

// Generator answers question using only context.
type Generator interface {
	Generate(ctx context.Context, question, contextText string) (string, error)
}

// Extractive answers by quoting the start of the context. It never fails.
type Extractive struct {
	MaxChars int
}

func (e Extractive) Generate(_ context.Context, _ string, contextText string) (string, error) {
	n := e.MaxChars
	if n <= 0 {
		n = 300
	}
	runes := []rune(contextText)
	if len(runes) > n {
		runes = runes[:n]
	}
	return "Based on the provided documents: " + string(runes) + "...", nil
}

// OpenAIConfig configures the chat completion generator.
type OpenAIConfig struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Temperature float32
}

// OpenAI generates answers with an OpenAI-compatible chat completion API.
type OpenAI struct {
	client      *openai.Client
	model       string
	temperature float32
}

// ErrMissingCredential is returned when the API key variable is unset.
var ErrMissingCredential = errors.New("missing API key")

func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w in env %s", ErrMissingCredential, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	clientCfg := openai.DefaultConfig(key)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

func (o *OpenAI) Generate(ctx context.Context, question, contextText string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: Prompt(question, contextText)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Prompt formats the user message sent to the model.
func Prompt(question, contextText string) string {
	return fmt.Sprintf(`Based on the context below, answer the question concisely. Use only the provided information.

Context:
%s

Question: %s

Answer:`, contextText, question)
}
