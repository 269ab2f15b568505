package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/openai/openai-go/v3/shared/constant"

	"theagentvikram/resumatch/internal/models"
)

// OpenRouterService talks to any OpenAI-compatible endpoint, OpenRouter by default.
type OpenRouterService interface {
	LLMClient
	Embedder
}

type openRouterService struct {
	client     *openai.Client
	model      string
	embedModel string
}

func NewOpenRouterService(apiKey, baseURL, model, embedModel string) OpenRouterService {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHeader("HTTP-Referer", "https://github.com/theagentvikram/ResuMatch"),
		option.WithHeader("X-Title", "ResuMatch"),
		option.WithMaxRetries(0),
	)

	return &openRouterService{
		client:     &client,
		model:      model,
		embedModel: embedModel,
	}
}

func (o *openRouterService) Provider() string { return "openrouter" }

func (o *openRouterService) Model() string { return o.model }

// Complete implements LLMClient.
func (o *openRouterService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:    messages,
		Model:       shared.ChatModel(o.model),
		Temperature: openai.Float(float64(req.Temperature)),
		TopP:        openai.Float(0.95),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{
				Type: constant.JSONObject("json_object"),
			},
		}
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openrouter api error: %w", describeAPIError(err))
	}

	if len(completion.Choices) == 0 {
		return "", errors.New("no response from openrouter")
	}

	return completion.Choices[0].Message.Content, nil
}

// CheckModel implements LLMClient by looking the model up in the provider's catalog.
func (o *openRouterService) CheckModel(ctx context.Context) error {
	iter := o.client.Models.ListAutoPaging(ctx)
	for iter.Next() {
		if iter.Current().ID == o.model {
			return nil
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("openrouter model check failed: %w", describeAPIError(err))
	}
	return fmt.Errorf("%s: %w", o.model, ErrModelNotFound)
}

// GenerateEmbedding implements Embedder.
func (o *openRouterService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{truncateRunes(text, 30000)},
		},
		Model:      openai.EmbeddingModel(o.embedModel),
		Dimensions: openai.Int(models.EmbeddingDimensions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", describeAPIError(err))
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding data returned")
	}

	embedding64 := resp.Data[0].Embedding
	embedding32 := make([]float32, len(embedding64))
	for i, v := range embedding64 {
		embedding32[i] = float32(v)
	}

	return embedding32, nil
}

// describeAPIError turns provider status codes into the messages users see.
func describeAPIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.StatusCode {
	case 401:
		return fmt.Errorf("authentication failed, check OPENROUTER_API_KEY: %w", err)
	case 403:
		return fmt.Errorf("permission denied, the API key may not have access to the requested model: %w", err)
	case 429:
		return fmt.Errorf("rate limit exceeded, try again later: %w", err)
	case 503:
		return fmt.Errorf("service is currently unavailable: %w", err)
	default:
		return err
	}
}
