package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openaiChatModel  = openai.GPT4o
	openaiEmbedModel = openai.SmallEmbedding3
)

// OpenAIProvider wraps the OpenAI chat and embedding APIs.
type OpenAIProvider struct {
	keyName string
	client  *openai.Client
	hasKey  bool
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	apiKey := resolveOpenAIKey(keyName)
	return &OpenAIProvider{
		keyName: keyName,
		client:  openai.NewClient(apiKey),
		hasKey:  apiKey != "",
	}
}

func (o *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: openaiChatModel, Key: o.keyName}
	if !o.hasKey {
		return CompletionResponse{}, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}

	chatReq := openai.ChatCompletionRequest{
		Model: openaiChatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: 0.1,
	}
	if req.ForceJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return CompletionResponse{}, info, fmt.Errorf("openai completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, info, fmt.Errorf("openai returned empty choices")
	}
	return CompletionResponse{Text: resp.Choices[0].Message.Content}, info, nil
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: string(openaiEmbedModel), Key: o.keyName}
	if !o.hasKey {
		return nil, info, fmt.Errorf("openai key missing for alias %q", o.keyName)
	}

	embReq := openai.EmbeddingRequest{
		Input: req.Inputs,
		Model: openaiEmbedModel,
	}
	if req.Dimension > 0 {
		embReq.Dimensions = req.Dimension
	}

	resp, err := o.client.CreateEmbeddings(ctx, embReq)
	if err != nil {
		return nil, info, fmt.Errorf("openai embedding request failed: %w", err)
	}
	out := make([][]float32, 0, len(resp.Data))
	for _, d := range resp.Data {
		out = append(out, d.Embedding)
	}
	return out, info, nil
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("VERIFLOW_OPENAI_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
