package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const geminiModel = "gemini-1.5-pro"

// GeminiProvider calls the Google Generative Language REST API. It only
// supports completions; embedding requests belong to other providers.
type GeminiProvider struct {
	keyName string
	apiKey  string
	client  *http.Client
}

func NewGeminiProvider(keyName string) *GeminiProvider {
	return &GeminiProvider{
		keyName: keyName,
		apiKey:  resolveGeminiKey(keyName),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *GeminiProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "gemini", Model: geminiModel, Key: g.keyName}
	if g.apiKey == "" {
		return CompletionResponse{}, info, fmt.Errorf("gemini key missing for alias %q", g.keyName)
	}

	genCfg := map[string]any{"temperature": 0.1}
	if req.ForceJSON {
		genCfg["responseMimeType"] = "application/json"
	}
	payload, _ := json.Marshal(map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{{"text": req.System}},
		},
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": req.User}}},
		},
		"generationConfig": genCfg,
	})

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s", geminiModel, g.apiKey)
	httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return CompletionResponse{}, info, fmt.Errorf("gemini completion request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return CompletionResponse{}, info, fmt.Errorf("gemini completion error %d: %s", resp.StatusCode, string(body))
	}

	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return CompletionResponse{}, info, fmt.Errorf("decode gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return CompletionResponse{}, info, fmt.Errorf("gemini returned empty candidates")
	}
	return CompletionResponse{Text: parsed.Candidates[0].Content.Parts[0].Text}, info, nil
}

func resolveGeminiKey(alias string) string {
	if alias != "" {
		k := os.Getenv("VERIFLOW_GEMINI_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("GEMINI_API_KEY")
}
