package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"crm-segment-engine/internal/config"
)

// Translator is the external text-generation collaborator. Its output is
// untrusted text; parsing and validation happen on our side of the
// boundary.
type Translator interface {
	Translate(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

func NewGeminiClient(cfg config.Config) *GeminiClient {
	return &GeminiClient{
		baseURL: cfg.Translator.BaseURL,
		model:   cfg.Translator.Model,
		apiKey:  cfg.Translator.APIKey,
		http:    &http.Client{Timeout: cfg.TranslatorTimeout()},
	}
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (c *GeminiClient) Translate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("call translator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("translator returned %d: %s", resp.StatusCode, string(b))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("translator returned no candidates")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
