package prompt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"styleframe/internal/domain"
)

const (
	openAIDefaultTimeout = 15 * time.Second
	defaultOpenAIModel   = "gpt-4o-mini"

	// Downstream providers choke on multi-line or very long prompts, so the
	// model output is clamped hard regardless of what comes back.
	maxPromptChars = 160

	systemInstruction = "You write art-direction prompts for restyling a live camera frame. " +
		"Respond with exactly one line of at most 15 words describing a recognizable but stylized scene. " +
		"No quotes, no lists, no explanations."
)

// OpenAIOptions configures the generative prompt source.
type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAISource asks a chat-completion model for a one-line transformation
// prompt.
type OpenAISource struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAISource(opts OpenAIOptions) (*OpenAISource, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("prompt: openai: %w", domain.ErrMissingCredential)
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAISource{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

// GeneratePrompt issues a single completion call. Failures surface as-is; the
// caller owns any fallback decision.
func (o *OpenAISource) GeneratePrompt(ctx context.Context, styleHint string) (*domain.Prompt, error) {
	user := "Describe the restyled scene."
	if hint := strings.TrimSpace(styleHint); hint != "" {
		user = fmt.Sprintf("Describe the restyled scene. Lean into this style: %s.", hint)
	}
	payload := openAIChatRequest{
		Model:       o.model,
		Temperature: 0.9,
		MaxTokens:   60,
		Messages: []openAIMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: user},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("prompt: openai: encode request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("prompt: openai: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("prompt: openai: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, &domain.UpstreamError{Provider: "openai", Status: resp.StatusCode, Detail: strings.TrimSpace(string(raw))}
	}
	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &domain.UpstreamError{Provider: "openai", Detail: "malformed response body"}
	}
	if len(out.Choices) == 0 {
		return nil, &domain.UpstreamError{Provider: "openai", Detail: "no choices returned"}
	}
	text := sanitizePromptText(out.Choices[0].Message.Content)
	if text == "" {
		return nil, &domain.UpstreamError{Provider: "openai", Detail: "empty completion"}
	}
	return &domain.Prompt{Text: text, Method: domain.PromptMethodGenerated}, nil
}

var _ Source = (*OpenAISource)(nil)

// sanitizePromptText collapses the completion to a single bounded line.
// Truncation counts runes so a multi-byte character is never split.
func sanitizePromptText(raw string) string {
	text := strings.Join(strings.Fields(raw), " ")
	text = strings.Trim(text, `"'`)
	if utf8.RuneCountInString(text) > maxPromptChars {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxPromptChars]))
	}
	return text
}
