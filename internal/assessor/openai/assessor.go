package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"personashield/internal/assessor"
	"personashield/internal/config"
	"personashield/internal/domain"
	"personashield/internal/port"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"

	defaultDeployment = "gpt-4o"
	defaultAPIVersion = "2024-12-01-preview"
)

func init() {
	factory := func(cfg *config.AssessorConfig) (port.RiskAssessor, error) {
		a, err := NewAssessor(cfg)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
	assessor.RegisterProvider(ProviderOpenAI, factory)
	assessor.RegisterProvider(ProviderAzure, factory)
}

// Assessor implements port.RiskAssessor using an OpenAI-compatible or Azure
// OpenAI chat completions API.
type Assessor struct {
	apiKey      string
	model       string
	endpoint    string
	azure       bool
	temperature float64
	maxTokens   int
	client      *http.Client
}

// NewAssessor creates an assessor from the assessor config.
func NewAssessor(cfg *config.AssessorConfig) (*Assessor, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("assessor endpoint is not configured")
	}
	model := cfg.Deployment
	if model == "" {
		model = defaultDeployment
	}
	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	var endpoint string
	switch cfg.Provider {
	case ProviderAzure:
		endpoint = fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			cfg.Endpoint, url.PathEscape(model), url.QueryEscape(apiVersion))
	case ProviderOpenAI, "":
		endpoint = cfg.Endpoint + "/chat/completions"
	default:
		return nil, fmt.Errorf("unknown assessor provider: %s", cfg.Provider)
	}

	return &Assessor{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		azure:       cfg.Provider == ProviderAzure,
		temperature: cfg.Temperature,
		maxTokens:   maxTokens,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (a *Assessor) Assess(ctx context.Context, input port.AssessInput) (*domain.Assessment, error) {
	prompt := assessor.BuildRiskPrompt(input.Text, input.Image != nil)

	contentBlocks := []map[string]interface{}{
		{"type": "text", "text": prompt},
	}
	if input.Image != nil {
		encoded := base64.StdEncoding.EncodeToString(input.Image.Bytes)
		contentBlocks = append(contentBlocks, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": fmt.Sprintf("data:%s;base64,%s", input.Image.ContentType, encoded),
			},
		})
	}

	reqBody := map[string]interface{}{
		"model":       a.model,
		"temperature": a.temperature,
		"max_tokens":  a.maxTokens,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.azure {
		req.Header.Set("api-key", a.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling chat completions API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	log.Printf("openai.Assessor.Assess: status %d in %s", resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("chat completions API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 500))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := assessor.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, assessor.NewRateLimitError("openai", baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, a.model)
}

// apiResponse models the Chat Completions API response.
type apiResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*domain.Assessment, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	log.Printf("openai.Assessor.Assess: tokens prompt=%d completion=%d total=%d",
		resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)

	text := resp.Choices[0].Message.Content
	verdict, details := assessor.ParseVerdict(text)
	if resp.Model != "" {
		model = resp.Model
	}

	return &domain.Assessment{
		Verdict: verdict,
		Details: details,
		Raw:     text,
		Model:   model,
	}, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
