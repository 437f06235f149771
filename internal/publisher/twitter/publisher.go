package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"personashield/internal/config"
	"personashield/internal/port"
)

const apiURL = "https://api.twitter.com/2/tweets"

// Publisher implements port.PostPublisher using the X (Twitter) v2 tweets API
// with a user-context bearer token.
type Publisher struct {
	accessToken string
	endpoint    string
	client      *http.Client
}

// NewPublisher creates a tweets API publisher from the publisher config.
func NewPublisher(cfg *config.PublisherConfig) port.PostPublisher {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Publisher{
		accessToken: cfg.AccessToken,
		endpoint:    endpoint,
		client:      &http.Client{Timeout: timeout},
	}
}

type createTweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

func (p *Publisher) Publish(ctx context.Context, text string) (string, error) {
	bodyBytes, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling tweets API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		log.Printf("twitter.Publisher.Publish: post failed: %d %s", resp.StatusCode, string(respBody))
		return "", fmt.Errorf("tweets API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out createTweetResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	log.Printf("twitter.Publisher.Publish: posted tweet %s", out.Data.ID)
	return out.Data.ID, nil
}
