package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the contract this system needs from the image vendor: a
// prompt plus an art-style tag in, a retrievable image reference out.
// Errors must be classifiable as retryable or not; see IsRetryable.
type Client interface {
	Generate(ctx context.Context, prompt, style string) (string, error)
}

// VendorError is a non-2xx response from the generation service. 4xx is
// permanent (a malformed or unauthorized request will not get better),
// 5xx is transient.
type VendorError struct {
	Status int
	Body   string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("image vendor: status %d: %s", e.Status, e.Body)
}

func (e *VendorError) Retryable() bool {
	return e.Status >= 500
}

// IsRetryable classifies a generation failure. Timeouts and transport
// errors are worth retrying; vendor 4xx rejections are not.
func IsRetryable(err error) bool {
	var ve *VendorError
	if errors.As(err, &ve) {
		return ve.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Deadline, connection reset, DNS, etc.
	return true
}

const maxPromptLen = 500

type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
}

type generateResponse struct {
	ImageURL string `json:"image_url"`
}

func (c *HTTPClient) Generate(ctx context.Context, prompt, style string) (string, error) {
	if len(prompt) > maxPromptLen {
		prompt = prompt[:maxPromptLen]
	}
	body, err := json.Marshal(generateRequest{Prompt: prompt, Style: style})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generations", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &VendorError{Status: resp.StatusCode, Body: string(snippet)}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	if out.ImageURL == "" {
		return "", errors.New("generate response missing image_url")
	}
	return out.ImageURL, nil
}
