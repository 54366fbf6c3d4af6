package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	defaultOpenAIURL   = "https://api.openai.com/v1"
)

// OpenAI asks the Chat Completions API for a JSON verdict.
type OpenAI struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        echocommand.Logger

	Retry RetryConfig
}

// NewOpenAIWithURL builds a client for baseURL. Empty values fall back to the
// public endpoint, DefaultOpenAIModel and a 30s timeout.
func NewOpenAIWithURL(apiKey, model, baseURL string, timeout time.Duration) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAI{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.GetLogger(),
		Retry:      DefaultRetryConfig(),
	}
}

// Model is the chat model verdicts are requested from.
func (c *OpenAI) Model() string { return c.model }

// WithLogger swaps the logger used for malformed-response warnings.
func (c *OpenAI) WithLogger(log echocommand.Logger) *OpenAI {
	c.log = log
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []chatMessage  `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAI) Evaluate(ctx context.Context, expected, actual string) (bool, error) {
	system, user, err := renderPrompt(expected, actual)
	if err != nil {
		return false, err
	}

	bodyBytes, err := json.Marshal(chatRequest{
		Model:          c.model,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return false, fmt.Errorf("marshaling request: %w", err)
	}

	var raw []byte
	retryErr := WithRetry(ctx, c.Retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retryable(fmt.Errorf("sending request: %w", err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retryable(fmt.Errorf("reading response: %w", err))
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(respBody))
			if IsRetryableHTTPStatus(resp.StatusCode) {
				return retryable(apiErr)
			}
			return apiErr
		}

		raw = respBody
		return nil
	})

	if retryErr != nil {
		return false, fmt.Errorf("%w: %v", echocommand.ErrServiceUnavailable, retryErr)
	}

	var result chatResponse
	if err := json.Unmarshal(raw, &result); err != nil || len(result.Choices) == 0 {
		c.log.Warnf("OpenAI returned an unusable response body: '%s'", truncate(string(raw), 200))
		return false, nil
	}

	content := result.Choices[0].Message.Content
	match, ok := parseVerdict(content)
	if !ok {
		c.log.Warnf("OpenAI did not return a valid verdict. Content received: '%s'", truncate(content, 200))
		return false, nil
	}
	return match, nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
