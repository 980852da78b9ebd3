package narrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for narration client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is provided and the
	// OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyNotSet = errors.New("narrate: OPENAI_API_KEY environment variable is not set")
	// ErrNoContent is returned when the chat response contains no usable choice.
	ErrNoContent = errors.New("narrate: chat response contains no content")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("narrate: request failed")
)

// OpenAIClient is the HTTP implementation of the Narrator interface, backed
// by the OpenAI chat completions and speech endpoints.
type OpenAIClient struct {
	apiKey      string
	baseURL     string
	chatModel   string
	speechModel string
	voice       string
	httpClient  *http.Client
}

// ClientOption is a function that configures an OpenAIClient.
type ClientOption func(*OpenAIClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(oc *OpenAIClient) {
		oc.apiKey = key
	}
}

// WithBaseURL sets a custom base URL for the OpenAI API.
func WithBaseURL(url string) ClientOption {
	return func(oc *OpenAIClient) {
		oc.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(oc *OpenAIClient) {
		oc.httpClient = c
	}
}

// WithModels sets the chat model, speech model and speech voice. Empty
// arguments leave the corresponding default in place.
func WithModels(chatModel, speechModel, voice string) ClientOption {
	return func(oc *OpenAIClient) {
		if chatModel != "" {
			oc.chatModel = chatModel
		}
		if speechModel != "" {
			oc.speechModel = speechModel
		}
		if voice != "" {
			oc.voice = voice
		}
	}
}

// NewClient creates a new OpenAI narration client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable OPENAI_API_KEY.
func NewClient(opts ...ClientOption) (*OpenAIClient, error) {
	c := &OpenAIClient{
		baseURL:     "https://api.openai.com/v1",
		chatModel:   "gpt-4o",
		speechModel: "tts-1-hd",
		voice:       "nova",
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
	}

	// Apply options first to allow WithAPIKey to set the API key
	for _, opt := range opts {
		opt(c)
	}

	// If API key was not set via option, try environment variable
	if c.apiKey == "" {
		c.apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return c, nil
}

// Annotate sends the prompt and the data-URI frames to the chat model as a
// single user message and returns the commentary text.
func (c *OpenAIClient) Annotate(ctx context.Context, prompt string, imageURIs []string) (string, error) {
	content := make([]contentPart, 0, len(imageURIs)+1)
	content = append(content, contentPart{Type: "text", Text: prompt})
	for _, uri := range imageURIs {
		content = append(content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: uri}})
	}

	reqBody := chatRequest{
		Model:     c.chatModel,
		Messages:  []chatMessage{{Role: "user", Content: content}},
		MaxTokens: 512,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("narrate: marshal request: %w", err)
	}

	respBody, err := c.post(ctx, c.baseURL+"/chat/completions", bodyBytes)
	if err != nil {
		return "", err
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("narrate: unmarshal response: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrNoContent
	}

	return resp.Choices[0].Message.Content, nil
}

// Speak synthesizes text with the speech model and writes the binary
// response to outPath.
func (c *OpenAIClient) Speak(ctx context.Context, text string, outPath string) error {
	reqBody := speechRequest{
		Model: c.speechModel,
		Input: text,
		Voice: c.voice,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("narrate: marshal request: %w", err)
	}

	audio, err := c.post(ctx, c.baseURL+"/audio/speech", bodyBytes)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outPath, audio, 0644); err != nil {
		return fmt.Errorf("narrate: write %s: %w", outPath, err)
	}

	return nil
}

// post performs a single POST request and returns the raw response body.
func (c *OpenAIClient) post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("narrate: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("narrate: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("narrate: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
