// Package narrate provides an OpenAI-backed narrator that turns sampled
// video frames into commentary text and synthesized speech.
package narrate

import "context"

// Narrator produces commentary for a set of video frames and renders it
// as speech.
type Narrator interface {
	// Annotate sends the prompt and the base64 data-URI frames to the chat
	// model and returns the commentary text.
	Annotate(ctx context.Context, prompt string, imageURIs []string) (string, error)

	// Speak synthesizes text into an audio file written to outPath.
	Speak(ctx context.Context, text string, outPath string) error
}

// chatRequest represents the request body for the chat completions endpoint.
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

// chatMessage is a single message in a chat completion request.
type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

// contentPart is one element of a multimodal message, either text or an
// image reference.
type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

// imageURL wraps an image reference. Data URIs are accepted directly.
type imageURL struct {
	URL string `json:"url"`
}

// chatResponse represents the response from the chat completions endpoint.
type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// chatChoice is one completion choice in a chat response.
type chatChoice struct {
	Message assistantMessage `json:"message"`
}

// assistantMessage is the message field of a completion choice.
type assistantMessage struct {
	Content string `json:"content"`
}

// speechRequest represents the request body for the speech endpoint.
// The response body is the encoded audio itself.
type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}
