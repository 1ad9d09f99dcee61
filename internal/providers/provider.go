package providers

import "context"

// Provider is a chat-completion backend.
type Provider interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type ChatRequest struct {
	Model        string
	Messages     []Message
	MaxTokens    int
	Temperature  float64
	SystemPrompt string
}

type ChatResponse struct {
	Content    string
	Usage      Usage
	StopReason string
}

// ContentPart represents a part of a multimodal message.
type ContentPart struct {
	Type     string // "text" or "image_url"
	Text     string
	ImageURL *ImageURL
}

// ImageURL is either a remote URL or a data URL (data:<mime>;base64,<payload>).
type ImageURL struct {
	URL    string
	Detail string // "auto", "low", "high"
}

type Message struct {
	Role         string // "system", "user", "assistant"
	Content      string
	ContentParts []ContentPart
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
