package gateway

// Message is one entry in the OpenAI-compatible messages array.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat forces JSON-only output when Type is "json_object".
type ResponseFormat struct {
	Type string `json:"type"`
}

// Request is the body sent to POST {base}/v1/chat/completions.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Stream         bool            `json:"stream"`
	Temperature    *float64        `json:"temperature,omitempty"`
	TopP           *float64        `json:"top_p,omitempty"`
	Stop           []string        `json:"stop,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Usage is the token accounting block on a non-streaming response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// NonStreamChoice mirrors the non-streaming completion shape used by the
// usage probe (max_tokens=1, stream=false).
type NonStreamChoice struct {
	Message Message `json:"message"`
}

// NonStreamResponse is decoded when Request.Stream is false.
type NonStreamResponse struct {
	Choices []NonStreamChoice `json:"choices"`
	Usage   Usage              `json:"usage"`
}
