package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/config"
	"github.com/healthdash/backend/pkg/httputil"
	"github.com/healthdash/backend/pkg/logger"
)

// SystemPrompt frames every chat as a health assistant conversation
const SystemPrompt = "You are a helpful health and medical assistant. Focus on providing accurate information about diseases, treatments, and general health advice. When appropriate, suggest search terms for further research and recommend reliable sources like .gov, .edu, or respected medical journals. Never provide definitive medical diagnosis or treatment plans, always encourage consulting with healthcare professionals."

// Client streams chat completions from a local Ollama server
// ⭐ SSOT: Ollama requests are made through this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	model      string
}

// NewClient creates a new Ollama client
func NewClient(httpClient *httputil.Client, cfg config.OllamaConfig, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.Component("ollama"),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		model:      cfg.Model,
	}
}

// Model returns the configured model name
func (c *Client) Model() string { return c.model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatChunk struct {
	Message message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error"`
}

// Chat sends prompt with the system prompt and passes every streamed
// content chunk to emit in arrival order
func (c *Client) Chat(ctx context.Context, prompt string, emit func(chunk string) error) error {
	resp, err := c.httpClient.PostJSON(ctx, c.baseURL+"/api/chat", chatRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Stream: true,
	})
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var chunk chatChunk
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&chunk)
		if chunk.Error != "" {
			return fmt.Errorf("ollama: %s", chunk.Error)
		}
		return &httputil.StatusError{StatusCode: resp.StatusCode, URL: c.baseURL + "/api/chat"}
	}

	dec := json.NewDecoder(resp.Body)
	chunks := 0
	for {
		var chunk chatChunk
		if err := dec.Decode(&chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to decode ollama stream: %w", err)
		}

		if chunk.Error != "" {
			return fmt.Errorf("ollama: %s", chunk.Error)
		}

		if chunk.Message.Content != "" {
			chunks++
			if err := emit(chunk.Message.Content); err != nil {
				return err
			}
		}

		if chunk.Done {
			break
		}
	}

	c.logger.WithField("chunks", chunks).Debug("Chat completed")
	return nil
}

var _ contracts.ChatModel = (*Client)(nil)
