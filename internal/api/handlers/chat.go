package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/healthdash/backend/internal/contracts"
	"github.com/healthdash/backend/pkg/logger"
)

// OllamaHint is appended to inference errors sent to the client
const OllamaHint = "Please check if Ollama is running with the required model."

const (
	chatWriteWait  = 10 * time.Second
	chatMaxMessage = 16 << 10
)

// ChatMessage is one frame sent to the chat client
type ChatMessage struct {
	Type    string `json:"type"` // chunk, done, error
	Content string `json:"content,omitempty"`
}

// ChatHandler relays prompts from a websocket to the local language model
type ChatHandler struct {
	model    contracts.ChatModel
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(model contracts.ChatModel, log *logger.Logger) *ChatHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChatHandler{
		model: model,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the dashboard is served from a different origin in development
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: log.Component("api.chat"),
	}
}

// Serve upgrades the connection and answers prompts until the client closes.
// Each text message is one prompt; the answer streams back as chunk
// messages followed by done, or a single error message.
// GET /ws/chat
func (h *ChatHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	conn.SetReadLimit(chatMaxMessage)
	ctx := r.Context()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.WithError(err).Debug("Chat connection closed")
			}
			return
		}
		if msgType != websocket.TextMessage || len(data) == 0 {
			continue
		}

		send := func(m ChatMessage) error {
			conn.SetWriteDeadline(time.Now().Add(chatWriteWait))
			return conn.WriteJSON(m)
		}

		err = h.model.Chat(ctx, string(data), func(chunk string) error {
			return send(ChatMessage{Type: "chunk", Content: chunk})
		})
		if err != nil {
			h.logger.WithError(err).Warn("Chat inference failed")
			if werr := send(ChatMessage{Type: "error", Content: "Error: " + err.Error() + ". " + OllamaHint}); werr != nil {
				return
			}
			continue
		}

		if err := send(ChatMessage{Type: "done"}); err != nil {
			return
		}
	}
}
