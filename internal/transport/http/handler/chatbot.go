package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledgebot/internal/app"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/transport/http/response"
)

type ChatReplier interface {
	Reply(ctx context.Context, input app.ChatInput) (string, error)
}

type ChatbotHandler struct {
	chat   ChatReplier
	logger *slog.Logger
}

type ChatbotRequest struct {
	Message        string                       `json:"message"`
	History        []knowledge.ConversationTurn `json:"history"`
	ConversationID string                       `json:"conversation_id"`
}

func NewChatbotHandler(chat ChatReplier, logger *slog.Logger) *ChatbotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatbotHandler{chat: chat, logger: logger}
}

// Reply answers a chatbot message. Failures past validation still answer
// 200 with an apology so the widget always has something to show.
func (h *ChatbotHandler) Reply(c *gin.Context) {
	var req ChatbotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	reply, err := h.chat.Reply(c.Request.Context(), app.ChatInput{
		Message:        req.Message,
		History:        req.History,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		h.logger.Error("chatbot reply failed", "conversation_id", req.ConversationID, "error", err)
		response.OK(c, gin.H{"reply": app.ChatbotErrorReply})
		return
	}
	response.OK(c, gin.H{"reply": reply})
}
