package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledgebot/internal/knowledge"
)

// ChatbotErrorReply is shown to end users when an answer could not be produced.
const ChatbotErrorReply = "Lo siento, estoy teniendo problemas para responder en este momento. Por favor, intenta de nuevo más tarde o contacta al soporte."

type Responder interface {
	GenerateResponse(ctx context.Context, query string, history []knowledge.ConversationTurn) (string, error)
}

type ChatInput struct {
	Message        string
	History        []knowledge.ConversationTurn
	ConversationID string
}

// ChatService answers chatbot messages and keeps per-conversation history in
// the cache when a conversation id is supplied.
type ChatService struct {
	responder    Responder
	historyCache HistoryCache
	logger       *slog.Logger
}

func NewChatService(responder Responder, historyCache HistoryCache, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		responder:    responder,
		historyCache: historyCache,
		logger:       logger,
	}
}

func (s *ChatService) Reply(ctx context.Context, input ChatInput) (string, error) {
	message := strings.TrimSpace(input.Message)
	if message == "" {
		return "", fmt.Errorf("%w: message is empty", ErrInvalidInput)
	}
	for i, turn := range input.History {
		if turn.Role != knowledge.RoleUser && turn.Role != knowledge.RoleAssistant {
			return "", fmt.Errorf("%w: history[%d] has role %q", ErrInvalidInput, i, turn.Role)
		}
	}

	conversationID := strings.TrimSpace(input.ConversationID)
	history := input.History
	if conversationID != "" && len(history) == 0 && s.historyCache != nil {
		cached, hit, err := s.historyCache.GetHistory(ctx, conversationID)
		if err != nil {
			s.logger.Warn("load conversation history failed", "conversation_id", conversationID, "error", err)
		} else if hit {
			history = cached
		}
	}

	reply, err := s.responder.GenerateResponse(ctx, message, history)
	if err != nil {
		return "", err
	}

	if conversationID != "" && s.historyCache != nil {
		err := s.historyCache.AppendHistory(ctx, conversationID,
			knowledge.ConversationTurn{Role: knowledge.RoleUser, Content: message},
			knowledge.ConversationTurn{Role: knowledge.RoleAssistant, Content: reply},
		)
		if err != nil {
			s.logger.Warn("save conversation history failed", "conversation_id", conversationID, "error", err)
		}
	}
	return reply, nil
}
