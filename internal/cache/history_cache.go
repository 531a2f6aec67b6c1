package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"knowledgebot/internal/knowledge"
)

// HistoryCache keeps the recent turns of each chatbot conversation in a
// Redis list. Lists are capped at maxTurns and expire after historyTTL of
// inactivity.
type HistoryCache struct {
	client     redisv9.Cmdable
	historyTTL time.Duration
	maxTurns   int
}

func NewHistoryCache(client redisv9.Cmdable, historyTTL time.Duration, maxTurns int) *HistoryCache {
	if historyTTL <= 0 {
		historyTTL = 24 * time.Hour
	}
	if maxTurns <= 0 {
		maxTurns = 20
	}
	return &HistoryCache{
		client:     client,
		historyTTL: historyTTL,
		maxTurns:   maxTurns,
	}
}

func (c *HistoryCache) GetHistory(ctx context.Context, conversationID string) ([]knowledge.ConversationTurn, bool, error) {
	raw, err := c.client.LRange(ctx, historyKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis get history failed: %w", err)
	}
	if len(raw) == 0 {
		return nil, false, nil
	}

	turns := make([]knowledge.ConversationTurn, 0, len(raw))
	for _, item := range raw {
		var turn knowledge.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, false, fmt.Errorf("unmarshal cached turn failed: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, true, nil
}

func (c *HistoryCache) AppendHistory(ctx context.Context, conversationID string, turns ...knowledge.ConversationTurn) error {
	if len(turns) == 0 {
		return nil
	}
	values := make([]interface{}, len(turns))
	for i, turn := range turns {
		payload, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("marshal history turn failed: %w", err)
		}
		values[i] = payload
	}

	key := historyKey(conversationID)
	_, err := c.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.RPush(ctx, key, values...)
		pipe.LTrim(ctx, key, int64(-c.maxTurns), -1)
		pipe.Expire(ctx, key, c.historyTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, conversationID string) error {
	if err := c.client.Del(ctx, historyKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func historyKey(conversationID string) string {
	return "chatbot:history:" + conversationID
}
