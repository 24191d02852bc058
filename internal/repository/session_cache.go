package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gamemaster-server/internal/model"
)

const sessionKeyPrefix = "game_session:"

// SessionCache - сквозной Redis-кэш активных сессий. Сессия ищется по ключу
// на каждый запрос, промах отправляет читателя в Postgres. Кэш - оптимизация,
// не источник истины; его ошибки логируются и не валят ход.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSessionCache создает кэш сессий с заданным TTL.
func NewSessionCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SessionCache {
	return &SessionCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "session_cache").Logger(),
	}
}

func sessionKey(id uuid.UUID) string {
	return sessionKeyPrefix + id.String()
}

// Get возвращает закэшированную сессию; промах - model.ErrNotFound.
func (c *SessionCache) Get(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	data, err := c.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения сессии из кэша: %w", err)
	}

	var state model.GameState
	if err := json.Unmarshal(data, &state); err != nil {
		// Битая запись: выбрасываем ее и ведем себя как при промахе.
		c.logger.Warn().Err(err).Str("sessionID", id.String()).Msg("corrupt cache entry, evicting")
		c.client.Del(ctx, sessionKey(id))
		return nil, model.ErrNotFound
	}
	return &state, nil
}

// Set записывает сессию в кэш с обновлением TTL.
func (c *SessionCache) Set(ctx context.Context, state *model.GameState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга сессии для кэша: %w", err)
	}
	if err := c.client.Set(ctx, sessionKey(state.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи сессии в кэш: %w", err)
	}
	return nil
}

// Invalidate удаляет сессию из кэша.
func (c *SessionCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("ошибка удаления сессии из кэша: %w", err)
	}
	return nil
}
