package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gamemaster-server/internal/model"
)

// GameRepository предоставляет доступ к сохраненным игровым сессиям.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository создает новый экземпляр репозитория игровых сессий.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

// gameStateRow - строка таблицы game_states; chat_history хранится как jsonb.
type gameStateRow struct {
	ID                   uuid.UUID `db:"id"`
	PlayerName           string    `db:"player_name"`
	PlayerDescription    string    `db:"player_description"`
	WorldTheme           string    `db:"world_theme"`
	InitializationPrompt string    `db:"initialization_prompt"`
	ChatHistory          []byte    `db:"chat_history"`
	HitPoints            int       `db:"hit_points"`
	GameOver             bool      `db:"game_over"`
	GameOverSummary      string    `db:"game_over_summary"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (r gameStateRow) toModel() (*model.GameState, error) {
	state := &model.GameState{
		ID:                   r.ID,
		PlayerName:           r.PlayerName,
		PlayerDescription:    r.PlayerDescription,
		WorldTheme:           r.WorldTheme,
		InitializationPrompt: r.InitializationPrompt,
		HitPoints:            r.HitPoints,
		GameOver:             r.GameOver,
		GameOverSummary:      r.GameOverSummary,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
	if err := json.Unmarshal(r.ChatHistory, &state.ChatHistory); err != nil {
		return nil, fmt.Errorf("ошибка разбора chat_history: %w", err)
	}
	return state, nil
}

// Save сохраняет сессию. Для новой сессии (нулевой ID) выполняется вставка с
// назначением идентификатора и created_at. Для существующей - дифференциальное
// обновление: prior - это снимок, загруженный в начале хода; в UPDATE попадают
// только изменившиеся относительно него поля плюс свежий updated_at.
// Политика конфликтов - last-writer-wins, без версионирования.
func (r *GameRepository) Save(ctx context.Context, s *model.GameState, prior *model.GameState) error {
	if s.ID == uuid.Nil {
		return r.insert(ctx, s)
	}
	return r.update(ctx, s, prior)
}

func (r *GameRepository) insert(ctx context.Context, s *model.GameState) error {
	historyJSON, err := json.Marshal(s.ChatHistory)
	if err != nil {
		return fmt.Errorf("ошибка маршалинга chat_history: %w", err)
	}

	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO game_states (id, player_name, player_description, world_theme,
			initialization_prompt, chat_history, hit_points, game_over,
			game_over_summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`
	_, err = r.pool.Exec(ctx, query,
		s.ID,
		s.PlayerName,
		s.PlayerDescription,
		s.WorldTheme,
		s.InitializationPrompt,
		historyJSON,
		s.HitPoints,
		s.GameOver,
		s.GameOverSummary,
		now,
	)
	if err != nil {
		return fmt.Errorf("ошибка вставки игровой сессии: %w", err)
	}
	return nil
}

func (r *GameRepository) update(ctx context.Context, s, prior *model.GameState) error {
	changed, err := diffColumns(s, prior)
	if err != nil {
		return err
	}

	s.UpdatedAt = time.Now().UTC()

	setClauses := make([]string, 0, len(changed)+1)
	args := make([]interface{}, 0, len(changed)+2)
	for _, c := range changed {
		args = append(args, c.value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}
	args = append(args, s.UpdatedAt)
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, s.ID)

	query := fmt.Sprintf("UPDATE game_states SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), len(args))

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ошибка обновления игровой сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("обновление сессии %s: %w", s.ID, model.ErrNotFound)
	}
	return nil
}

type column struct {
	name  string
	value interface{}
}

// diffColumns возвращает колонки, изменившиеся относительно prior.
// При nil prior (снимка нет) обновляются все изменяемые колонки.
func diffColumns(s, prior *model.GameState) ([]column, error) {
	historyJSON, err := json.Marshal(s.ChatHistory)
	if err != nil {
		return nil, fmt.Errorf("ошибка маршалинга chat_history: %w", err)
	}

	all := prior == nil
	var priorHistoryJSON []byte
	if !all {
		priorHistoryJSON, err = json.Marshal(prior.ChatHistory)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга chat_history снимка: %w", err)
		}
	}

	var changed []column
	add := func(name string, value interface{}, dirty bool) {
		if all || dirty {
			changed = append(changed, column{name: name, value: value})
		}
	}

	add("player_name", s.PlayerName, !all && s.PlayerName != prior.PlayerName)
	add("player_description", s.PlayerDescription, !all && s.PlayerDescription != prior.PlayerDescription)
	add("world_theme", s.WorldTheme, !all && s.WorldTheme != prior.WorldTheme)
	add("initialization_prompt", s.InitializationPrompt, !all && s.InitializationPrompt != prior.InitializationPrompt)
	add("chat_history", historyJSON, !all && !bytes.Equal(historyJSON, priorHistoryJSON))
	add("hit_points", s.HitPoints, !all && s.HitPoints != prior.HitPoints)
	add("game_over", s.GameOver, !all && s.GameOver != prior.GameOver)
	add("game_over_summary", s.GameOverSummary, !all && s.GameOverSummary != prior.GameOverSummary)

	return changed, nil
}

// GetByID возвращает сессию по идентификатору; отсутствие - model.ErrNotFound.
func (r *GameRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.GameState, error) {
	query := `
		SELECT id, player_name, player_description, world_theme, initialization_prompt,
			chat_history, hit_points, game_over, game_over_summary, created_at, updated_at
		FROM game_states
		WHERE id = $1
	`

	var row gameStateRow
	if err := pgxscan.Get(ctx, r.pool, &row, query, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения игровой сессии: %w", err)
	}

	return row.toModel()
}

// List возвращает все сохраненные сессии, свежие первыми.
// Полный скан без пагинации: каталог сохранений ожидается небольшим.
func (r *GameRepository) List(ctx context.Context) ([]model.GameState, error) {
	query := `
		SELECT id, player_name, player_description, world_theme, initialization_prompt,
			chat_history, hit_points, game_over, game_over_summary, created_at, updated_at
		FROM game_states
		ORDER BY updated_at DESC
	`

	var rows []gameStateRow
	if err := pgxscan.Select(ctx, r.pool, &rows, query); err != nil {
		return nil, fmt.Errorf("ошибка чтения списка сессий: %w", err)
	}

	states := make([]model.GameState, 0, len(rows))
	for _, row := range rows {
		state, err := row.toModel()
		if err != nil {
			return nil, err
		}
		states = append(states, *state)
	}
	return states, nil
}

// Delete удаляет сессию; отсутствие строки - model.ErrNotFound.
func (r *GameRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM game_states WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("ошибка удаления игровой сессии: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("удаление сессии %s: %w", id, model.ErrNotFound)
	}
	return nil
}
