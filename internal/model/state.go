package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Границы очков здоровья игрока. Новая сессия всегда начинается с максимума.
const (
	MaxHitPoints = 5
	MinHitPoints = 0
)

// Роли сообщений в истории чата (формат OpenAI chat completion).
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Sender помечает ответы API для клиента.
type Sender string

const (
	SenderGamemaster Sender = "gamemaster"
	SenderSystem     Sender = "system"
	SenderError      Sender = "error"
	SenderUser       Sender = "user"
)

// Ошибки уровня домена. Репозиторий и сервис возвращают их как sentinel-ошибки,
// HTTP-слой отображает их в коды ответов.
var (
	ErrNotFound     = errors.New("запись не найдена")
	ErrNotRelevant  = errors.New("сообщение не относится к истории игры")
	ErrNotRealistic = errors.New("сообщение нарушает реализм игрового мира")
	ErrEmptyReply   = errors.New("гейммастер вернул пустой ответ")
	ErrInvalidState = errors.New("некорректное состояние игры")
)

// ChatMessage - одно сообщение в истории диалога с моделью.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GameState представляет одну игровую сессию.
// Индекс 0 в ChatHistory всегда занимает системный промпт.
type GameState struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	PlayerName           string        `json:"player_name" db:"player_name"`
	PlayerDescription    string        `json:"player_description" db:"player_description"`
	WorldTheme           string        `json:"world_theme" db:"world_theme"`
	InitializationPrompt string        `json:"initialization_prompt" db:"initialization_prompt"`
	ChatHistory          []ChatMessage `json:"chat_history" db:"chat_history"`
	HitPoints            int           `json:"hit_points" db:"hit_points"`
	GameOver             bool          `json:"game_over" db:"game_over"`
	GameOverSummary      string        `json:"game_over_summary" db:"game_over_summary"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}

// NewGameState создает новую сессию.
// Незаполненные обязательные поля - ошибка конструирования, не паника.
func NewGameState(playerName, playerDescription, worldTheme, initializationPrompt string) (*GameState, error) {
	if playerName == "" || playerDescription == "" || worldTheme == "" {
		return nil, fmt.Errorf("%w: обязательные поля игрока не заполнены", ErrInvalidState)
	}
	if initializationPrompt == "" {
		return nil, fmt.Errorf("%w: пустой инициализационный промпт", ErrInvalidState)
	}

	return &GameState{
		PlayerName:           playerName,
		PlayerDescription:    playerDescription,
		WorldTheme:           worldTheme,
		InitializationPrompt: initializationPrompt,
		ChatHistory: []ChatMessage{
			{Role: RoleSystem, Content: initializationPrompt},
		},
		HitPoints: MaxHitPoints,
	}, nil
}

// ApplyDamage вычитает урон из очков здоровья, не опуская их ниже нуля.
// Возвращает true, если после применения игрок мертв.
func (s *GameState) ApplyDamage(damage int) bool {
	if damage < 0 {
		damage = 0
	}
	s.HitPoints -= damage
	if s.HitPoints <= MinHitPoints {
		s.HitPoints = MinHitPoints
		return true
	}
	return false
}

// Finish переводит сессию в терминальное состояние game over.
// Переход монотонный: повторный вызов не меняет уже записанную сводку.
func (s *GameState) Finish(summary string) {
	if s.GameOver {
		return
	}
	s.GameOver = true
	s.GameOverSummary = summary
}

// AppendUserMessage добавляет в историю только ход игрока.
// Используется на смертельном ходу: фатальный ответ ассистента не сохраняется.
func (s *GameState) AppendUserMessage(content string) {
	s.ChatHistory = append(s.ChatHistory, ChatMessage{Role: RoleUser, Content: content})
}

// AppendTurn добавляет в историю завершенный ход: сообщение игрока и ответ гейммастера.
func (s *GameState) AppendTurn(userMessage, gamemasterReply string) {
	s.ChatHistory = append(s.ChatHistory,
		ChatMessage{Role: RoleUser, Content: userMessage},
		ChatMessage{Role: RoleAssistant, Content: gamemasterReply},
	)
}

// Story возвращает историю без системного промпта - контекст для классификаторов.
func (s *GameState) Story() []ChatMessage {
	if len(s.ChatHistory) <= 1 {
		return nil
	}
	return s.ChatHistory[1:]
}

// Clone возвращает глубокую копию состояния.
// Нужна, чтобы пайплайн хода мутировал копию, а прежний снимок оставался для диффа.
func (s *GameState) Clone() *GameState {
	clone := *s
	clone.ChatHistory = make([]ChatMessage, len(s.ChatHistory))
	copy(clone.ChatHistory, s.ChatHistory)
	return &clone
}
