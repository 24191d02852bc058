package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gamemaster-server/internal/model"
	"gamemaster-server/internal/prompt"
	"gamemaster-server/pkg/ai"
)

// OverridePrefix - маркер в начале сообщения, отключающий проверки
// релевантности и реализма (ручное тестирование и правка контента).
// Оценка урона при этом выполняется как обычно.
const OverridePrefix = "@override"

// Фиксированные тексты системных ответов клиенту.
const (
	DeadSessionMessage = "You are dead. Please refresh the browser to play again."
	DeathNotice        = "Oh, no! Unfortunately, you have died!"
)

// TurnResult - результат обработки одного хода.
type TurnResult struct {
	Sender          model.Sender
	Content         string
	HitPoints       int
	GameOver        bool
	GameOverSummary string
}

// ProcessTurn обрабатывает одно сообщение игрока: гейтинг -> генерация ответа ->
// оценка урона -> переход состояния -> сохранение. Отклоненный или сорвавшийся
// ход не оставляет следов: история и очки здоровья меняются только после того,
// как все обращения к модели завершились успешно.
func (s *GameService) ProcessTurn(ctx context.Context, sessionID uuid.UUID, content string) (*TurnResult, error) {
	state, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Терминальное состояние: никаких классификаторов и мутаций.
	if state.GameOver {
		turnsTotal.WithLabelValues("dead_session").Inc()
		return &TurnResult{
			Sender:          model.SenderSystem,
			Content:         DeadSessionMessage,
			HitPoints:       state.HitPoints,
			GameOver:        true,
			GameOverSummary: state.GameOverSummary,
		}, nil
	}

	userMessage := content
	override := strings.HasPrefix(userMessage, OverridePrefix)
	if override {
		userMessage = strings.TrimSpace(strings.TrimPrefix(userMessage, OverridePrefix))
	}

	if !override {
		if err := s.gateTurn(ctx, state, userMessage); err != nil {
			return nil, err
		}
	}

	reply, err := s.gamemasterReply(ctx, state, userMessage)
	if err != nil {
		return nil, err
	}

	damage, err := s.assessDamage(ctx, state, userMessage, reply)
	if err != nil {
		return nil, err
	}

	// Снимок до мутаций - база для дифференциального обновления.
	prior := state.Clone()

	if dead := state.ApplyDamage(damage); dead {
		return s.finishGame(ctx, state, prior, userMessage)
	}

	state.AppendTurn(userMessage, reply)
	if err := s.persist(ctx, state, prior); err != nil {
		return nil, err
	}

	turnsTotal.WithLabelValues("completed").Inc()
	if damage > 0 {
		damageDealt.Observe(float64(damage))
	}

	return &TurnResult{
		Sender:    model.SenderGamemaster,
		Content:   reply,
		HitPoints: state.HitPoints,
	}, nil
}

// gateTurn прогоняет сообщение через классификаторы релевантности и реализма.
// Отрицательный вердикт возвращается sentinel-ошибкой, состояние не трогается.
func (s *GameService) gateTurn(ctx context.Context, state *model.GameState, userMessage string) error {
	relevance, err := prompt.Relevance(state, userMessage)
	if err != nil {
		return err
	}
	reply, err := s.ai.Classify(ctx, relevance.System, relevance.User)
	if err != nil {
		return fmt.Errorf("ошибка классификации релевантности: %w", err)
	}
	if !ai.ParseBool(reply) {
		turnsTotal.WithLabelValues("rejected_relevance").Inc()
		return model.ErrNotRelevant
	}

	realism, err := prompt.Realism(state, userMessage)
	if err != nil {
		return err
	}
	reply, err = s.ai.Classify(ctx, realism.System, realism.User)
	if err != nil {
		return fmt.Errorf("ошибка классификации реализма: %w", err)
	}
	if !ai.ParseBool(reply) {
		turnsTotal.WithLabelValues("rejected_realism").Inc()
		return model.ErrNotRealistic
	}

	return nil
}

// gamemasterReply генерирует повествовательный ответ на ход игрока.
// Кандидатский ход добавляется к копии транскрипта: сессия не мутируется,
// поэтому сорвавшийся ход не требует отката.
func (s *GameService) gamemasterReply(ctx context.Context, state *model.GameState, userMessage string) (string, error) {
	transcript := make([]model.ChatMessage, 0, len(state.ChatHistory)+1)
	transcript = append(transcript, state.ChatHistory...)
	transcript = append(transcript, model.ChatMessage{Role: model.RoleUser, Content: userMessage})

	if tokens := ai.CountTokens(s.ai.ChatModel(), transcript); tokens > 0 {
		s.logger.Debug().
			Str("sessionID", state.ID.String()).
			Int("promptTokens", tokens).
			Msg("submitting transcript for gamemaster reply")
		promptTokens.Observe(float64(tokens))
	}

	reply, err := s.ai.CompleteChat(ctx, transcript)
	if err != nil {
		return "", fmt.Errorf("ошибка генерации ответа гейммастера: %w", err)
	}
	if reply == "" {
		return "", model.ErrEmptyReply
	}
	return reply, nil
}

// assessDamage оценивает урон по паре (сообщение игрока, ответ гейммастера).
func (s *GameService) assessDamage(ctx context.Context, state *model.GameState, userMessage, reply string) (int, error) {
	damage, err := prompt.Damage(state, userMessage, reply)
	if err != nil {
		return 0, err
	}
	verdict, err := s.ai.Classify(ctx, damage.System, damage.User)
	if err != nil {
		return 0, fmt.Errorf("ошибка классификации урона: %w", err)
	}
	return ai.ParseDamage(verdict), nil
}

// finishGame переводит сессию в game over: генерирует финальную сводку,
// дописывает в историю только сообщение игрока (фатальный ответ ассистента
// не сохраняется) и персистит терминальное состояние.
func (s *GameService) finishGame(ctx context.Context, state, prior *model.GameState, userMessage string) (*TurnResult, error) {
	summaryPrompt, err := prompt.GameOverSummary(state)
	if err != nil {
		return nil, err
	}
	summary, err := s.ai.Classify(ctx, summaryPrompt.System, summaryPrompt.User)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации финальной сводки: %w", err)
	}

	state.Finish(summary)
	state.AppendUserMessage(userMessage)
	if err := s.persist(ctx, state, prior); err != nil {
		return nil, err
	}

	turnsTotal.WithLabelValues("death").Inc()

	return &TurnResult{
		Sender:          model.SenderSystem,
		Content:         DeathNotice,
		HitPoints:       state.HitPoints,
		GameOver:        true,
		GameOverSummary: state.GameOverSummary,
	}, nil
}

// persist сохраняет состояние дифференциально и обновляет кэш сквозной записью.
func (s *GameService) persist(ctx context.Context, state, prior *model.GameState) error {
	if err := s.repo.Save(ctx, state, prior); err != nil {
		return err
	}
	if err := s.cache.Set(ctx, state); err != nil {
		s.logger.Warn().Err(err).Str("sessionID", state.ID.String()).Msg("failed to refresh session cache")
	}
	return nil
}
