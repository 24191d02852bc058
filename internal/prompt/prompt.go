// Package prompt содержит чистые билдеры промптов для всех обращений к модели.
// Тексты лежат в templates/ и подставляются через text/template; никакого I/O
// и сетевых вызовов здесь нет, результат детерминирован по входу.
package prompt

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gamemaster-server/internal/model"
)

//go:embed templates/*.txt
var templatesFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.txt"))

// noStoryContext подставляется вместо истории, когда сыгранных ходов еще нет.
const noStoryContext = "[No other context.]"

// SystemUser - пара промптов (системный и пользовательский) для одного запроса
// классификации или сводки.
type SystemUser struct {
	System string
	User   string
}

// Initialization строит системный промпт новой игры из полей игрока.
// Вызывается до создания GameState, поэтому принимает поля напрямую.
func Initialization(playerName, playerDescription, worldTheme string) (string, error) {
	return render("initialization.txt", map[string]string{
		"PlayerName":        playerName,
		"PlayerDescription": playerDescription,
		"WorldTheme":        worldTheme,
	})
}

// Portrait строит промпт генерации портрета персонажа.
func Portrait(s *model.GameState) (string, error) {
	return render("portrait.txt", map[string]string{
		"WorldTheme":        s.WorldTheme,
		"PlayerDescription": s.PlayerDescription,
	})
}

// Backdrop строит промпт генерации пейзажа игрового мира.
func Backdrop(s *model.GameState) (string, error) {
	return render("backdrop.txt", map[string]string{
		"WorldTheme": s.WorldTheme,
	})
}

// Relevance строит пару промптов для проверки релевантности сообщения игрока.
func Relevance(s *model.GameState, userMessage string) (SystemUser, error) {
	return systemUser("relevance_system.txt", "relevance_user.txt", map[string]string{
		"InitializationPrompt": s.InitializationPrompt,
		"Story":                FormatStory(s.Story()),
		"UserMessage":          userMessage,
	})
}

// Realism строит пару промптов для проверки реализма сообщения игрока.
func Realism(s *model.GameState, userMessage string) (SystemUser, error) {
	return systemUser("realism_system.txt", "realism_user.txt", map[string]string{
		"InitializationPrompt": s.InitializationPrompt,
		"Story":                FormatStory(s.Story()),
		"UserMessage":          userMessage,
	})
}

// Damage строит пару промптов для оценки урона по паре (сообщение, ответ).
// Оцениваемый ход передается отдельными полями, а из истории дополнительно
// отбрасывается последний сыгранный ход: контекст урона - только более
// ранние события.
func Damage(s *model.GameState, userMessage, gamemasterReply string) (SystemUser, error) {
	story := s.Story()
	if len(story) < 2 {
		story = nil
	} else {
		story = story[:len(story)-2]
	}
	return systemUser("damage_system.txt", "damage_user.txt", map[string]string{
		"PlayerDescription": s.PlayerDescription,
		"Story":             FormatStory(story),
		"UserMessage":       userMessage,
		"GamemasterReply":   gamemasterReply,
	})
}

// GameOverSummary строит пару промптов для финальной сводки истории игрока.
func GameOverSummary(s *model.GameState) (SystemUser, error) {
	return systemUser("summary_system.txt", "summary_user.txt", map[string]string{
		"PlayerName": s.PlayerName,
		"Story":      FormatStory(s.Story()),
	})
}

// FormatStory превращает историю чата в плоский текст для подстановки в промпт.
func FormatStory(messages []model.ChatMessage) string {
	if len(messages) == 0 {
		return noStoryContext
	}

	var b strings.Builder
	for i, msg := range messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(msg.Role)
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}

func render(name string, data map[string]string) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("ошибка рендеринга промпта %s: %w", name, err)
	}
	return b.String(), nil
}

func systemUser(systemName, userName string, data map[string]string) (SystemUser, error) {
	system, err := render(systemName, nil)
	if err != nil {
		return SystemUser{}, err
	}
	user, err := render(userName, data)
	if err != nil {
		return SystemUser{}, err
	}
	return SystemUser{System: system, User: user}, nil
}
