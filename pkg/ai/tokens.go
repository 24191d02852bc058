package ai

import (
	"github.com/pkoukk/tiktoken-go"

	"gamemaster-server/internal/model"
)

// Накладные токены на одно сообщение в формате chat completion
// (разметка роли и разделители, по подсчетам OpenAI cookbook).
const tokensPerMessage = 4

// CountTokens оценивает размер транскрипта в токенах модели.
// Используется сервисом для логирования бюджета промпта перед генерацией
// повествования. Для неизвестной модели берется кодировка cl100k_base;
// при недоступности и ее возвращается 0 - подсчет не критичен для хода.
func CountTokens(modelName string, messages []model.ChatMessage) int {
	encoding, err := tiktoken.EncodingForModel(modelName)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return 0
		}
	}

	total := 0
	for _, msg := range messages {
		total += tokensPerMessage + len(encoding.Encode(msg.Content, nil, nil))
	}
	return total
}
