// Package ai - шлюз к inference API: chat completion и генерация изображений.
// Клиент не хранит состояния между вызовами; все контекстные данные приходят
// в списке сообщений.
package ai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"gamemaster-server/internal/model"
)

const (
	defaultBaseURL    = "https://api.openai.com/v1"
	defaultChatModel  = "gpt-4.1"
	defaultImageModel = openai.CreateImageModelDallE3
	defaultTimeout    = 120 * time.Second
)

// Размеры изображений, которые запрашивает сервис.
const (
	SizePortrait = openai.CreateImageSize1024x1024
	SizeBackdrop = openai.CreateImageSize1792x1024
)

// Config содержит конфигурацию для клиента нейросети.
type Config struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	ImageModel string
	Timeout    int // секунды
}

// Client предоставляет доступ к chat completion и генерации изображений.
type Client struct {
	client     *openai.Client
	chatModel  string
	imageModel string
	timeout    time.Duration
}

// New создает новый экземпляр клиента нейросети.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("не указан API ключ для inference API")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = defaultChatModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	timeout := defaultTimeout
	if cfg.Timeout > 0 {
		timeout = time.Duration(cfg.Timeout) * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
		timeout:    timeout,
	}, nil
}

// ChatModel возвращает имя используемой chat-модели (для подсчета токенов и логов).
func (c *Client) ChatModel() string {
	return c.chatModel
}

// CompleteChat отправляет полный транскрипт и возвращает текст первого варианта
// ответа. Температура не задается - повествование генерируется с дефолтной.
// Пустой ответ провайдера возвращается как пустая строка, решение об ошибке
// принимает вызывающий.
func (c *Client) CompleteChat(ctx context.Context, messages []model.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.chatModel,
		Messages: toOpenAIMessages(messages),
	})
	observeRequest("chat", start, err)
	if err != nil {
		return "", err
	}

	return firstChoice(resp), nil
}

// Classify отправляет пару (системный, пользовательский) промптов при нулевой
// температуре и возвращает сырой текст вердикта. Используется для
// релевантности, реализма, урона и финальной сводки.
func (c *Client) Classify(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		// go-openai сериализует Temperature с omitempty, поэтому честный ноль
		// не доходит до провайдера; минимальный float32 дает тот же эффект.
		Temperature: math.SmallestNonzeroFloat32,
	})
	observeRequest("classify", start, err)
	if err != nil {
		return "", err
	}

	return firstChoice(resp), nil
}

// GenerateImage генерирует изображение по текстовому промпту и возвращает URL.
// Ошибки провайдера пробрасываются: подстановка fallback-URL - забота вызывающего.
func (c *Client) GenerateImage(ctx context.Context, prompt, size string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateImage(ctx, openai.ImageRequest{
		Model:          c.imageModel,
		Prompt:         prompt,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	observeRequest("image", start, err)
	if err != nil {
		return "", err
	}
	if len(resp.Data) == 0 {
		return "", errors.New("провайдер не вернул ни одного изображения")
	}

	return resp.Data[0].URL, nil
}

func toOpenAIMessages(messages []model.ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		result[i] = openai.ChatCompletionMessage{Role: msg.Role, Content: msg.Content}
	}
	return result
}

func firstChoice(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return resp.Choices[0].Message.Content
}
