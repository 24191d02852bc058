package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// imageURL возвращает URL изображения для промпта. В debug-режиме провайдер
// не вызывается. Любая ошибка провайдера (таймаут, квота, кривой ответ)
// поглощается и заменяется плейсхолдером: сбой генерации изображения
// не должен прерывать инициализацию.
func (s *GameService) imageURL(ctx context.Context, imagePrompt, size, fallback string) string {
	if s.imagesCfg.Debug {
		return fallback
	}

	url, err := s.ai.GenerateImage(ctx, imagePrompt, size)
	if err != nil || url == "" {
		s.logger.Warn().Err(err).Msg("image generation failed, using placeholder")
		return fallback
	}
	return url
}

// fetchImageBytes скачивает изображение по URL.
// Wikimedia отклоняет запросы без User-Agent, поэтому для wikipedia-хостов
// заголовок выставляется явно.
func (s *GameService) fetchImageBytes(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка подготовки запроса изображения: %w", err)
	}
	if strings.Contains(url, "wikipedia") {
		req.Header.Set("User-Agent", "gamemaster-server/1.0")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка скачивания изображения: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("скачивание изображения: неожиданный статус %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения тела изображения: %w", err)
	}
	return data, nil
}
