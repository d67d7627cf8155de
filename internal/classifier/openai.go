package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxTokens — ответ модели ограничен одним словом.
const maxTokens = 10

// OpenAIConfig — параметры OpenAI-совместимого API.
type OpenAIConfig struct {
	// APIURL — базовый адрес, например https://api.openai.com/v1
	APIURL string
	APIKey string
	// Model — модель с поддержкой изображений (по умолчанию gpt-4.1-mini)
	Model string
}

// OpenAI — классификатор через chat completions с изображением в data URL.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI создаёт классификатор.
func NewOpenAI(cfg OpenAIConfig, client *http.Client) *OpenAI {
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	return &OpenAI{cfg: cfg, client: client}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string            `json:"role"`
	Content []chatContentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Classify отправляет инструкцию и изображение, возвращает текст ответа.
func (c *OpenAI) Classify(ctx context.Context, image []byte, contentType, instruction string) (string, error) {
	if contentType == "" {
		contentType = http.DetectContentType(image)
	}
	dataURL := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(image)

	payload := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []chatContentPart{
				{Type: "text", Text: instruction},
				{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
			},
		}},
		MaxTokens: maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("классификатор недоступен: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("классификатор вернул статус %d", resp.StatusCode)
		}
		return "", fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("классификатор вернул статус %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("классификатор вернул статус %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("пустой ответ классификатора")
	}
	return parsed.Choices[0].Message.Content, nil
}
