package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GeminiID — идентификатор генератора Gemini.
const GeminiID = "gemini"

// GeminiConfig — параметры генератора Gemini.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Gemini — генерация через Gemini generateContent с ответом-изображением.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
}

// NewGemini создаёт генератор Gemini.
func NewGemini(cfg GeminiConfig, client *http.Client) *Gemini {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Gemini{cfg: cfg, client: client}
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// Generate отправляет изображения одежды, изображение человека и промпт
// в одном запросе и возвращает первое изображение из ответа.
func (g *Gemini) Generate(ctx context.Context, req Request) ([]byte, error) {
	parts := make([]geminiPart, 0, len(req.Garments)+2)
	for _, garment := range req.Garments {
		parts = append(parts, inlinePart(garment))
	}
	parts = append(parts, inlinePart(req.Body), geminiPart{Text: req.Prompt})

	payload := geminiRequest{
		Contents:         []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"IMAGE"}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fail(GeminiID, "ошибка сериализации запроса", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.cfg.BaseURL, url.PathEscape(g.cfg.Model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fail(GeminiID, "ошибка создания запроса", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fail(GeminiID, "провайдер недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fail(GeminiID, fmt.Sprintf("статус %d: %s", resp.StatusCode, apiErr.Error.Message), nil)
		}
		return nil, fail(GeminiID, fmt.Sprintf("статус %d", resp.StatusCode), nil)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fail(GeminiID, "некорректный ответ", err)
	}
	return extractGeminiImage(out)
}

// extractGeminiImage достаёт первое inline-изображение из ответа.
func extractGeminiImage(out geminiResponse) ([]byte, error) {
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return nil, fail(GeminiID, "запрос отклонён провайдером: "+out.PromptFeedback.BlockReason, nil)
	}
	if len(out.Candidates) == 0 {
		return nil, fail(GeminiID, "ответ без кандидатов", nil)
	}

	candidate := out.Candidates[0]
	switch candidate.FinishReason {
	case "IMAGE_OTHER", "SAFETY", "IMAGE_SAFETY", "PROHIBITED_CONTENT":
		return nil, fail(GeminiID, "провайдер отказался генерировать изображение: "+candidate.FinishReason, nil)
	}

	for _, part := range candidate.Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fail(GeminiID, "некорректные данные изображения", err)
		}
		return data, nil
	}
	return nil, fail(GeminiID, "ответ не содержит изображения", nil)
}

func inlinePart(img Image) geminiPart {
	mime := img.ContentType
	if mime == "" {
		mime = "image/jpeg"
	}
	return geminiPart{InlineData: &geminiInlineData{
		MimeType: mime,
		Data:     base64.StdEncoding.EncodeToString(img.Data),
	}}
}
