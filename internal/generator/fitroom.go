package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// FitRoomID — идентификатор генератора FitRoom.
const FitRoomID = "fitroom"

// Статусы задачи FitRoom.
const (
	fitRoomCompleted = "COMPLETED"
	fitRoomFailed    = "FAILED"
)

// FitRoomConfig — параметры генератора FitRoom.
type FitRoomConfig struct {
	APIKey  string
	BaseURL string
	// PollInterval — период опроса статуса задачи
	PollInterval time.Duration
	// MaxPolls — максимум опросов до отказа
	MaxPolls int
}

// FitRoom — асинхронный API примерки: создание задачи и опрос статуса
// до COMPLETED/FAILED. Для вызывающего генерация синхронна.
type FitRoom struct {
	cfg    FitRoomConfig
	client *http.Client
}

// NewFitRoom создаёт генератор FitRoom.
func NewFitRoom(cfg FitRoomConfig, client *http.Client) *FitRoom {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &FitRoom{cfg: cfg, client: client}
}

type fitRoomStatus struct {
	Status            string `json:"status"`
	Progress          int    `json:"progress,omitempty"`
	DownloadSignedURL string `json:"download_signed_url,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Generate создаёт задачу по первой вещи и ждёт результата.
func (g *FitRoom) Generate(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Garments) == 0 {
		return nil, fail(FitRoomID, "нет изображения одежды", nil)
	}

	clothType := model.PartUpper
	if len(req.Parts) > 0 && req.Parts[0] != "" {
		clothType = req.Parts[0]
	}

	taskID, err := g.createTask(ctx, req.Body.Data, req.Garments[0].Data, clothType)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(g.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < g.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return nil, fail(FitRoomID, "ожидание задачи "+taskID+" прервано", ctx.Err())
		case <-ticker.C:
		}

		status, err := g.taskStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}

		switch status.Status {
		case fitRoomCompleted:
			if status.DownloadSignedURL == "" {
				return nil, fail(FitRoomID, "задача выполнена, но URL результата отсутствует", nil)
			}
			return g.download(ctx, status.DownloadSignedURL)
		case fitRoomFailed:
			detail := status.Error
			if detail == "" {
				detail = "неизвестная ошибка"
			}
			return nil, fail(FitRoomID, "задача "+taskID+" завершилась ошибкой: "+detail, nil)
		}
	}

	return nil, fail(FitRoomID, fmt.Sprintf("задача %s не завершилась за %d опросов", taskID, g.cfg.MaxPolls), nil)
}

// createTask отправляет multipart-запрос создания задачи и возвращает её id.
func (g *FitRoom) createTask(ctx context.Context, body, cloth []byte, clothType model.Part) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := writeFilePart(mw, "model_image", "model.jpg", body); err != nil {
		return "", fail(FitRoomID, "ошибка формирования запроса", err)
	}
	if err := writeFilePart(mw, "cloth_image", "cloth.jpg", cloth); err != nil {
		return "", fail(FitRoomID, "ошибка формирования запроса", err)
	}
	_ = mw.WriteField("cloth_type", string(clothType))
	_ = mw.WriteField("hd_mode", "false")
	if err := mw.Close(); err != nil {
		return "", fail(FitRoomID, "ошибка формирования запроса", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/api/tryon/v2/tasks", &buf)
	if err != nil {
		return "", fail(FitRoomID, "ошибка создания запроса", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.Header.Set("X-API-KEY", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fail(FitRoomID, "провайдер недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", fail(FitRoomID, fmt.Sprintf("создание задачи: статус %d", resp.StatusCode), nil)
	}

	var out struct {
		TaskID json.Number `json:"task_id"`
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return "", fail(FitRoomID, "некорректный ответ создания задачи", err)
	}
	if out.TaskID == "" {
		return "", fail(FitRoomID, "ответ не содержит task_id", nil)
	}
	return out.TaskID.String(), nil
}

// taskStatus запрашивает статус задачи.
func (g *FitRoom) taskStatus(ctx context.Context, taskID string) (*fitRoomStatus, error) {
	endpoint := g.cfg.BaseURL + "/api/tryon/v2/tasks/" + url.PathEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fail(FitRoomID, "ошибка создания запроса", err)
	}
	httpReq.Header.Set("X-API-KEY", g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fail(FitRoomID, "провайдер недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fail(FitRoomID, fmt.Sprintf("статус задачи: HTTP %d", resp.StatusCode), nil)
	}

	var status fitRoomStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fail(FitRoomID, "некорректный ответ статуса задачи", err)
	}
	return &status, nil
}

// download скачивает результат по подписанному URL провайдера.
func (g *FitRoom) download(ctx context.Context, rawURL string) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fail(FitRoomID, "некорректный URL результата", err)
	}
	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fail(FitRoomID, "ошибка скачивания результата", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fail(FitRoomID, fmt.Sprintf("скачивание результата: статус %d", resp.StatusCode), nil)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(FitRoomID, "ошибка чтения результата", err)
	}
	return data, nil
}

func writeFilePart(mw *multipart.Writer, field, filename string, data []byte) error {
	w, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
