package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

func testRequest(garments int) Request {
	req := Request{
		Body:   Image{Data: []byte("body"), ContentType: "image/png"},
		Prompt: "prompt",
	}
	for i := 0; i < garments; i++ {
		req.Garments = append(req.Garments, Image{Data: []byte(fmt.Sprintf("garment-%d", i)), ContentType: "image/jpeg"})
		req.Parts = append(req.Parts, "")
	}
	return req
}

// --- Gemini ---

// TestGemini_Success проверяет формат запроса и разбор изображения из ответа.
func TestGemini_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-flash-image:generateContent" {
			t.Errorf("путь = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Error("отсутствует ключ API")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Contents) != 1 {
			t.Errorf("ошибка декодирования запроса: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		parts := req.Contents[0].Parts
		// Вещи, затем человек, затем промпт
		if len(parts) != 4 || parts[0].InlineData == nil || parts[2].InlineData == nil {
			t.Errorf("неверный состав частей: %d", len(parts))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		first, _ := base64.StdEncoding.DecodeString(parts[0].InlineData.Data)
		third, _ := base64.StdEncoding.DecodeString(parts[2].InlineData.Data)
		if string(first) != "garment-0" || string(third) != "body" || parts[3].Text != "prompt" {
			t.Errorf("неверный порядок частей: %q, %q, %q", first, third, parts[3].Text)
		}
		if req.GenerationConfig == nil || req.GenerationConfig.ResponseModalities[0] != "IMAGE" {
			t.Error("ожидался responseModalities IMAGE")
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"finishReason": "STOP",
				"content": map[string]any{"parts": []map[string]any{
					{"text": "вот результат"},
					{"inlineData": map[string]string{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("result"))}},
				}},
			}},
		})
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "secret", BaseURL: srv.URL + "/", Model: "gemini-2.5-flash-image"}, srv.Client())
	data, err := g.Generate(context.Background(), testRequest(2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(data) != "result" {
		t.Errorf("результат = %q", data)
	}
}

// TestGemini_Failures проверяет отказ провайдера и некорректные ответы.
func TestGemini_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		detail string
	}{
		{"отказ IMAGE_OTHER", 200, `{"candidates":[{"finishReason":"IMAGE_OTHER","content":{"parts":[]}}]}`, "IMAGE_OTHER"},
		{"блокировка промпта", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, "SAFETY"},
		{"без изображения", 200, `{"candidates":[{"finishReason":"STOP","content":{"parts":[{"text":"нет"}]}}]}`, "не содержит изображения"},
		{"без кандидатов", 200, `{"candidates":[]}`, "без кандидатов"},
		{"ошибка API", 429, `{"error":{"code":429,"message":"quota exceeded"}}`, "quota exceeded"},
		{"битый JSON", 200, `{`, "некорректный ответ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewGemini(GeminiConfig{APIKey: "k", BaseURL: srv.URL, Model: "m"}, srv.Client())
			_, err := g.Generate(context.Background(), testRequest(1))
			if !errors.Is(err, ErrGenerationFailed) {
				t.Fatalf("ожидалась ErrGenerationFailed, получено %v", err)
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("ошибка %q не содержит %q", err, tt.detail)
			}
		})
	}
}

// --- VW ---

func TestVW_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req vwRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		garment, _ := base64.StdEncoding.DecodeString(req.Garment)
		if string(garment) != "garment-0" {
			t.Errorf("ожидалась первая вещь, получено %q", garment)
		}
		if req.Part != "lower" || req.Token != "tok" {
			t.Errorf("part = %q, token = %q", req.Part, req.Token)
		}
		_ = json.NewEncoder(w).Encode(vwResponse{ImageBase64: base64.StdEncoding.EncodeToString([]byte("tryon"))})
	}))
	defer srv.Close()

	req := testRequest(2)
	req.Parts[0] = model.PartLower

	g := NewVW(VWFluxID, srv.URL, "tok", srv.Client())
	data, err := g.Generate(context.Background(), req)
	if err != nil || string(data) != "tryon" {
		t.Fatalf("Generate = %q, %v", data, err)
	}
}

// TestVW_DefaultPart — без части отправляется full_set.
func TestVW_DefaultPart(t *testing.T) {
	var gotPart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req vwRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotPart = req.Part
		_ = json.NewEncoder(w).Encode(vwResponse{ImageBase64: base64.StdEncoding.EncodeToString([]byte("x"))})
	}))
	defer srv.Close()

	g := NewVW(VWCatVTONID, srv.URL, "", srv.Client())
	if _, err := g.Generate(context.Background(), testRequest(1)); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPart != "full_set" {
		t.Errorf("part = %q, ожидался full_set", gotPart)
	}
}

func TestVW_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"HTTP 500", 500, "internal"},
		{"пустое изображение", 200, `{"image_base64":"","error":"no person detected"}`},
		{"битый base64", 200, `{"image_base64":"***"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewVW(VWFluxID, srv.URL, "", srv.Client())
			if _, err := g.Generate(context.Background(), testRequest(1)); !errors.Is(err, ErrGenerationFailed) {
				t.Errorf("ожидалась ErrGenerationFailed, получено %v", err)
			}
		})
	}
}

// --- FitRoom ---

// newFitRoomServer — сервер FitRoom: задача выполняется после pending опросов.
func newFitRoomServer(t *testing.T, pending int, final fitRoomStatus) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var polls atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tryon/v2/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ошибка разбора multipart: %v", err)
		}
		if r.FormValue("cloth_type") != "upper" || r.FormValue("hd_mode") != "false" {
			t.Errorf("cloth_type = %q, hd_mode = %q", r.FormValue("cloth_type"), r.FormValue("hd_mode"))
		}
		if _, _, err := r.FormFile("model_image"); err != nil {
			t.Error("отсутствует model_image")
		}
		if _, _, err := r.FormFile("cloth_image"); err != nil {
			t.Error("отсутствует cloth_image")
		}
		_, _ = w.Write([]byte(`{"task_id": 123456, "status": "CREATED"}`))
	})
	mux.HandleFunc("GET /api/tryon/v2/tasks/123456", func(w http.ResponseWriter, r *http.Request) {
		if int(polls.Add(1)) <= pending {
			_ = json.NewEncoder(w).Encode(fitRoomStatus{Status: "PROCESSING", Progress: 50})
			return
		}
		status := final
		if status.Status == "COMPLETED" {
			status.DownloadSignedURL = "http://" + r.Host + "/result.jpg"
		}
		_ = json.NewEncoder(w).Encode(status)
	})
	mux.HandleFunc("GET /result.jpg", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("fitroom-result"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func TestFitRoom_Completed(t *testing.T) {
	srv, polls := newFitRoomServer(t, 2, fitRoomStatus{Status: "COMPLETED"})

	g := NewFitRoom(FitRoomConfig{APIKey: "key", BaseURL: srv.URL, PollInterval: 5 * time.Millisecond, MaxPolls: 10}, srv.Client())
	data, err := g.Generate(context.Background(), testRequest(1))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if string(data) != "fitroom-result" {
		t.Errorf("результат = %q", data)
	}
	if polls.Load() != 3 {
		t.Errorf("опросов = %d, ожидалось 3", polls.Load())
	}
}

func TestFitRoom_Failed(t *testing.T) {
	srv, _ := newFitRoomServer(t, 0, fitRoomStatus{Status: "FAILED", Error: "pose not supported"})

	g := NewFitRoom(FitRoomConfig{APIKey: "key", BaseURL: srv.URL, PollInterval: time.Millisecond, MaxPolls: 5}, srv.Client())
	_, err := g.Generate(context.Background(), testRequest(1))
	if !errors.Is(err, ErrGenerationFailed) || !strings.Contains(err.Error(), "pose not supported") {
		t.Errorf("ожидалась ErrGenerationFailed с причиной, получено %v", err)
	}
}

// TestFitRoom_PollLimit — задача не завершилась за MaxPolls опросов.
func TestFitRoom_PollLimit(t *testing.T) {
	srv, polls := newFitRoomServer(t, 100, fitRoomStatus{})

	g := NewFitRoom(FitRoomConfig{APIKey: "key", BaseURL: srv.URL, PollInterval: time.Millisecond, MaxPolls: 3}, srv.Client())
	if _, err := g.Generate(context.Background(), testRequest(1)); !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("ожидалась ErrGenerationFailed, получено %v", err)
	}
	if polls.Load() != 3 {
		t.Errorf("опросов = %d, ожидалось 3", polls.Load())
	}
}

func TestFitRoom_Unauthorized(t *testing.T) {
	srv, _ := newFitRoomServer(t, 0, fitRoomStatus{})

	g := NewFitRoom(FitRoomConfig{APIKey: "wrong", BaseURL: srv.URL, PollInterval: time.Millisecond, MaxPolls: 1}, srv.Client())
	if _, err := g.Generate(context.Background(), testRequest(1)); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("ожидалась ErrGenerationFailed, получено %v", err)
	}
}

// --- Fake ---

func TestFake_Deterministic(t *testing.T) {
	g := NewFake()
	ctx := context.Background()

	a, err := g.Generate(ctx, testRequest(2))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, _ := g.Generate(ctx, testRequest(2))
	if !bytes.Equal(a, b) {
		t.Error("одинаковый вход должен давать одинаковый результат")
	}
	if _, err := jpeg.Decode(bytes.NewReader(a)); err != nil {
		t.Errorf("результат не является JPEG: %v", err)
	}

	if _, err := g.Generate(ctx, testRequest(0)); !errors.Is(err, ErrGenerationFailed) {
		t.Errorf("без вещей ожидалась ErrGenerationFailed, получено %v", err)
	}
}
