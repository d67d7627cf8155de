package generator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// Идентификаторы генераторов семейства VW.
const (
	VWFluxID    = "vwflux"
	VWCatVTONID = "vwcatvton"
)

// VW — генератор виртуальной примерки с JSON API
// (vwflux, vwcatvton): одна вещь за запрос, изображения в base64.
type VW struct {
	id       string
	endpoint string
	token    string
	client   *http.Client
}

// NewVW создаёт генератор семейства VW.
func NewVW(id, endpoint, token string, client *http.Client) *VW {
	return &VW{id: id, endpoint: endpoint, token: token, client: client}
}

type vwRequest struct {
	Image   string `json:"image"`
	Garment string `json:"garment"`
	Part    string `json:"part"`
	Token   string `json:"token"`
}

type vwResponse struct {
	ImageBase64 string `json:"image_base64"`
	Error       string `json:"error,omitempty"`
}

// Generate примеряет первую вещь из запроса. Промпт провайдером не используется.
func (g *VW) Generate(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Garments) == 0 {
		return nil, fail(g.id, "нет изображения одежды", nil)
	}

	part := model.PartFullSet
	if len(req.Parts) > 0 && req.Parts[0] != "" {
		part = req.Parts[0]
	}

	body, err := json.Marshal(vwRequest{
		Image:   base64.StdEncoding.EncodeToString(req.Body.Data),
		Garment: base64.StdEncoding.EncodeToString(req.Garments[0].Data),
		Part:    string(part),
		Token:   g.token,
	})
	if err != nil {
		return nil, fail(g.id, "ошибка сериализации запроса", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fail(g.id, "ошибка создания запроса", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fail(g.id, "провайдер недоступен", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fail(g.id, fmt.Sprintf("статус %d: %s", resp.StatusCode, bytes.TrimSpace(data)), nil)
	}

	var out vwResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fail(g.id, "некорректный ответ", err)
	}
	if out.ImageBase64 == "" {
		detail := "ответ не содержит изображения"
		if out.Error != "" {
			detail += ": " + out.Error
		}
		return nil, fail(g.id, detail, nil)
	}

	data, err := base64.StdEncoding.DecodeString(out.ImageBase64)
	if err != nil {
		return nil, fail(g.id, "некорректные данные изображения", err)
	}
	return data, nil
}
