// assets.go — обработчики /api/v1/assets endpoints.
// Инициализация загрузки, подтверждение, выборка и выдача URL скачивания.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/fitting-module/internal/api/generated"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/service"
)

// InitUpload — POST /api/v1/assets/uploads.
func (h *APIHandler) InitUpload(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req generated.UploadInitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ticket, err := h.assets.InitUpload(r.Context(), owner, toUploadRequest(req))
	if err != nil {
		h.writeServiceError(w, "init_upload", err)
		return
	}

	writeJSON(w, http.StatusCreated, mapTicket(ticket))
}

// InitUploadBatch — POST /api/v1/assets/uploads/batch.
// Пакет принимается целиком или отклоняется целиком.
func (h *APIHandler) InitUploadBatch(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req generated.BatchUploadInitRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reqs := make([]service.UploadRequest, len(req.Files))
	for i, f := range req.Files {
		reqs[i] = toUploadRequest(f)
	}

	tickets, err := h.assets.InitUploadBatch(r.Context(), owner, reqs)
	if err != nil {
		h.writeServiceError(w, "init_upload_batch", err)
		return
	}

	resp := generated.BatchUploadInitResponse{Items: make([]generated.UploadInitResponse, len(tickets))}
	for i, t := range tickets {
		resp.Items[i] = mapTicket(t)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAssets — GET /api/v1/assets.
func (h *APIHandler) ListAssets(w http.ResponseWriter, r *http.Request, params generated.ListAssetsParams) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	limit, offset := paginationDefaults(params.Limit, params.Offset)
	q := service.ListQuery{
		Limit:    limit,
		Offset:   offset,
		WithURLs: params.WithUrls != nil && *params.WithUrls,
	}
	if params.Category != nil {
		c := model.Category(*params.Category)
		q.Category = &c
	}
	if params.Status != nil {
		s := model.Status(*params.Status)
		q.Status = &s
	}

	result, err := h.assets.ListAssets(r.Context(), owner, q)
	if err != nil {
		h.writeServiceError(w, "list_assets", err)
		return
	}

	resp := generated.AssetListResponse{
		Items:  make([]generated.Asset, len(result.Items)),
		Total:  result.Total,
		Limit:  result.Limit,
		Offset: result.Offset,
	}
	for i, a := range result.Items {
		resp.Items[i] = mapAsset(a, result.URLs[a.ID])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetAsset — GET /api/v1/assets/{assetId}.
func (h *APIHandler) GetAsset(w http.ResponseWriter, r *http.Request, assetID generated.AssetId) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	asset, err := h.assets.GetAsset(r.Context(), owner, assetID)
	if err != nil {
		h.writeServiceError(w, "get_asset", err)
		return
	}
	writeJSON(w, http.StatusOK, mapAsset(asset, ""))
}

// ConfirmUpload — POST /api/v1/assets/{assetId}/confirm.
func (h *APIHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request, assetID generated.AssetId) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	asset, err := h.assets.ConfirmUpload(r.Context(), owner, assetID)
	if err != nil {
		h.writeServiceError(w, "confirm_upload", err)
		return
	}
	writeJSON(w, http.StatusOK, mapAsset(asset, ""))
}

// FailUpload — POST /api/v1/assets/{assetId}/fail.
func (h *APIHandler) FailUpload(w http.ResponseWriter, r *http.Request, assetID generated.AssetId) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	asset, err := h.assets.FailUpload(r.Context(), owner, assetID)
	if err != nil {
		h.writeServiceError(w, "fail_upload", err)
		return
	}
	writeJSON(w, http.StatusOK, mapAsset(asset, ""))
}

// GetDownloadUrl — GET /api/v1/assets/{assetId}/download-url.
// expiresIn — гарантированный минимум срока действия URL, а не точное значение.
func (h *APIHandler) GetDownloadUrl(w http.ResponseWriter, r *http.Request, assetID generated.AssetId) { //nolint:revive // имя из ServerInterface
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	url, err := h.assets.GetDownloadURL(r.Context(), owner, assetID)
	if err != nil {
		h.writeServiceError(w, "get_download_url", err)
		return
	}
	writeJSON(w, http.StatusOK, generated.DownloadUrlResponse{
		Url:       url,
		ExpiresIn: int(h.assets.MinURLValidity().Seconds()),
	})
}

// toUploadRequest преобразует запрос API в параметры сервиса.
func toUploadRequest(req generated.UploadInitRequest) service.UploadRequest {
	u := service.UploadRequest{
		Category: req.Category,
		Filename: req.Filename,
		Size:     req.Size,
	}
	if req.ContentType != nil {
		u.ContentType = *req.ContentType
	}
	return u
}

// mapTicket преобразует созданную загрузку в ответ API.
func mapTicket(t *service.UploadTicket) generated.UploadInitResponse {
	return generated.UploadInitResponse{
		Asset:     mapAsset(t.Asset, ""),
		UploadUrl: t.UploadURL,
	}
}
