// generations.go — обработчики генерации изображений.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/bigkaa/goartstore/fitting-module/internal/api/generated"
	"github.com/bigkaa/goartstore/fitting-module/internal/service"
)

// CreateGeneration — POST /api/v1/generations.
// Синхронный вызов генератора, ограниченный generationTimeout.
// Отключение клиента не прерывает уже начатую генерацию.
func (h *APIHandler) CreateGeneration(w http.ResponseWriter, r *http.Request) {
	owner, ok := requireOwner(w, r)
	if !ok {
		return
	}

	var req generated.GenerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	genReq := service.GenerationRequest{
		BodyAssetID:     req.BodyAssetId,
		GarmentAssetIDs: req.GarmentAssetIds,
		GeneratorID:     req.GeneratorId,
	}
	if req.PartsOverride != nil {
		genReq.PartsOverride = make([]string, len(*req.PartsOverride))
		for i, p := range *req.PartsOverride {
			if p != nil {
				genReq.PartsOverride[i] = *p
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.generationTimeout)
	defer cancel()

	asset, err := h.generations.Generate(ctx, owner, genReq)
	if err != nil {
		h.writeServiceError(w, "create_generation", err)
		return
	}

	h.logger.Info("Изображение сгенерировано",
		slog.String("asset_id", asset.ID),
		slog.String("generator", req.GeneratorId),
		slog.Int("garments", len(req.GarmentAssetIds)),
	)
	writeJSON(w, http.StatusCreated, mapAsset(asset, ""))
}

// ListGenerators — GET /api/v1/generators.
func (h *APIHandler) ListGenerators(w http.ResponseWriter, _ *http.Request) {
	ids := h.generators.IDs()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, generated.GeneratorListResponse{Generators: ids})
}
