package generator

import (
	"log/slog"
	"net/http"
)

// Config — параметры всех генераторов.
// Генератор регистрируется только при заданных учётных данных.
type Config struct {
	Gemini       GeminiConfig
	VWFluxURL    string
	VWCatVTONURL string
	VWToken      string
	FitRoom      FitRoomConfig
	FakeEnabled  bool
}

// NewRegistryFromConfig собирает реестр из настроенных генераторов.
func NewRegistryFromConfig(cfg Config, client *http.Client, logger *slog.Logger) (*Registry, error) {
	reg := NewRegistry(logger)

	type entry struct {
		id      string
		enabled bool
		build   func() Generator
	}
	entries := []entry{
		{GeminiID, cfg.Gemini.APIKey != "", func() Generator { return NewGemini(cfg.Gemini, client) }},
		{VWFluxID, cfg.VWFluxURL != "", func() Generator { return NewVW(VWFluxID, cfg.VWFluxURL, cfg.VWToken, client) }},
		{VWCatVTONID, cfg.VWCatVTONURL != "", func() Generator { return NewVW(VWCatVTONID, cfg.VWCatVTONURL, cfg.VWToken, client) }},
		{FitRoomID, cfg.FitRoom.APIKey != "", func() Generator { return NewFitRoom(cfg.FitRoom, client) }},
		{FakeID, cfg.FakeEnabled, func() Generator { return NewFake() }},
	}

	for _, e := range entries {
		if !e.enabled {
			continue
		}
		if err := reg.Register(e.id, e.build()); err != nil {
			return nil, err
		}
	}

	if len(reg.IDs()) == 0 {
		logger.Warn("Ни один генератор не настроен, генерация будет недоступна")
	}
	return reg, nil
}
