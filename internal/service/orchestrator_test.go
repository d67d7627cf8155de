package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/generator"
	"github.com/bigkaa/goartstore/fitting-module/internal/urlcache"
)

// genEnv — оркестратор генерации поверх assetEnv.
type genEnv struct {
	*assetEnv
	gen        *GenerationService
	dispatcher *mockDispatcher
}

func newGenEnv(t *testing.T) *genEnv {
	t.Helper()
	env := newAssetEnv(t, testAssetConfig(), nil)
	d := newMockDispatcher("fake", "gemini")
	return &genEnv{
		assetEnv:   env,
		gen:        NewGenerationService(env.svc, env.gateway, d, testLogger()),
		dispatcher: d,
	}
}

func (e *genEnv) garments(t *testing.T, n int) []string {
	t.Helper()
	ids := make([]string, n)
	for i := range ids {
		ids[i] = e.uploaded(t, testOwner, model.CategoryGarment, "g.jpg").ID
	}
	return ids
}

// TestGenerate_GarmentCount — 0 и 4 вещи отклоняются, 1..3 принимаются.
func TestGenerate_GarmentCount(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4} {
		env := newGenEnv(t)
		body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
		before := env.repo.count()

		asset, err := env.gen.Generate(context.Background(), testOwner, GenerationRequest{
			BodyAssetID:     body.ID,
			GarmentAssetIDs: env.garments(t, n),
			GeneratorID:     "fake",
		})

		if n == 0 || n == 4 {
			if !errors.Is(err, ErrTooManyGarments) {
				t.Errorf("%d вещей: ожидалась ErrTooManyGarments, получено %v", n, err)
			}
			if env.dispatcher.callCount() != 0 || env.gateway.fetchCount() != 0 {
				t.Errorf("%d вещей: генератор и хранилище не должны вызываться", n)
			}
			continue
		}
		if err != nil {
			t.Errorf("%d вещей: %v", n, err)
			continue
		}
		if asset.Category != model.CategoryGenerated || asset.Status != model.StatusUploaded {
			t.Errorf("%d вещей: получен %s/%s", n, asset.Category, asset.Status)
		}
		if env.repo.count() != before+n+1 {
			t.Errorf("%d вещей: ожидалась одна новая запись", n)
		}
	}
}

// TestGenerate_EndToEnd — B + G1 + G2 → новый ассет с отдельным ключом.
func TestGenerate_EndToEnd(t *testing.T) {
	env := newGenEnv(t)
	ctx := context.Background()
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
	g1 := env.uploaded(t, testOwner, model.CategoryGarment, "g1.jpg")
	g2 := env.uploaded(t, testOwner, model.CategoryGarment, "g2.jpg")
	env.repo.setPart(g1.ID, model.PartUpper)

	asset, err := env.gen.Generate(ctx, testOwner, GenerationRequest{
		BodyAssetID:     body.ID,
		GarmentAssetIDs: []string{g1.ID, g2.ID},
		GeneratorID:     "gemini",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	for _, src := range []*model.Asset{body, g1, g2} {
		if asset.ID == src.ID || asset.StorageKey == src.StorageKey {
			t.Errorf("результат совпадает с исходным ассетом %s", src.ID)
		}
	}
	if !strings.HasPrefix(asset.StorageKey, testOwner+"/generated/") {
		t.Errorf("storage_key = %s", asset.StorageKey)
	}
	if asset.ContentType != "image/jpeg" {
		t.Errorf("content_type = %s", asset.ContentType)
	}
	if _, ok := env.gateway.objects[asset.StorageKey]; !ok {
		t.Error("результат не записан в хранилище")
	}

	// Порядок изображений: человек, затем вещи в порядке запроса
	req := env.dispatcher.lastReq
	if string(req.Body.Data) != "image:b.jpg" {
		t.Errorf("body = %q", req.Body.Data)
	}
	if len(req.Garments) != 2 || string(req.Garments[0].Data) != "image:g1.jpg" || string(req.Garments[1].Data) != "image:g2.jpg" {
		t.Error("неверный порядок вещей")
	}
	if req.Parts[0] != model.PartUpper || req.Parts[1] != "" {
		t.Errorf("parts = %v", req.Parts)
	}
	if req.Prompt == "" {
		t.Error("пустой промпт")
	}

	// Результат доступен как обычный ассет
	result, err := env.svc.ListAssets(ctx, testOwner, ListQuery{Limit: 10})
	if err != nil {
		t.Fatalf("ListAssets: %v", err)
	}
	if result.Items[0].ID != asset.ID {
		t.Error("сгенерированный ассет должен быть первым в выборке")
	}
	if _, err := env.svc.GetDownloadURL(ctx, testOwner, asset.ID); err != nil {
		t.Errorf("GetDownloadURL: %v", err)
	}
}

// TestGenerate_PartsMismatch — ошибка до скачивания и вызова генератора.
func TestGenerate_PartsMismatch(t *testing.T) {
	env := newGenEnv(t)
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")

	_, err := env.gen.Generate(context.Background(), testOwner, GenerationRequest{
		BodyAssetID:     body.ID,
		GarmentAssetIDs: env.garments(t, 2),
		GeneratorID:     "fake",
		PartsOverride:   []string{"upper"},
	})
	if !errors.Is(err, ErrPartsLengthMismatch) {
		t.Fatalf("ожидалась ErrPartsLengthMismatch, получено %v", err)
	}
	if env.gateway.fetchCount() != 0 || env.dispatcher.callCount() != 0 {
		t.Error("скачивание и генерация не должны начинаться")
	}
}

// TestGenerate_UnknownGenerator — запись не создаётся.
func TestGenerate_UnknownGenerator(t *testing.T) {
	env := newGenEnv(t)
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
	garments := env.garments(t, 1)
	before := env.repo.count()

	_, err := env.gen.Generate(context.Background(), testOwner, GenerationRequest{
		BodyAssetID: body.ID, GarmentAssetIDs: garments, GeneratorID: "midjourney",
	})
	if !errors.Is(err, ErrUnknownGenerator) {
		t.Fatalf("ожидалась ErrUnknownGenerator, получено %v", err)
	}
	if env.repo.count() != before || env.gateway.fetchCount() != 0 {
		t.Error("запись не должна создаваться, скачивание не должно начинаться")
	}
}

// TestGenerate_ValidationOrder — первая по порядку ошибка побеждает.
func TestGenerate_ValidationOrder(t *testing.T) {
	env := newGenEnv(t)
	ctx := context.Background()
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
	garment := env.uploaded(t, testOwner, model.CategoryGarment, "g.jpg")
	pendingBody, _ := env.svc.InitUpload(ctx, testOwner, UploadRequest{Category: "body", Filename: "p.jpg", Size: 1})
	foreign := env.uploaded(t, "user-2", model.CategoryGarment, "f.jpg")

	tests := []struct {
		name    string
		req     GenerationRequest
		wantErr error
	}{
		{
			name:    "body не загружен, остальное тоже неверно",
			req:     GenerationRequest{BodyAssetID: pendingBody.Asset.ID, GarmentAssetIDs: nil, GeneratorID: "nope"},
			wantErr: ErrInvalidBodyAsset,
		},
		{
			name:    "body другой категории",
			req:     GenerationRequest{BodyAssetID: garment.ID, GarmentAssetIDs: []string{garment.ID}, GeneratorID: "fake"},
			wantErr: ErrInvalidBodyAsset,
		},
		{
			name:    "чужая вещь раньше количества",
			req:     GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: []string{foreign.ID, garment.ID, garment.ID, garment.ID}, GeneratorID: "nope"},
			wantErr: ErrInvalidGarmentAsset,
		},
		{
			name:    "вещь категории body",
			req:     GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: []string{body.ID}, GeneratorID: "fake"},
			wantErr: ErrInvalidGarmentAsset,
		},
		{
			name:    "количество раньше длины переопределений",
			req:     GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: []string{garment.ID, garment.ID, garment.ID, garment.ID}, GeneratorID: "nope", PartsOverride: []string{"upper"}},
			wantErr: ErrTooManyGarments,
		},
		{
			name:    "длина переопределений раньше генератора",
			req:     GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: []string{garment.ID}, GeneratorID: "nope", PartsOverride: []string{}},
			wantErr: ErrPartsLengthMismatch,
		},
		{
			name:    "недопустимое значение части",
			req:     GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: []string{garment.ID}, GeneratorID: "nope", PartsOverride: []string{"hat"}},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gen.Generate(ctx, testOwner, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ожидалась %v, получено %v", tt.wantErr, err)
			}
		})
	}
}

// TestGenerate_Failures — ошибка скачивания или генерации не создаёт запись.
func TestGenerate_Failures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(e *genEnv)
	}{
		{"ошибка генератора", func(e *genEnv) {
			e.dispatcher.err = errors.New("model overloaded")
		}},
		{"ошибка скачивания", func(e *genEnv) {
			e.gateway.getErr = blobstore.ErrStorageUnavailable
		}},
		{"ошибка сохранения результата", func(e *genEnv) {
			e.gateway.putErr = blobstore.ErrStorageUnavailable
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newGenEnv(t)
			body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
			garments := env.garments(t, 1)
			before := env.repo.count()
			tt.setup(env)

			_, err := env.gen.Generate(context.Background(), testOwner, GenerationRequest{
				BodyAssetID: body.ID, GarmentAssetIDs: garments, GeneratorID: "fake",
			})
			if !errors.Is(err, ErrGenerationFailed) {
				t.Errorf("ожидалась ErrGenerationFailed, получено %v", err)
			}
			var genErr *generator.GenerationError
			if !errors.As(err, &genErr) || genErr.Generator != "fake" {
				t.Errorf("ожидалась GenerationError генератора fake, получено %v", err)
			}
			if env.repo.count() != before {
				t.Error("запись ассета не должна создаваться")
			}
		})
	}
}

// TestGenerate_CachedSourceURLs — исходные URL берутся из кэша.
func TestGenerate_CachedSourceURLs(t *testing.T) {
	env := newGenEnv(t)
	ctx := context.Background()
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
	garments := env.garments(t, 1)

	req := GenerationRequest{BodyAssetID: body.ID, GarmentAssetIDs: garments, GeneratorID: "fake"}
	for i := 0; i < 2; i++ {
		if _, err := env.gen.Generate(ctx, testOwner, req); err != nil {
			t.Fatalf("Generate: %v", err)
		}
	}
	if n := env.gateway.downloadMints(body.StorageKey); n != 1 {
		t.Errorf("выпусков URL для body = %d, ожидался 1", n)
	}
	cached, ok, _ := env.svc.cache.Get(ctx, urlcache.Key(testOwner, body.ID, urlcache.DirectionDownload))
	if !ok || cached == "" {
		t.Error("URL body должен быть в кэше")
	}
}

// TestEffectiveParts — переопределение → сохранённое значение → не определена.
func TestEffectiveParts(t *testing.T) {
	upper := model.PartUpper
	stored := &model.Asset{DetectedPart: &upper}
	unknown := &model.Asset{}

	tests := []struct {
		name      string
		garments  []*model.Asset
		overrides []model.Part
		want      []model.Part
	}{
		{"переопределение побеждает сохранённое", []*model.Asset{stored}, []model.Part{model.PartLower}, []model.Part{model.PartLower}},
		{"сохранённое без переопределения", []*model.Asset{stored}, nil, []model.Part{model.PartUpper}},
		{"пустое переопределение", []*model.Asset{stored}, []model.Part{""}, []model.Part{model.PartUpper}},
		{"ничего не известно", []*model.Asset{unknown}, nil, []model.Part{""}},
		{"переопределение без сохранённого", []*model.Asset{unknown}, []model.Part{model.PartFullSet}, []model.Part{model.PartFullSet}},
		{"смешанный список", []*model.Asset{stored, unknown}, []model.Part{"", model.PartLower}, []model.Part{model.PartUpper, model.PartLower}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EffectiveParts(tt.garments, tt.overrides)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, ожидалось %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %q, ожидалось %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// TestGenerate_OverrideNotPersisted — переопределение действует только на запрос.
func TestGenerate_OverrideNotPersisted(t *testing.T) {
	env := newGenEnv(t)
	ctx := context.Background()
	body := env.uploaded(t, testOwner, model.CategoryBody, "b.jpg")
	garments := env.garments(t, 1)

	_, err := env.gen.Generate(ctx, testOwner, GenerationRequest{
		BodyAssetID: body.ID, GarmentAssetIDs: garments, GeneratorID: "fake",
		PartsOverride: []string{"lower"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if env.dispatcher.lastReq.Parts[0] != model.PartLower {
		t.Errorf("parts = %v", env.dispatcher.lastReq.Parts)
	}
	g, _ := env.svc.GetAsset(ctx, testOwner, garments[0])
	if g.DetectedPart != nil {
		t.Error("переопределение не должно сохраняться в ассете")
	}
}
