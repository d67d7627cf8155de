package handlers

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockAssets — мок AssetManager с fn-полями.
type mockAssets struct {
	initUploadFn      func(ctx context.Context, owner string, req service.UploadRequest) (*service.UploadTicket, error)
	initUploadBatchFn func(ctx context.Context, owner string, reqs []service.UploadRequest) ([]*service.UploadTicket, error)
	confirmUploadFn   func(ctx context.Context, owner, assetID string) (*model.Asset, error)
	failUploadFn      func(ctx context.Context, owner, assetID string) (*model.Asset, error)
	getAssetFn        func(ctx context.Context, owner, assetID string) (*model.Asset, error)
	getDownloadURLFn  func(ctx context.Context, owner, assetID string) (string, error)
	listAssetsFn      func(ctx context.Context, owner string, q service.ListQuery) (*service.ListResult, error)
	minURLValidity    time.Duration
}

func (m *mockAssets) InitUpload(ctx context.Context, owner string, req service.UploadRequest) (*service.UploadTicket, error) {
	return m.initUploadFn(ctx, owner, req)
}

func (m *mockAssets) InitUploadBatch(ctx context.Context, owner string, reqs []service.UploadRequest) ([]*service.UploadTicket, error) {
	return m.initUploadBatchFn(ctx, owner, reqs)
}

func (m *mockAssets) ConfirmUpload(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	return m.confirmUploadFn(ctx, owner, assetID)
}

func (m *mockAssets) FailUpload(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	return m.failUploadFn(ctx, owner, assetID)
}

func (m *mockAssets) GetAsset(ctx context.Context, owner, assetID string) (*model.Asset, error) {
	return m.getAssetFn(ctx, owner, assetID)
}

func (m *mockAssets) GetDownloadURL(ctx context.Context, owner, assetID string) (string, error) {
	return m.getDownloadURLFn(ctx, owner, assetID)
}

func (m *mockAssets) ListAssets(ctx context.Context, owner string, q service.ListQuery) (*service.ListResult, error) {
	return m.listAssetsFn(ctx, owner, q)
}

func (m *mockAssets) MinURLValidity() time.Duration {
	return m.minURLValidity
}

// mockGenerations — мок GenerationRunner.
type mockGenerations struct {
	generateFn func(ctx context.Context, owner string, req service.GenerationRequest) (*model.Asset, error)
}

func (m *mockGenerations) Generate(ctx context.Context, owner string, req service.GenerationRequest) (*model.Asset, error) {
	return m.generateFn(ctx, owner, req)
}

// mockCatalog — мок GeneratorCatalog.
type mockCatalog struct {
	ids []string
}

func (m *mockCatalog) IDs() []string {
	return m.ids
}

// mockChecker — мок ReadinessChecker.
type mockChecker struct {
	status  string
	message string
}

func (m *mockChecker) CheckReady() (status, message string) {
	return m.status, m.message
}
