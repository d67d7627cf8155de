package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Mocks ---

type mockAssets struct {
	mu       sync.Mutex
	assets   map[string]*model.Asset
	urlErr   error
	recorded map[string]model.Part
}

func newMockAssets(assets ...*model.Asset) *mockAssets {
	m := &mockAssets{assets: make(map[string]*model.Asset), recorded: make(map[string]model.Part)}
	for _, a := range assets {
		m.assets[a.ID] = a
	}
	return m
}

func (m *mockAssets) GetAssetByID(_ context.Context, id string) (*model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return a, nil
}

func (m *mockAssets) DownloadURL(_ context.Context, a *model.Asset) (string, error) {
	if m.urlErr != nil {
		return "", m.urlErr
	}
	return "download://" + a.StorageKey, nil
}

func (m *mockAssets) RecordDetectedPart(_ context.Context, id string, part model.Part) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recorded[id] = part
	return nil
}

func (m *mockAssets) recordedPart(id string) (model.Part, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.recorded[id]
	return p, ok
}

type mockFetcher struct {
	getObjectFn func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) GetObject(ctx context.Context, url string) ([]byte, error) {
	if m.getObjectFn != nil {
		return m.getObjectFn(ctx, url)
	}
	return []byte("image"), nil
}

type mockClassifier struct {
	classifyFn func(ctx context.Context, image []byte, contentType, instruction string) (string, error)
}

func (m *mockClassifier) Classify(ctx context.Context, image []byte, contentType, instruction string) (string, error) {
	return m.classifyFn(ctx, image, contentType, instruction)
}

func labelClassifier(label string) *mockClassifier {
	return &mockClassifier{classifyFn: func(context.Context, []byte, string, string) (string, error) {
		return label, nil
	}}
}

func garment(id string) *model.Asset {
	return &model.Asset{
		ID: id, Owner: "u", Category: model.CategoryGarment, Status: model.StatusUploaded,
		StorageKey: "u/garment/" + id + ".jpg", ContentType: "image/jpeg",
	}
}

func newTestWorker(q *Queue, assets AssetSource, fetcher ObjectFetcher, cls Classifier) *Worker {
	return NewWorker(q, assets, fetcher, cls, 2, time.Second, testLogger())
}

// --- Tests ---

func TestOnClassificationItem(t *testing.T) {
	upper := model.PartUpper
	classified := garment("g-done")
	classified.DetectedPart = &upper
	pending := garment("g-pending")
	pending.Status = model.StatusPending
	body := garment("b")
	body.Category = model.CategoryBody

	tests := []struct {
		name       string
		asset      *model.Asset
		assetID    string
		fetcher    *mockFetcher
		classifier *mockClassifier
		urlErr     error
		wantResult string
		wantPart   model.Part
	}{
		{name: "успех", asset: garment("g1"), assetID: "g1", classifier: labelClassifier("Lower."), wantResult: resultOK, wantPart: model.PartLower},
		{name: "ассет не найден", assetID: "missing", classifier: labelClassifier("upper"), wantResult: resultFailed},
		{name: "не одежда", asset: body, assetID: "b", classifier: labelClassifier("upper"), wantResult: resultSkipped},
		{name: "не загружен", asset: pending, assetID: "g-pending", classifier: labelClassifier("upper"), wantResult: resultSkipped},
		{name: "часть уже задана", asset: classified, assetID: "g-done", classifier: labelClassifier("lower"), wantResult: resultSkipped},
		{name: "недопустимая метка", asset: garment("g2"), assetID: "g2", classifier: labelClassifier("hat"), wantResult: resultInvalidLabel},
		{name: "URL не выдан", asset: garment("g3"), assetID: "g3", urlErr: errors.New("storage down"), classifier: labelClassifier("upper"), wantResult: resultFailed},
		{
			name: "ошибка скачивания", asset: garment("g4"), assetID: "g4",
			fetcher: &mockFetcher{getObjectFn: func(context.Context, string) ([]byte, error) {
				return nil, errors.New("404")
			}},
			classifier: labelClassifier("upper"), wantResult: resultFailed,
		},
		{
			name: "ошибка классификатора", asset: garment("g5"), assetID: "g5",
			classifier: &mockClassifier{classifyFn: func(context.Context, []byte, string, string) (string, error) {
				return "", errors.New("rate limited")
			}},
			wantResult: resultFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var assets *mockAssets
			if tt.asset != nil {
				assets = newMockAssets(tt.asset)
			} else {
				assets = newMockAssets()
			}
			assets.urlErr = tt.urlErr
			fetcher := tt.fetcher
			if fetcher == nil {
				fetcher = &mockFetcher{}
			}

			w := newTestWorker(NewQueue(1, testLogger()), assets, fetcher, tt.classifier)
			if got := w.OnClassificationItem(context.Background(), tt.assetID); got != tt.wantResult {
				t.Errorf("результат = %s, ожидался %s", got, tt.wantResult)
			}

			part, recorded := assets.recordedPart(tt.assetID)
			if tt.wantPart != "" {
				if !recorded || part != tt.wantPart {
					t.Errorf("записана часть %q, ожидалась %q", part, tt.wantPart)
				}
			} else if recorded {
				t.Errorf("часть не должна записываться, записана %q", part)
			}
		})
	}
}

// TestOnClassificationItem_PassesInstruction — классификатор получает изображение и инструкцию.
func TestOnClassificationItem_PassesInstruction(t *testing.T) {
	var gotImage, gotType, gotInstruction string
	cls := &mockClassifier{classifyFn: func(_ context.Context, image []byte, contentType, instruction string) (string, error) {
		gotImage, gotType, gotInstruction = string(image), contentType, instruction
		return "upper", nil
	}}
	w := newTestWorker(NewQueue(1, testLogger()), newMockAssets(garment("g1")), &mockFetcher{}, cls)

	w.OnClassificationItem(context.Background(), "g1")
	if gotImage != "image" || gotType != "image/jpeg" || gotInstruction != Instruction {
		t.Errorf("image = %q, type = %q, instruction совпадает = %v", gotImage, gotType, gotInstruction == Instruction)
	}
}

func TestQueue_DropsWhenFull(t *testing.T) {
	q := NewQueue(2, testLogger())
	q.EnqueueClassification("a")
	q.EnqueueClassification("b")
	q.EnqueueClassification("c")

	if q.Len() != 2 {
		t.Errorf("Len = %d, ожидалось 2", q.Len())
	}
}

// TestWorker_ProcessesQueue — задачи из очереди обрабатываются воркерами.
func TestWorker_ProcessesQueue(t *testing.T) {
	ids := []string{"g1", "g2", "g3", "g4", "g5"}
	assets := make([]*model.Asset, len(ids))
	for i, id := range ids {
		assets[i] = garment(id)
	}
	src := newMockAssets(assets...)
	q := NewQueue(10, testLogger())
	w := newTestWorker(q, src, &mockFetcher{}, labelClassifier("full_set"))

	w.Start(context.Background())
	for _, id := range ids {
		q.EnqueueClassification(id)
	}

	deadline := time.After(2 * time.Second)
	for {
		done := 0
		for _, id := range ids {
			if _, ok := src.recordedPart(id); ok {
				done++
			}
		}
		if done == len(ids) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("обработано %d из %d задач", done, len(ids))
		case <-time.After(10 * time.Millisecond):
		}
	}
	w.Stop()
}

// TestWorker_StopFinishesCurrentItem — Stop ждёт завершения начатой задачи.
func TestWorker_StopFinishesCurrentItem(t *testing.T) {
	started := make(chan struct{})
	cls := &mockClassifier{classifyFn: func(ctx context.Context, _ []byte, _, _ string) (string, error) {
		close(started)
		select {
		case <-time.After(50 * time.Millisecond):
			return "upper", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	src := newMockAssets(garment("g1"))
	q := NewQueue(1, testLogger())
	w := NewWorker(q, src, &mockFetcher{}, cls, 1, time.Second, testLogger())

	w.Start(context.Background())
	q.EnqueueClassification("g1")
	<-started
	w.Stop()

	if part, ok := src.recordedPart("g1"); !ok || part != model.PartUpper {
		t.Errorf("начатая задача должна завершиться, записано %q", part)
	}
}

func TestNopQueue_CountsSkipped(t *testing.T) {
	before := testutil.ToFloat64(classificationTotal.WithLabelValues(resultSkipped))
	var q NopQueue
	q.EnqueueClassification("a1")
	q.EnqueueClassification("a2")

	if got := testutil.ToFloat64(classificationTotal.WithLabelValues(resultSkipped)) - before; got != 2 {
		t.Errorf("skipped += %v, ожидалось 2", got)
	}
}
