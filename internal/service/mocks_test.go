package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
	"github.com/bigkaa/goartstore/fitting-module/internal/generator"
	"github.com/bigkaa/goartstore/fitting-module/internal/repository"
	"github.com/bigkaa/goartstore/fitting-module/internal/urlcache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- In-memory репозиторий ---

// memAssetRepo — AssetRepository в памяти с CAS-семантикой под мьютексом.
type memAssetRepo struct {
	mu     sync.Mutex
	assets map[string]*model.Asset
	clock  time.Time
	// createErr — ошибка, возвращаемая Create (если задана)
	createErr error
}

func newMemAssetRepo() *memAssetRepo {
	return &memAssetRepo{
		assets: make(map[string]*model.Asset),
		clock:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func clone(a *model.Asset) *model.Asset {
	c := *a
	if a.DetectedPart != nil {
		p := *a.DetectedPart
		c.DetectedPart = &p
	}
	return &c
}

func (r *memAssetRepo) Create(_ context.Context, a *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.assets[a.ID]; exists {
		return repository.ErrConflict
	}
	for _, existing := range r.assets {
		if existing.StorageKey == a.StorageKey {
			return repository.ErrConflict
		}
	}
	// Каждая запись создаётся на секунду позже предыдущей
	r.clock = r.clock.Add(time.Second)
	a.CreatedAt, a.UpdatedAt = r.clock, r.clock
	r.assets[a.ID] = clone(a)
	return nil
}

func (r *memAssetRepo) GetByID(_ context.Context, id string) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (r *memAssetRepo) GetByOwner(_ context.Context, owner, id string) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.Owner != owner {
		return nil, repository.ErrNotFound
	}
	return clone(a), nil
}

func (r *memAssetRepo) GetManyByOwner(_ context.Context, owner string, ids []string) (map[string]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]*model.Asset)
	for _, id := range ids {
		if a, ok := r.assets[id]; ok && a.Owner == owner {
			result[id] = clone(a)
		}
	}
	return result, nil
}

func (r *memAssetRepo) TransitionStatus(_ context.Context, owner, id string, from, to model.Status) (*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.Owner != owner || a.Status != from {
		return nil, repository.ErrNotFound
	}
	a.Status = to
	return clone(a), nil
}

func (r *memAssetRepo) SetDetectedPart(_ context.Context, id string, part model.Part) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[id]
	if !ok || a.Category != model.CategoryGarment || a.DetectedPart != nil {
		return false, nil
	}
	a.DetectedPart = &part
	return true, nil
}

func (r *memAssetRepo) List(_ context.Context, f repository.ListFilter) ([]*model.Asset, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*model.Asset
	for _, a := range r.assets {
		if a.Owner != f.Owner {
			continue
		}
		if f.Category != nil && a.Category != *f.Category {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		matched = append(matched, clone(a))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	total := len(matched)
	if f.Offset >= total {
		return []*model.Asset{}, total, nil
	}
	end := f.Offset + f.Limit
	if end > total {
		end = total
	}
	return matched[f.Offset:end], total, nil
}

func (r *memAssetRepo) FailStalePending(_ context.Context, before time.Time, limit int) ([]*model.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*model.Asset
	for _, a := range r.assets {
		if len(result) == limit {
			break
		}
		if a.Status == model.StatusPending && a.CreatedAt.Before(before) {
			a.Status = model.StatusUploadingFailed
			result = append(result, clone(a))
		}
	}
	return result, nil
}

func (r *memAssetRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assets)
}

func (r *memAssetRepo) setStatus(id string, st model.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id].Status = st
}

func (r *memAssetRepo) setPart(id string, p model.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id].DetectedPart = &p
}

func (r *memAssetRepo) setCreatedAt(id string, t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[id].CreatedAt = t
}

// memTxRunner выполняет fn без транзакции.
type memTxRunner struct {
	repo *memAssetRepo
}

func (t *memTxRunner) InAssetTx(_ context.Context, fn func(repo repository.AssetRepository) error) error {
	return fn(t.repo)
}

// --- Mock blob gateway ---

// mockGateway — blob storage в памяти со счётчиками вызовов.
type mockGateway struct {
	mu        sync.Mutex
	objects   map[string][]byte
	mints     int
	fetches   int
	issueErr  error
	getErr    error
	putErr    error
	statFn    func(key string) (blobstore.ObjectInfo, bool, error)
	mintCount map[string]int
}

func newMockGateway() *mockGateway {
	return &mockGateway{objects: make(map[string][]byte), mintCount: make(map[string]int)}
}

func (g *mockGateway) IssueUploadURL(_ context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.issueErr != nil {
		return "", g.issueErr
	}
	g.mints++
	return fmt.Sprintf("upload://%s#%d", key, g.mints), nil
}

func (g *mockGateway) IssueDownloadURL(_ context.Context, key string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.issueErr != nil {
		return "", g.issueErr
	}
	g.mints++
	g.mintCount[key]++
	return fmt.Sprintf("download://%s#%d", key, g.mints), nil
}

func (g *mockGateway) PutObject(_ context.Context, key string, data []byte, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.putErr != nil {
		return g.putErr
	}
	g.objects[key] = data
	return nil
}

func (g *mockGateway) GetObject(_ context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches++
	if g.getErr != nil {
		return nil, g.getErr
	}
	// download://{key}#{n}
	key := url[len("download://"):]
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '#' {
			key = key[:i]
			break
		}
	}
	data, ok := g.objects[key]
	if !ok {
		return nil, blobstore.ErrObjectNotFound
	}
	return data, nil
}

func (g *mockGateway) Stat(_ context.Context, key string) (blobstore.ObjectInfo, bool, error) {
	if g.statFn != nil {
		return g.statFn(key)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	data, ok := g.objects[key]
	if !ok {
		return blobstore.ObjectInfo{}, false, nil
	}
	return blobstore.ObjectInfo{Key: key, Size: int64(len(data))}, true, nil
}

func (g *mockGateway) downloadMints(key string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mintCount[key]
}

func (g *mockGateway) fetchCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches
}

// --- Mock cache ---

// failingCache — недоступный backend кэша.
type failingCache struct{}

func (failingCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

func (failingCache) Put(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func (failingCache) Delete(context.Context, string) error {
	return errors.New("connection refused")
}

var _ urlcache.Cache = failingCache{}

// --- Mock очередь классификации ---

type mockQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *mockQueue) EnqueueClassification(assetID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, assetID)
}

func (q *mockQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

// --- Mock диспетчер ---

// mockDispatcher — реестр с одним набором генераторов и записью вызовов.
type mockDispatcher struct {
	mu      sync.Mutex
	ids     map[string]bool
	calls   int
	lastReq generator.Request
	result  []byte
	err     error
}

func newMockDispatcher(ids ...string) *mockDispatcher {
	d := &mockDispatcher{ids: make(map[string]bool), result: []byte("\xff\xd8\xff generated")}
	for _, id := range ids {
		d.ids[id] = true
	}
	return d
}

func (d *mockDispatcher) Resolve(id string) (generator.Generator, error) {
	if !d.ids[id] {
		return nil, fmt.Errorf("%w: %q", generator.ErrUnknownGenerator, id)
	}
	return generator.GeneratorFunc(func(context.Context, generator.Request) ([]byte, error) { return d.result, d.err }), nil
}

func (d *mockDispatcher) Dispatch(ctx context.Context, id string, req generator.Request) ([]byte, error) {
	g, err := d.Resolve(id)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.calls++
	d.lastReq = req
	d.mu.Unlock()
	data, err := g.Generate(ctx, req)
	if err != nil {
		return nil, &generator.GenerationError{Generator: id, Detail: "вызов генератора", Err: err}
	}
	return data, nil
}

func (d *mockDispatcher) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}
