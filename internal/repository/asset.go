package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

// assetColumns — список столбцов таблицы assets для SELECT/RETURNING.
const assetColumns = `id, owner, category, status, detected_part, storage_key,
	original_filename, declared_size, content_type, created_at, updated_at`

// ListFilter — параметры выборки ассетов владельца.
// Указатели: nil = фильтр не применяется.
type ListFilter struct {
	// Owner — владелец (обязателен)
	Owner string
	// Category — фильтр по категории
	Category *model.Category
	// Status — фильтр по статусу
	Status *model.Status
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// AssetRepository — интерфейс доступа к таблице assets.
type AssetRepository interface {
	// Create вставляет новый ассет. Заполняет CreatedAt/UpdatedAt.
	// ErrConflict — повтор id или storage_key.
	Create(ctx context.Context, a *model.Asset) error
	// GetByID возвращает ассет без проверки владельца (для фоновых задач).
	GetByID(ctx context.Context, id string) (*model.Asset, error)
	// GetByOwner возвращает ассет владельца или ErrNotFound.
	GetByOwner(ctx context.Context, owner, id string) (*model.Asset, error)
	// GetManyByOwner возвращает найденные ассеты владельца по списку id.
	// Отсутствующие id в результат не попадают.
	GetManyByOwner(ctx context.Context, owner string, ids []string) (map[string]*model.Asset, error)
	// TransitionStatus атомарно меняет статус from → to (compare-and-set).
	// ErrNotFound — ни одна строка не подошла (нет ассета или статус уже другой).
	TransitionStatus(ctx context.Context, owner, id string, from, to model.Status) (*model.Asset, error)
	// SetDetectedPart записывает часть тела, только если она ещё не задана.
	// Возвращает false, если запись не изменена.
	SetDetectedPart(ctx context.Context, id string, part model.Part) (bool, error)
	// List возвращает ассеты владельца, новые первыми, и общее количество.
	List(ctx context.Context, filter ListFilter) ([]*model.Asset, int, error)
	// FailStalePending переводит pending-ассеты старше before в uploading_failed.
	// Возвращает изменённые записи.
	FailStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Asset, error)
}

// assetRepo — реализация AssetRepository через pgx.
type assetRepo struct {
	db DBTX
}

// NewAssetRepository создаёт репозиторий ассетов.
func NewAssetRepository(db DBTX) AssetRepository {
	return &assetRepo{db: db}
}

// Create вставляет ассет и возвращает время создания из БД.
func (r *assetRepo) Create(ctx context.Context, a *model.Asset) error {
	query := `
		INSERT INTO assets (id, owner, category, status, detected_part, storage_key,
			original_filename, declared_size, content_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		a.ID, a.Owner, string(a.Category), string(a.Status), partToNullable(a.DetectedPart), a.StorageKey,
		a.OriginalFilename, a.DeclaredSize, a.ContentType,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка создания ассета: %w", err)
	}
	return nil
}

// GetByID возвращает ассет по UUID или ErrNotFound.
func (r *assetRepo) GetByID(ctx context.Context, id string) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1`, assetColumns)
	return r.getOne(ctx, query, id)
}

// GetByOwner возвращает ассет владельца или ErrNotFound.
// Чужой ассет неотличим от отсутствующего.
func (r *assetRepo) GetByOwner(ctx context.Context, owner, id string) (*model.Asset, error) {
	query := fmt.Sprintf(`SELECT %s FROM assets WHERE id = $1 AND owner = $2`, assetColumns)
	return r.getOne(ctx, query, id, owner)
}

// GetManyByOwner возвращает ассеты владельца одним запросом.
func (r *assetRepo) GetManyByOwner(ctx context.Context, owner string, ids []string) (map[string]*model.Asset, error) {
	result := make(map[string]*model.Asset, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := fmt.Sprintf(`SELECT %s FROM assets WHERE owner = $1 AND id = ANY($2::uuid[])`, assetColumns)
	rows, err := r.db.Query(ctx, query, owner, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения ассетов: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ассета: %w", err)
		}
		result[a.ID] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// TransitionStatus — compare-and-set по статусу.
// Из N конкурентных вызовов с одинаковым from успешен ровно один.
func (r *assetRepo) TransitionStatus(ctx context.Context, owner, id string, from, to model.Status) (*model.Asset, error) {
	query := fmt.Sprintf(`
		UPDATE assets
		SET status = $4, updated_at = NOW()
		WHERE id = $1 AND owner = $2 AND status = $3
		RETURNING %s`, assetColumns)

	return r.getOne(ctx, query, id, owner, string(from), string(to))
}

// SetDetectedPart записывает часть тела ровно один раз.
func (r *assetRepo) SetDetectedPart(ctx context.Context, id string, part model.Part) (bool, error) {
	query := `
		UPDATE assets
		SET detected_part = $2, updated_at = NOW()
		WHERE id = $1 AND category = 'garment' AND detected_part IS NULL`

	tag, err := r.db.Exec(ctx, query, id, string(part))
	if err != nil {
		return false, fmt.Errorf("ошибка записи части тела: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List выполняет выборку с фильтрами и пагинацией.
// Возвращает (результаты, общее количество, ошибка).
func (r *assetRepo) List(ctx context.Context, filter ListFilter) ([]*model.Asset, int, error) {
	where, args := buildAssetWhere(filter, 1)
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM assets %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		assetColumns, where, argNum, argNum+1,
	)
	dataArgs := append(append([]any{}, args...), filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка выборки ассетов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования ассета: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	// Общее количество с теми же фильтрами, без LIMIT/OFFSET
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM assets %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта ассетов: %w", err)
	}

	return result, total, nil
}

// FailStalePending помечает зависшие загрузки как неудачные.
// FOR UPDATE SKIP LOCKED — несколько реплик не обрабатывают одни и те же строки.
func (r *assetRepo) FailStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Asset, error) {
	query := fmt.Sprintf(`
		UPDATE assets
		SET status = 'uploading_failed', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM assets
			WHERE status = 'pending' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		) AND status = 'pending'
		RETURNING %s`, assetColumns)

	rows, err := r.db.Query(ctx, query, before, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка пометки зависших загрузок: %w", err)
	}
	defer rows.Close()

	var result []*model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования ассета: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

// getOne выполняет запрос, возвращающий не более одной строки ассета.
func (r *assetRepo) getOne(ctx context.Context, query string, args ...any) (*model.Asset, error) {
	a, err := scanAsset(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения ассета: %w", err)
	}
	return a, nil
}

// scanAsset сканирует строку в порядке assetColumns.
// Принимает pgx.Row (подходит и для pgx.Rows).
func scanAsset(row pgx.Row) (*model.Asset, error) {
	a := &model.Asset{}
	var category, status string
	var part *string
	err := row.Scan(
		&a.ID, &a.Owner, &category, &status, &part, &a.StorageKey,
		&a.OriginalFilename, &a.DeclaredSize, &a.ContentType, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Category = model.Category(category)
	a.Status = model.Status(status)
	if part != nil {
		p := model.Part(*part)
		a.DetectedPart = &p
	}
	return a, nil
}

// buildAssetWhere строит WHERE-условие и аргументы для выборки ассетов.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildAssetWhere(filter ListFilter, startArg int) (whereClause string, args []any) {
	argNum := startArg

	conditions := []string{fmt.Sprintf("owner = $%d", argNum)}
	args = append(args, filter.Owner)
	argNum++

	if filter.Category != nil {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argNum))
		args = append(args, string(*filter.Category))
		argNum++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, string(*filter.Status))
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// partToNullable преобразует *model.Part в значение для nullable-столбца.
func partToNullable(p *model.Part) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
