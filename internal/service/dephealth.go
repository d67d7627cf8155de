// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// Fitting Module мониторит:
//   - PostgreSQL — SQL checker через существующий pgxpool (connection pool mode, critical)
//   - IdP JWKS — HTTP checker к JWKS endpoint (critical, только при включённой аутентификации)
//   - Классификатор — HTTP checker к API (не critical: без него генерация работает)
//
// Генераторы не мониторятся: их доступность проверяется в момент вызова.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
//   - app_dependency_status — категория статуса
//   - app_dependency_status_detail — детальный статус
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // регистрация HTTP checker factory
	"github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/pgcheck"
	"github.com/prometheus/client_golang/prometheus"
)

// DephealthConfig — параметры мониторинга зависимостей.
type DephealthConfig struct {
	// ServiceID — имя вершины графа текущего приложения
	ServiceID string
	// Group — имя группы в метриках (FM_DEPHEALTH_GROUP)
	Group string
	// PgConnURL — URL PostgreSQL (для лейблов, не для подключения)
	PgConnURL string
	// JWKSURL — JWKS endpoint IdP; пусто — не мониторится
	JWKSURL string
	// ClassifierURL — адрес API классификатора; пусто — не мониторится
	ClassifierURL string
	// CheckInterval — интервал проверки (FM_DEPHEALTH_CHECK_INTERVAL)
	CheckInterval time.Duration
	// IsEntry — лейбл isentry=yes для всех зависимостей
	IsEntry bool
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
// db — *sql.DB, полученный из pgxpool через stdlib.OpenDBFromPool().
func NewDephealthService(cfg DephealthConfig, db *sql.DB, logger *slog.Logger) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(cfg, db, logger, dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	cfg DephealthConfig,
	db *sql.DB,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		// PostgreSQL — connection pool mode через существующий pgxpool
		dephealth.AddDependency("postgresql", dephealth.TypePostgres,
			pgcheck.New(pgcheck.WithDB(db)),
			dependencyOptions(cfg, cfg.PgConnURL, true)...),
	}

	if cfg.JWKSURL != "" {
		jwksOpts := append(dependencyOptions(cfg, cfg.JWKSURL, true),
			dephealth.WithHTTPHealthPath(healthPathFromURL(cfg.JWKSURL, "/health")))
		opts = append(opts, dephealth.HTTP("idp-jwks", jwksOpts...))
	}

	if cfg.ClassifierURL != "" {
		clsOpts := append(dependencyOptions(cfg, cfg.ClassifierURL, false),
			dephealth.WithHTTPHealthPath(modelsPathFromURL(cfg.ClassifierURL)))
		opts = append(opts, dephealth.HTTP("classifier-api", clsOpts...))
	}

	opts = append(opts, extraOpts...)

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// dependencyOptions — общие опции зависимости.
func dependencyOptions(cfg DephealthConfig, rawURL string, critical bool) []dephealth.DependencyOption {
	opts := []dephealth.DependencyOption{
		dephealth.FromURL(rawURL),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(critical),
	}
	if cfg.IsEntry {
		opts = append(opts, dephealth.WithLabel("isentry", "yes"))
	}
	return opts
}

// healthPathFromURL возвращает path из URL или fallback, если path пуст.
func healthPathFromURL(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return fallback
	}
	return parsed.Path
}

// modelsPathFromURL — список моделей OpenAI-совместимого API (/v1 → /v1/models).
func modelsPathFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "/models"
	}
	return strings.TrimRight(parsed.Path, "/") + "/models"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
