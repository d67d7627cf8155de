// Точка входа Fitting Module — жизненный цикл ассетов примерочной и
// оркестрация генерации изображений.
// Загружает конфигурацию, подключается к PostgreSQL, применяет миграции,
// собирает кэш URL, blob storage, реестр генераторов и классификатор,
// запускает фоновые задачи (классификация, пометка зависших загрузок,
// topologymetrics) и HTTP-сервер с JWT middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/bigkaa/goartstore/fitting-module/internal/api/generated"
	"github.com/bigkaa/goartstore/fitting-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/fitting-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/fitting-module/internal/blobstore"
	"github.com/bigkaa/goartstore/fitting-module/internal/classifier"
	"github.com/bigkaa/goartstore/fitting-module/internal/config"
	"github.com/bigkaa/goartstore/fitting-module/internal/database"
	"github.com/bigkaa/goartstore/fitting-module/internal/generator"
	"github.com/bigkaa/goartstore/fitting-module/internal/httpclient"
	"github.com/bigkaa/goartstore/fitting-module/internal/repository"
	"github.com/bigkaa/goartstore/fitting-module/internal/server"
	"github.com/bigkaa/goartstore/fitting-module/internal/service"
	"github.com/bigkaa/goartstore/fitting-module/internal/urlcache"
)

//nolint:gocyclo,funlen // последовательная сборка зависимостей
func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Fitting Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Repositories
	assetRepo := repository.NewAssetRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	// 6. Кэш делегированных URL
	var (
		urlCache     urlcache.Cache
		cacheChecker handlers.ReadinessChecker
	)
	switch cfg.URLCacheBackend {
	case config.CacheBackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		redisCache := urlcache.NewRedisCache(redisClient)
		urlCache, cacheChecker = redisCache, redisCache
		logger.Info("Кэш URL: Redis", slog.String("addr", cfg.RedisAddr))
	default:
		urlCache = urlcache.NewMemoryCache(cfg.URLCacheSize, cfg.URLCacheTTL)
		logger.Info("Кэш URL: память", slog.Int("size", cfg.URLCacheSize))
	}

	// 7. Blob storage (локальный диск + подписанные URL)
	fileStore, err := blobstore.NewFileStore(cfg.BlobDataDir)
	if err != nil {
		logger.Error("Ошибка инициализации хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	gateway := blobstore.NewLocalGateway(fileStore, blobstore.NewSigner([]byte(cfg.BlobSigningKey)), blobstore.LocalConfig{
		PublicBaseURL:  cfg.PublicBaseURL,
		UploadExpiry:   cfg.UploadURLExpiry,
		DownloadExpiry: cfg.DownloadURLExpiry,
		MaxObjectSize:  cfg.MaxUploadSize,
		HTTPTimeout:    cfg.BlobHTTPTimeout,
	}, logger)

	// 8. HTTP-клиенты для внешних провайдеров (с кастомным CA)
	providerClient, err := httpclient.New(cfg.CACertPath, cfg.GenerationTimeout)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента", slog.String("error", err.Error()))
		os.Exit(1)
	}
	jwksClient, err := httpclient.New(cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания HTTP-клиента JWKS", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Реестр генераторов
	registry, err := generator.NewRegistryFromConfig(generator.Config{
		Gemini: generator.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
		},
		VWFluxURL:    cfg.VWFluxURL,
		VWCatVTONURL: cfg.VWCatVTONURL,
		VWToken:      cfg.VWToken,
		FitRoom: generator.FitRoomConfig{
			APIKey:       cfg.FitRoomAPIKey,
			BaseURL:      cfg.FitRoomBaseURL,
			PollInterval: cfg.FitRoomPoll,
			MaxPolls:     cfg.FitRoomMaxPolls,
		},
		FakeEnabled: cfg.FakeGeneratorEnabled,
	}, providerClient, logger)
	if err != nil {
		logger.Error("Ошибка сборки реестра генераторов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Генераторы зарегистрированы", slog.Any("generators", registry.IDs()))

	// 10. Очередь классификации (без API-ключа классификация отключена)
	classifierEnabled := cfg.ClassifierAPIKey != ""
	var queue service.ClassificationQueue = classifier.NopQueue{}
	var classificationQueue *classifier.Queue
	if classifierEnabled {
		classificationQueue = classifier.NewQueue(cfg.ClassifierQueueSize, logger)
		queue = classificationQueue
	} else {
		logger.Warn("FM_CLASSIFIER_API_KEY не задан, классификация одежды отключена")
	}

	// 11. Services
	assetSvc := service.NewAssetService(assetRepo, txRunner, gateway, urlCache, queue, service.AssetConfig{
		MaxUploadSize:     cfg.MaxUploadSize,
		MaxBatchFiles:     cfg.MaxBatchFiles,
		VerifyUploads:     cfg.VerifyUploads,
		URLCacheTTL:       cfg.URLCacheTTL,
		DownloadURLExpiry: cfg.DownloadURLExpiry,
	}, logger)
	generationSvc := service.NewGenerationService(assetSvc, gateway, registry, logger)

	// 12. Фоновый воркер классификации
	var worker *classifier.Worker
	if classifierEnabled {
		worker = classifier.NewWorker(
			classificationQueue,
			assetSvc,
			gateway,
			classifier.NewOpenAI(classifier.OpenAIConfig{
				APIURL: cfg.ClassifierAPIURL,
				APIKey: cfg.ClassifierAPIKey,
				Model:  cfg.ClassifierModel,
			}, providerClient),
			cfg.ClassifierWorkers,
			cfg.ClassifierTimeout,
			logger,
		)
		worker.Start(ctx)
	}

	// 13. Пометка зависших загрузок
	reaper := service.NewReaperService(assetSvc, cfg.PendingUploadTTL, cfg.ReaperInterval, logger)
	reaper.Start(ctx)

	// 14. topologymetrics (мониторинг зависимостей)
	dephealthCfg := service.DephealthConfig{
		ServiceID:     "fitting-module",
		Group:         cfg.DephealthGroup,
		PgConnURL:     cfg.DatabaseURL("postgresql"),
		CheckInterval: cfg.DephealthCheckInterval,
		IsEntry:       cfg.DephealthIsEntry,
	}
	if !cfg.AuthDisabled {
		dephealthCfg.JWKSURL = cfg.JWKSURL
	}
	if classifierEnabled {
		dephealthCfg.ClassifierURL = cfg.ClassifierAPIURL
	}
	dephealthSvc, dephealthErr := service.NewDephealthService(dephealthCfg, pgDB, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	}

	// 15. Handlers
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), cacheChecker)
	apiHandler := handlers.NewAPIHandler(healthHandler, assetSvc, generationSvc, registry, cfg.GenerationTimeout, logger)
	blobHandler := handlers.NewBlobHandler(gateway, logger)

	// 16. Middleware: request id, метрики, логирование, аутентификация, OpenAPI-валидация
	authMiddleware := middleware.DevOwner()
	if cfg.AuthDisabled {
		logger.Warn("Аутентификация отключена (FM_AUTH_DISABLED=true), владелец из заголовка " + middleware.DevOwnerHeader)
	} else {
		jwtAuth, err := middleware.NewJWTAuth(cfg.JWKSURL, jwksClient, cfg.JWTIssuer,
			cfg.JWKSRefreshInterval, cfg.JWTLeeway, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT", slog.String("error", err.Error()))
			os.Exit(1)
		}
		authMiddleware = jwtAuth.Middleware()
	}

	swagger, err := generated.GetSwagger()
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI", slog.String("error", err.Error()))
		os.Exit(1)
	}
	validator, err := middleware.NewRequestValidator(swagger, logger)
	if err != nil {
		logger.Error("Ошибка создания OpenAPI-валидатора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	publicPaths := []string{"/health/", "/metrics", handlers.BlobPathPrefix}
	middlewares := []func(http.Handler) http.Handler{
		chimw.RequestID,
		chimw.Recoverer,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(authMiddleware, publicPaths...),
		validator.Middleware(),
	}

	// 17. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, blobHandler, middlewares...)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
	}

	// 18. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	reaper.Stop()
	if worker != nil {
		worker.Stop()
	}

	logger.Info("Fitting Module остановлен")
}
