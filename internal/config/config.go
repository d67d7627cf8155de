// Пакет config — загрузка и валидация конфигурации Fitting Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Допустимые backend'ы кэша делегированных URL.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config содержит все параметры конфигурации Fitting Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 150s, больше таймаута генерации)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- JWT / JWKS ---

	// AuthDisabled — режим разработки: владелец берётся из заголовка X-Owner-ID
	AuthDisabled bool
	// JWKSURL — URL JWKS endpoint IdP
	JWKSURL string
	// JWTIssuer — ожидаемый issuer (пусто — не проверяется)
	JWTIssuer string
	// CACertPath — путь к CA-сертификату для JWKS (опционально)
	CACertPath string
	// JWKSClientTimeout — таймаут HTTP-клиента JWKS (по умолчанию 10s)
	JWKSClientTimeout time.Duration
	// JWKSRefreshInterval — интервал обновления ключей (по умолчанию 15s)
	JWKSRefreshInterval time.Duration
	// JWTLeeway — допустимое отклонение часов (по умолчанию 5s)
	JWTLeeway time.Duration

	// --- Blob storage ---

	// BlobDataDir — каталог объектов
	BlobDataDir string
	// PublicBaseURL — внешний адрес сервиса, из него строятся делегированные URL
	PublicBaseURL string
	// BlobSigningKey — секрет подписи делегированных URL (HS256, >= 32 байт)
	BlobSigningKey string
	// UploadURLExpiry — срок действия URL загрузки (по умолчанию 3h)
	UploadURLExpiry time.Duration
	// DownloadURLExpiry — срок действия URL скачивания (по умолчанию 3h)
	DownloadURLExpiry time.Duration
	// BlobHTTPTimeout — таймаут скачивания объекта по делегированному URL (по умолчанию 60s)
	BlobHTTPTimeout time.Duration
	// MaxUploadSize — максимальный размер загружаемого файла (по умолчанию 10 MiB)
	MaxUploadSize int64

	// --- Кэш делегированных URL ---

	// URLCacheBackend — memory или redis
	URLCacheBackend string
	// URLCacheTTL — время жизни записи (по умолчанию 2h)
	URLCacheTTL time.Duration
	// URLCacheSize — ёмкость in-memory LRU
	URLCacheSize int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// --- Жизненный цикл ---

	// VerifyUploads — проверять наличие и размер объекта при подтверждении
	VerifyUploads bool
	// PendingUploadTTL — через сколько pending-ассет считается неудачной загрузкой
	PendingUploadTTL time.Duration
	// ReaperInterval — период проверки зависших загрузок
	ReaperInterval time.Duration
	// MaxBatchFiles — максимум файлов в пакетной инициализации
	MaxBatchFiles int

	// --- Классификация ---

	ClassifierAPIURL    string
	ClassifierAPIKey    string
	ClassifierModel     string
	ClassifierWorkers   int
	ClassifierQueueSize int
	ClassifierTimeout   time.Duration

	// --- Генерация ---

	// GenerationTimeout — таймаут запроса генерации (>= 90s)
	GenerationTimeout time.Duration
	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiModel       string
	VWFluxURL         string
	VWCatVTONURL      string
	VWToken           string
	FitRoomAPIKey     string
	FitRoomBaseURL    string
	FitRoomPoll       time.Duration
	FitRoomMaxPolls   int
	// FakeGeneratorEnabled — регистрировать детерминированный генератор fake
	FakeGeneratorEnabled bool

	// --- Мониторинг зависимостей ---

	DephealthCheckInterval time.Duration
	DephealthGroup         string
	DephealthIsEntry       bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// FM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("FM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("FM_PORT: %w", err)
	}
	if cfg.Port < 8040 || cfg.Port > 8049 {
		return nil, fmt.Errorf("FM_PORT: значение %d вне допустимого диапазона 8040-8049", cfg.Port)
	}

	// FM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("FM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("FM_LOG_LEVEL: %w", err)
	}

	// FM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("FM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("FM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	if cfg.HTTPReadTimeout, err = getEnvDuration("FM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("FM_HTTP_WRITE_TIMEOUT", 150*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("FM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("FM_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("FM_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("FM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// FM_DB_HOST — обязательный
	if cfg.DBHost, err = getEnvRequired("FM_DB_HOST"); err != nil {
		return nil, err
	}
	if cfg.DBPort, err = getEnvInt("FM_DB_PORT", 5432); err != nil {
		return nil, fmt.Errorf("FM_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("FM_DB_NAME", "fitting")
	cfg.DBUser = getEnvDefault("FM_DB_USER", "fitting")
	cfg.DBPassword = os.Getenv("FM_DB_PASSWORD")
	cfg.DBSSLMode = getEnvDefault("FM_DB_SSL_MODE", "disable")

	// --- JWT / JWKS ---

	if cfg.AuthDisabled, err = getEnvBool("FM_AUTH_DISABLED", false); err != nil {
		return nil, fmt.Errorf("FM_AUTH_DISABLED: %w", err)
	}
	cfg.JWKSURL = os.Getenv("FM_JWKS_URL")
	if !cfg.AuthDisabled && cfg.JWKSURL == "" {
		return nil, fmt.Errorf("FM_JWKS_URL: обязательная переменная окружения не задана (или FM_AUTH_DISABLED=true)")
	}
	cfg.JWTIssuer = os.Getenv("FM_JWT_ISSUER")
	cfg.CACertPath = os.Getenv("FM_CA_CERT_PATH")
	if cfg.JWKSClientTimeout, err = getEnvDuration("FM_JWKS_CLIENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("FM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	if cfg.JWKSRefreshInterval, err = getEnvDuration("FM_JWKS_REFRESH_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("FM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	if cfg.JWTLeeway, err = getEnvDuration("FM_JWT_LEEWAY", 5*time.Second); err != nil {
		return nil, fmt.Errorf("FM_JWT_LEEWAY: %w", err)
	}

	// --- Blob storage ---

	cfg.BlobDataDir = getEnvDefault("FM_BLOB_DATA_DIR", "./data/blobs")
	cfg.PublicBaseURL = strings.TrimRight(getEnvDefault("FM_PUBLIC_BASE_URL", fmt.Sprintf("http://localhost:%d", cfg.Port)), "/")
	if u, perr := url.Parse(cfg.PublicBaseURL); perr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("FM_PUBLIC_BASE_URL: некорректный URL %q", cfg.PublicBaseURL)
	}
	if cfg.BlobSigningKey, err = getEnvRequired("FM_BLOB_SIGNING_KEY"); err != nil {
		return nil, err
	}
	if len(cfg.BlobSigningKey) < 32 {
		return nil, fmt.Errorf("FM_BLOB_SIGNING_KEY: длина ключа должна быть не меньше 32 байт")
	}
	if cfg.UploadURLExpiry, err = getEnvDuration("FM_UPLOAD_URL_EXPIRY", 3*time.Hour); err != nil {
		return nil, fmt.Errorf("FM_UPLOAD_URL_EXPIRY: %w", err)
	}
	if cfg.DownloadURLExpiry, err = getEnvDuration("FM_DOWNLOAD_URL_EXPIRY", 3*time.Hour); err != nil {
		return nil, fmt.Errorf("FM_DOWNLOAD_URL_EXPIRY: %w", err)
	}
	if cfg.BlobHTTPTimeout, err = getEnvDuration("FM_BLOB_HTTP_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("FM_BLOB_HTTP_TIMEOUT: %w", err)
	}
	// FM_MAX_UPLOAD_SIZE — максимальный размер файла (по умолчанию 10 MiB)
	if cfg.MaxUploadSize, err = getEnvInt64("FM_MAX_UPLOAD_SIZE", 10*1024*1024); err != nil {
		return nil, fmt.Errorf("FM_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("FM_MAX_UPLOAD_SIZE: значение должно быть положительным")
	}

	// --- Кэш делегированных URL ---

	cfg.URLCacheBackend = getEnvDefault("FM_URL_CACHE_BACKEND", CacheBackendMemory)
	if cfg.URLCacheBackend != CacheBackendMemory && cfg.URLCacheBackend != CacheBackendRedis {
		return nil, fmt.Errorf("FM_URL_CACHE_BACKEND: недопустимое значение %q, допустимые: memory, redis", cfg.URLCacheBackend)
	}
	if cfg.URLCacheTTL, err = getEnvDuration("FM_URL_CACHE_TTL", 2*time.Hour); err != nil {
		return nil, fmt.Errorf("FM_URL_CACHE_TTL: %w", err)
	}
	// Кэшированный URL должен оставаться валидным всё время жизни записи.
	if cfg.URLCacheTTL >= cfg.UploadURLExpiry || cfg.URLCacheTTL >= cfg.DownloadURLExpiry {
		return nil, fmt.Errorf("FM_URL_CACHE_TTL: значение %s должно быть меньше срока действия URL (%s / %s)",
			cfg.URLCacheTTL, cfg.UploadURLExpiry, cfg.DownloadURLExpiry)
	}
	if cfg.URLCacheSize, err = getEnvInt("FM_URL_CACHE_SIZE", 10000); err != nil {
		return nil, fmt.Errorf("FM_URL_CACHE_SIZE: %w", err)
	}
	cfg.RedisAddr = os.Getenv("FM_REDIS_ADDR")
	if cfg.URLCacheBackend == CacheBackendRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("FM_REDIS_ADDR: обязателен при FM_URL_CACHE_BACKEND=redis")
	}
	cfg.RedisPassword = os.Getenv("FM_REDIS_PASSWORD")
	if cfg.RedisDB, err = getEnvInt("FM_REDIS_DB", 0); err != nil {
		return nil, fmt.Errorf("FM_REDIS_DB: %w", err)
	}

	// --- Жизненный цикл ---

	if cfg.VerifyUploads, err = getEnvBool("FM_VERIFY_UPLOADS", true); err != nil {
		return nil, fmt.Errorf("FM_VERIFY_UPLOADS: %w", err)
	}
	if cfg.PendingUploadTTL, err = getEnvDuration("FM_PENDING_UPLOAD_TTL", 24*time.Hour); err != nil {
		return nil, fmt.Errorf("FM_PENDING_UPLOAD_TTL: %w", err)
	}
	if cfg.ReaperInterval, err = getEnvDuration("FM_REAPER_INTERVAL", time.Hour); err != nil {
		return nil, fmt.Errorf("FM_REAPER_INTERVAL: %w", err)
	}
	if cfg.MaxBatchFiles, err = getEnvInt("FM_MAX_BATCH_FILES", 20); err != nil {
		return nil, fmt.Errorf("FM_MAX_BATCH_FILES: %w", err)
	}

	// --- Классификация ---

	cfg.ClassifierAPIURL = strings.TrimRight(getEnvDefault("FM_CLASSIFIER_API_URL", "https://api.openai.com/v1"), "/")
	cfg.ClassifierAPIKey = os.Getenv("FM_CLASSIFIER_API_KEY")
	cfg.ClassifierModel = getEnvDefault("FM_CLASSIFIER_MODEL", "gpt-4.1-mini")
	if cfg.ClassifierWorkers, err = getEnvInt("FM_CLASSIFIER_WORKERS", 2); err != nil {
		return nil, fmt.Errorf("FM_CLASSIFIER_WORKERS: %w", err)
	}
	if cfg.ClassifierWorkers < 1 {
		return nil, fmt.Errorf("FM_CLASSIFIER_WORKERS: значение должно быть >= 1")
	}
	if cfg.ClassifierQueueSize, err = getEnvInt("FM_CLASSIFIER_QUEUE_SIZE", 256); err != nil {
		return nil, fmt.Errorf("FM_CLASSIFIER_QUEUE_SIZE: %w", err)
	}
	if cfg.ClassifierTimeout, err = getEnvDuration("FM_CLASSIFIER_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("FM_CLASSIFIER_TIMEOUT: %w", err)
	}

	// --- Генерация ---

	if cfg.GenerationTimeout, err = getEnvDuration("FM_GENERATION_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("FM_GENERATION_TIMEOUT: %w", err)
	}
	if cfg.GenerationTimeout < 90*time.Second {
		return nil, fmt.Errorf("FM_GENERATION_TIMEOUT: значение %s меньше минимальных 90s", cfg.GenerationTimeout)
	}
	if cfg.HTTPWriteTimeout <= cfg.GenerationTimeout {
		return nil, fmt.Errorf("FM_HTTP_WRITE_TIMEOUT: значение %s должно быть больше FM_GENERATION_TIMEOUT (%s)",
			cfg.HTTPWriteTimeout, cfg.GenerationTimeout)
	}
	cfg.GeminiAPIKey = os.Getenv("FM_GEMINI_API_KEY")
	cfg.GeminiBaseURL = strings.TrimRight(getEnvDefault("FM_GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"), "/")
	cfg.GeminiModel = getEnvDefault("FM_GEMINI_MODEL", "gemini-2.5-flash-image")
	cfg.VWFluxURL = os.Getenv("FM_VWFLUX_URL")
	cfg.VWCatVTONURL = os.Getenv("FM_VWCATVTON_URL")
	cfg.VWToken = os.Getenv("FM_VW_TOKEN")
	cfg.FitRoomAPIKey = os.Getenv("FM_FITROOM_API_KEY")
	cfg.FitRoomBaseURL = strings.TrimRight(getEnvDefault("FM_FITROOM_BASE_URL", "https://platform.fitroom.app"), "/")
	if cfg.FitRoomPoll, err = getEnvDuration("FM_FITROOM_POLL_INTERVAL", 3*time.Second); err != nil {
		return nil, fmt.Errorf("FM_FITROOM_POLL_INTERVAL: %w", err)
	}
	if cfg.FitRoomMaxPolls, err = getEnvInt("FM_FITROOM_MAX_POLLS", 60); err != nil {
		return nil, fmt.Errorf("FM_FITROOM_MAX_POLLS: %w", err)
	}
	if cfg.FakeGeneratorEnabled, err = getEnvBool("FM_GENERATOR_FAKE_ENABLED", false); err != nil {
		return nil, fmt.Errorf("FM_GENERATOR_FAKE_ENABLED: %w", err)
	}

	// --- Мониторинг зависимостей ---

	if cfg.DephealthCheckInterval, err = getEnvDuration("FM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("FM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("FM_DEPHEALTH_GROUP", "goartstore")
	if cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false); err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения в формате postgres://
// (используется golang-migrate и dephealth для лейблов).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 возвращает int64 значение переменной окружения или значение по умолчанию.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
