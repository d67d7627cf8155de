package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// allFMEnvVars — все переменные, влияющие на Load. Очищаются перед каждым тестом.
var allFMEnvVars = []string{
	"FM_PORT", "FM_LOG_LEVEL", "FM_LOG_FORMAT",
	"FM_HTTP_READ_TIMEOUT", "FM_HTTP_WRITE_TIMEOUT", "FM_HTTP_IDLE_TIMEOUT", "FM_SHUTDOWN_TIMEOUT",
	"FM_DB_HOST", "FM_DB_PORT", "FM_DB_NAME", "FM_DB_USER", "FM_DB_PASSWORD", "FM_DB_SSL_MODE",
	"FM_AUTH_DISABLED", "FM_JWKS_URL", "FM_JWT_ISSUER", "FM_CA_CERT_PATH",
	"FM_JWKS_CLIENT_TIMEOUT", "FM_JWKS_REFRESH_INTERVAL", "FM_JWT_LEEWAY",
	"FM_BLOB_DATA_DIR", "FM_PUBLIC_BASE_URL", "FM_BLOB_SIGNING_KEY",
	"FM_UPLOAD_URL_EXPIRY", "FM_DOWNLOAD_URL_EXPIRY", "FM_BLOB_HTTP_TIMEOUT", "FM_MAX_UPLOAD_SIZE",
	"FM_URL_CACHE_BACKEND", "FM_URL_CACHE_TTL", "FM_URL_CACHE_SIZE",
	"FM_REDIS_ADDR", "FM_REDIS_PASSWORD", "FM_REDIS_DB",
	"FM_VERIFY_UPLOADS", "FM_PENDING_UPLOAD_TTL", "FM_REAPER_INTERVAL", "FM_MAX_BATCH_FILES",
	"FM_CLASSIFIER_API_URL", "FM_CLASSIFIER_API_KEY", "FM_CLASSIFIER_MODEL",
	"FM_CLASSIFIER_WORKERS", "FM_CLASSIFIER_QUEUE_SIZE", "FM_CLASSIFIER_TIMEOUT",
	"FM_GENERATION_TIMEOUT", "FM_GEMINI_API_KEY", "FM_GEMINI_BASE_URL", "FM_GEMINI_MODEL",
	"FM_VWFLUX_URL", "FM_VWCATVTON_URL", "FM_VW_TOKEN",
	"FM_FITROOM_API_KEY", "FM_FITROOM_BASE_URL", "FM_FITROOM_POLL_INTERVAL", "FM_FITROOM_MAX_POLLS",
	"FM_GENERATOR_FAKE_ENABLED",
	"FM_DEPHEALTH_CHECK_INTERVAL", "FM_DEPHEALTH_GROUP", "DEPHEALTH_ISENTRY",
}

// setEnv очищает все FM_* переменные и устанавливает переданные.
// Восстановление исходных значений выполняет t.Setenv.
func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for _, k := range allFMEnvVars {
		t.Setenv(k, "")
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"FM_DB_HOST":          "localhost",
		"FM_JWKS_URL":         "http://keycloak:8080/realms/artstore/protocol/openid-connect/certs",
		"FM_BLOB_SIGNING_KEY": strings.Repeat("k", 32),
	}
}

func withVars(extra map[string]string) map[string]string {
	vars := requiredEnvVars()
	for k, v := range extra {
		vars[k] = v
	}
	return vars
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, requiredEnvVars())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}

	if cfg.Port != 8040 {
		t.Errorf("Port = %d, ожидалось 8040", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидалось info", cfg.LogLevel)
	}
	if cfg.MaxUploadSize != 10*1024*1024 {
		t.Errorf("MaxUploadSize = %d, ожидалось 10 MiB", cfg.MaxUploadSize)
	}
	if cfg.URLCacheTTL != 2*time.Hour {
		t.Errorf("URLCacheTTL = %s, ожидалось 2h", cfg.URLCacheTTL)
	}
	if cfg.URLCacheBackend != CacheBackendMemory {
		t.Errorf("URLCacheBackend = %q, ожидалось memory", cfg.URLCacheBackend)
	}
	if cfg.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %s, ожидалось 120s", cfg.GenerationTimeout)
	}
	if !cfg.VerifyUploads {
		t.Error("VerifyUploads по умолчанию должен быть true")
	}
	if cfg.PublicBaseURL != "http://localhost:8040" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.ClassifierModel != "gpt-4.1-mini" {
		t.Errorf("ClassifierModel = %q", cfg.ClassifierModel)
	}
	if cfg.FitRoomMaxPolls != 60 || cfg.FitRoomPoll != 3*time.Second {
		t.Errorf("FitRoom polling = %d x %s, ожидалось 60 x 3s", cfg.FitRoomMaxPolls, cfg.FitRoomPoll)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		vars    map[string]string
		wantErr string
	}{
		{
			name:    "нет FM_DB_HOST",
			vars:    map[string]string{"FM_JWKS_URL": "http://x", "FM_BLOB_SIGNING_KEY": strings.Repeat("k", 32)},
			wantErr: "FM_DB_HOST",
		},
		{
			name:    "порт вне диапазона",
			vars:    withVars(map[string]string{"FM_PORT": "9000"}),
			wantErr: "FM_PORT",
		},
		{
			name:    "нет JWKS без FM_AUTH_DISABLED",
			vars:    map[string]string{"FM_DB_HOST": "db", "FM_BLOB_SIGNING_KEY": strings.Repeat("k", 32)},
			wantErr: "FM_JWKS_URL",
		},
		{
			name:    "короткий ключ подписи",
			vars:    withVars(map[string]string{"FM_BLOB_SIGNING_KEY": "short"}),
			wantErr: "FM_BLOB_SIGNING_KEY",
		},
		{
			name:    "TTL кэша не меньше срока URL",
			vars:    withVars(map[string]string{"FM_URL_CACHE_TTL": "3h"}),
			wantErr: "FM_URL_CACHE_TTL",
		},
		{
			name:    "redis без адреса",
			vars:    withVars(map[string]string{"FM_URL_CACHE_BACKEND": "redis"}),
			wantErr: "FM_REDIS_ADDR",
		},
		{
			name:    "неизвестный backend",
			vars:    withVars(map[string]string{"FM_URL_CACHE_BACKEND": "memcached"}),
			wantErr: "FM_URL_CACHE_BACKEND",
		},
		{
			name:    "таймаут генерации меньше 90s",
			vars:    withVars(map[string]string{"FM_GENERATION_TIMEOUT": "30s"}),
			wantErr: "FM_GENERATION_TIMEOUT",
		},
		{
			name:    "write timeout меньше таймаута генерации",
			vars:    withVars(map[string]string{"FM_HTTP_WRITE_TIMEOUT": "100s"}),
			wantErr: "FM_HTTP_WRITE_TIMEOUT",
		},
		{
			name:    "неверный формат логов",
			vars:    withVars(map[string]string{"FM_LOG_FORMAT": "xml"}),
			wantErr: "FM_LOG_FORMAT",
		},
		{
			name:    "отрицательный размер",
			vars:    withVars(map[string]string{"FM_MAX_UPLOAD_SIZE": "-1"}),
			wantErr: "FM_MAX_UPLOAD_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, tt.vars)
			_, err := Load()
			if err == nil {
				t.Fatal("ожидалась ошибка, получен nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ошибка %q не содержит %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_AuthDisabled(t *testing.T) {
	setEnv(t, map[string]string{
		"FM_DB_HOST":          "db",
		"FM_AUTH_DISABLED":    "true",
		"FM_BLOB_SIGNING_KEY": strings.Repeat("k", 32),
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if !cfg.AuthDisabled {
		t.Error("AuthDisabled должен быть true")
	}
}

func TestLoad_Redis(t *testing.T) {
	setEnv(t, withVars(map[string]string{
		"FM_URL_CACHE_BACKEND": "redis",
		"FM_REDIS_ADDR":        "redis:6379",
		"FM_REDIS_DB":          "2",
	}))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("Redis = %s/%d", cfg.RedisAddr, cfg.RedisDB)
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{DBHost: "db", DBPort: 5432, DBName: "fitting", DBUser: "u", DBPassword: "p@ss", DBSSLMode: "disable"}

	got := cfg.DatabaseURL("pgx5")
	want := "pgx5://u:p%40ss@db:5432/fitting?sslmode=disable"
	if got != want {
		t.Errorf("DatabaseURL = %q, ожидалось %q", got, want)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := parseLogLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("parseLogLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, ожидалось %v", tt.in, got, tt.want)
		}
	}
}
