// auth.go — JWT middleware аутентификации Fitting Module.
// Проверяет подпись Bearer token через JWKS IdP и помещает владельца
// (claim sub) в контекст запроса. Все ассеты принадлежат владельцу:
// обработчики читают его через OwnerFromContext.
// В режиме разработки (FM_AUTH_DISABLED=true) владелец берётся из заголовка X-Owner-ID.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/bigkaa/goartstore/fitting-module/internal/api/errors"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// DevOwnerHeader — заголовок владельца в режиме без аутентификации.
const DevOwnerHeader = "X-Owner-ID"

// maxOwnerLength — ограничение длины владельца (столбец owner).
const maxOwnerLength = 255

// AuthClaims — claims, нужные downstream handlers.
type AuthClaims struct {
	// Subject — sub из JWT, владелец ассетов.
	Subject string
	// PreferredUsername — preferred_username из JWT (только для логов).
	PreferredUsername string
}

// tokenClaims — raw claims из JWT для парсинга.
type tokenClaims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username"`
}

// ClaimsFromContext возвращает claims из контекста или nil.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// OwnerFromContext возвращает владельца запроса.
func OwnerFromContext(ctx context.Context) (string, bool) {
	claims := ClaimsFromContext(ctx)
	if claims == nil || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// WithOwner помещает владельца в контекст (для тестов и dev-режима).
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ContextKeyClaims, &AuthClaims{Subject: owner})
}

// JWTAuth — middleware для JWT-аутентификации через JWKS.
type JWTAuth struct {
	jwks      keyfunc.Keyfunc
	logger    *slog.Logger
	issuer    string
	jwtLeeway time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS IdP.
// httpClient — клиент для загрузки JWKS (с CA из FM_CA_CERT_PATH при необходимости).
// issuer — ожидаемый issuer JWT (может быть пустым — issuer не проверяется).
func NewJWTAuth(
	jwksURL string,
	httpClient *http.Client,
	issuer string,
	jwksRefreshInterval time.Duration,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// NoErrorReturnFirstHTTPReq — стартуем даже если IdP ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           jwksRefreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewJWTAuthWithKeyfunc(k, issuer, jwtLeeway, logger), nil
}

// NewJWTAuthWithKeyfunc создаёт middleware с готовым keyfunc (используется в тестах).
func NewJWTAuthWithKeyfunc(k keyfunc.Keyfunc, issuer string, jwtLeeway time.Duration, logger *slog.Logger) *JWTAuth {
	return &JWTAuth{
		jwks:      k,
		logger:    logger.With(slog.String("component", "jwt_auth")),
		issuer:    issuer,
		jwtLeeway: jwtLeeway,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256/ES256), извлекает sub.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			rawClaims := &tokenClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256", "ES256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" || len(subject) > maxOwnerLength {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			noteOwner(r.Context(), subject)
			ctx := context.WithValue(r.Context(), ContextKeyClaims, &AuthClaims{
				Subject:           subject,
				PreferredUsername: rawClaims.PreferredUsername,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DevOwner — middleware режима разработки: владелец из заголовка X-Owner-ID.
func DevOwner() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := strings.TrimSpace(r.Header.Get(DevOwnerHeader))
			if owner == "" || len(owner) > maxOwnerLength {
				apierrors.Unauthorized(w, "Отсутствует заголовок "+DevOwnerHeader)
				return
			}
			noteOwner(r.Context(), owner)
			next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
		})
	}
}
