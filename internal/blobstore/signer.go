package blobstore

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Operation — операция, разрешённая делегированным URL.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
)

// blobClaims — claims токена делегированного URL.
// sub — ключ объекта, op — разрешённая операция.
type blobClaims struct {
	jwt.RegisteredClaims
	Op Operation `json:"op"`
}

// Signer подписывает и проверяет токены делегированных URL (HS256).
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner создаёт Signer с секретом подписи.
func NewSigner(secret []byte) *Signer {
	return &Signer{secret: secret, now: time.Now}
}

// Sign выпускает токен на операцию op над объектом key со сроком действия ttl.
func (s *Signer) Sign(key string, op Operation, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := blobClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   key,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Op: op,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}
	return token, expiresAt, nil
}

// Verify проверяет подпись, срок действия, ключ и операцию токена.
// Любое несоответствие — ErrAccessDenied.
func (s *Signer) Verify(token, key string, op Operation) error {
	claims := &blobClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(key),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%w: срок действия URL истёк", ErrAccessDenied)
		}
		return fmt.Errorf("%w: %v", ErrAccessDenied, err)
	}
	if claims.Op != op {
		return fmt.Errorf("%w: URL не разрешает операцию %s", ErrAccessDenied, op)
	}
	return nil
}
