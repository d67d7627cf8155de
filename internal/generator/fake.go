package generator

import (
	"bytes"
	"context"
	"crypto/sha256"
	"image"
	"image/color"
	"image/jpeg"
)

// FakeID — идентификатор детерминированного локального генератора.
const FakeID = "fake"

// Fake — генератор для разработки и тестов: без внешних вызовов
// возвращает JPEG, цвет которого зависит от входных данных.
type Fake struct{}

// NewFake создаёт локальный генератор.
func NewFake() *Fake {
	return &Fake{}
}

// Generate возвращает JPEG 64x64, цвет — первые байты SHA-256 от входа.
func (Fake) Generate(ctx context.Context, req Request) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fail(FakeID, "запрос отменён", err)
	}
	if len(req.Body.Data) == 0 || len(req.Garments) == 0 {
		return nil, fail(FakeID, "нет входных изображений", nil)
	}

	h := sha256.New()
	h.Write(req.Body.Data)
	for _, g := range req.Garments {
		h.Write(g.Data)
	}
	h.Write([]byte(req.Prompt))
	sum := h.Sum(nil)

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	fill := color.RGBA{R: sum[0], G: sum[1], B: sum[2], A: 255}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, fill)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fail(FakeID, "ошибка кодирования JPEG", err)
	}
	return buf.Bytes(), nil
}
