package generator

import (
	"fmt"
	"strings"

	"github.com/bigkaa/goartstore/fitting-module/internal/domain/model"
)

const (
	singleGarmentPrompt = "Create a professional e-commerce fashion photo. " +
		"Take the clothing from the first image and let the woman from the second image wear it. " +
		"Generate a realistic, full-body shot of the woman wearing the clothing, " +
		"with the lighting and shadows adjusted to match the environment."

	multiGarmentPrompt = "Create a professional e-commerce fashion photo. " +
		"Take all %d clothing items from the first images and let the woman from the final image wear them together. " +
		"Generate a realistic, full-body shot with adjusted lighting and shadows."
)

// partHints — уточнение для вещи с известной частью тела.
var partHints = map[model.Part]string{
	model.PartUpper:   "an upper-body garment (top)",
	model.PartLower:   "a lower-body garment (bottom)",
	model.PartFullSet: "a full-body outfit",
}

// BuildPrompt строит промпт по эффективным частям тела вещей.
// len(parts) — количество вещей; "" — часть не определена, подсказка не добавляется.
// Чистая функция: одинаковый вход даёт одинаковый текст.
func BuildPrompt(parts []model.Part) string {
	var b strings.Builder
	if len(parts) <= 1 {
		b.WriteString(singleGarmentPrompt)
	} else {
		fmt.Fprintf(&b, multiGarmentPrompt, len(parts))
	}

	for i, p := range parts {
		hint, ok := partHints[p]
		if !ok {
			continue
		}
		if len(parts) == 1 {
			fmt.Fprintf(&b, "\nThe clothing item is %s.", hint)
		} else {
			fmt.Fprintf(&b, "\nClothing item %d is %s.", i+1, hint)
		}
	}
	return b.String()
}
