package splice

import (
	"strings"
	"unicode/utf8"
)

// BlockGlyph is the full-width placeholder character (U+2588).
const BlockGlyph = "█"

// fullWidthPunctuation is the fixed set of punctuation classified as
// full-width alongside the CJK ideograph range.
const fullWidthPunctuation = "，。、；：“”‘’（）【】《》"

func isFullWidth(r rune) bool {
	if r >= 0x4e00 && r <= 0x9fff {
		return true
	}
	return strings.ContainsRune(fullWidthPunctuation, r)
}

// PlaceholderStrategy builds the replacement text for one matched span. Every
// strategy must return a placeholder with exactly the match's character
// count, so equal-length replacement stays possible.
type PlaceholderStrategy interface {
	Build(original, maskChar string) string
}

// WidthAwarePlaceholder classifies each matched character as full-width or
// half-width and emits the block glyph once per full-width character followed
// by the mask character once per half-width character. Per-character
// positions inside the match are not preserved, only the two aggregate
// counts; the total length always equals the match length.
type WidthAwarePlaceholder struct{}

func (WidthAwarePlaceholder) Build(original, maskChar string) string {
	if maskChar == "" {
		maskChar = "*"
	}
	fullWidth, halfWidth := 0, 0
	for _, r := range original {
		if isFullWidth(r) {
			fullWidth++
		} else {
			halfWidth++
		}
	}
	return strings.Repeat(BlockGlyph, fullWidth) + strings.Repeat(maskChar, halfWidth)
}

// UniformPlaceholder emits the block glyph for every matched character
// regardless of width class. Used by the entity suffix pass.
type UniformPlaceholder struct{}

func (UniformPlaceholder) Build(original, _ string) string {
	return strings.Repeat(BlockGlyph, utf8.RuneCountInString(original))
}
