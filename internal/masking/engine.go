package masking

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/errs"
	"go.uber.org/zap"
)

// keywordSeparators split user-supplied keyword lists. ASCII and full-width
// comma/semicolon variants plus newlines are all accepted.
var keywordSeparators = regexp.MustCompile(`[\n,;，；]`)

// NormalizeKeywords splits raw keyword input into trimmed, non-empty tokens.
// Order is preserved and duplicates are kept.
func NormalizeKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := keywordSeparators.Split(raw, -1)
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// MaskFull replaces every literal occurrence of keyword with the mask
// character repeated to the keyword's character count. Length-preserving per
// match. The keyword is always regex-escaped before use.
func MaskFull(text, keyword, maskChar string) string {
	if keyword == "" {
		return text
	}
	re := regexp.MustCompile(regexp.QuoteMeta(keyword))
	return re.ReplaceAllLiteralString(text, strings.Repeat(maskChar, utf8.RuneCountInString(keyword)))
}

// MaskPartial keeps the first preserveChars characters of each literal
// occurrence and masks the remainder. Matches no longer than preserveChars
// are left untouched.
func MaskPartial(text, keyword string, preserveChars int, maskChar string) string {
	if keyword == "" {
		return text
	}
	re := regexp.MustCompile(regexp.QuoteMeta(keyword))
	return re.ReplaceAllStringFunc(text, func(match string) string {
		return maskTail(match, preserveChars, maskChar)
	})
}

// MaskRegex applies the partial policy driven by a compiled pattern and
// returns the masked text with the match count.
//
// Special case: when preserveChars is zero and the match carries an
// organization marker token, the trailing classifier suffix (longest first)
// is copied verbatim and only the name portion is masked. This fires for any
// pattern that produces such a match, not just the org-name detector.
func MaskRegex(text string, pattern *regexp.Regexp, preserveChars int, maskChar string) (string, int) {
	count := 0
	masked := pattern.ReplaceAllStringFunc(text, func(match string) string {
		count++
		if preserveChars == 0 && containsEntityMarker(match) {
			for _, suffix := range entitySuffixes {
				if strings.HasSuffix(match, suffix) {
					name := strings.TrimSuffix(match, suffix)
					return strings.Repeat(maskChar, utf8.RuneCountInString(name)) + suffix
				}
			}
		}
		return maskTail(match, preserveChars, maskChar)
	})
	return masked, count
}

func containsEntityMarker(s string) bool {
	for _, marker := range entityMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// maskTail keeps the first preserveChars runes and masks the rest. Short
// matches are returned byte-identical.
func maskTail(match string, preserveChars int, maskChar string) string {
	runes := []rune(match)
	if len(runes) <= preserveChars {
		return match
	}
	return string(runes[:preserveChars]) + strings.Repeat(maskChar, len(runes)-preserveChars)
}

// Engine applies keyword-based and catalog-based masking to flat text.
type Engine struct {
	catalog *Catalog
	logger  *zap.Logger
}

// NewEngine creates a masking engine over the given catalog.
func NewEngine(catalog *Catalog, logger *zap.Logger) *Engine {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{catalog: catalog, logger: logger}
}

// Catalog exposes the engine's pattern catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// ApplySmartDetection runs every catalog detector in catalog order. Each
// detector re-scans the output of the previous one, so composition is
// sequential and order-dependent: a later pattern can observe characters an
// earlier pattern introduced. The order is a documented contract.
func (e *Engine) ApplySmartDetection(text string) (string, map[string]int) {
	stats := make(map[string]int)
	result := text

	for _, entry := range e.catalog.Entries() {
		var count int
		result, count = MaskRegex(result, entry.Pattern, entry.PreserveChars, entry.MaskChar)
		if count > 0 {
			stats[entry.Name] = count
			e.logger.Debug("sensitive data masked",
				zap.String("category", entry.Name),
				zap.Int("count", count),
			)
		}
	}

	return result, stats
}

// ValidateRequest enforces the caller-level input contract: text must be
// non-empty and at least one masking source (keywords or smart detection)
// must be active.
func ValidateRequest(text string, keywords []string, enableSmart bool) error {
	if strings.TrimSpace(text) == "" {
		return errs.Validation("input text is empty")
	}
	if len(keywords) == 0 && !enableSmart {
		return errs.Validation("no keywords given and smart detection is disabled")
	}
	return nil
}

// BuildMaskedText applies keyword masking per mode in list order, then smart
// detection when enabled, and returns the masked text with combined stats.
// The mode handler is selected once, before the keyword loop.
func (e *Engine) BuildMaskedText(text string, keywords []string, mode MaskMode, preserveChars int, maskChar string, enableSmart bool) (string, MaskStats) {
	if maskChar == "" {
		maskChar = DefaultMaskChar
	}

	masked := text
	stats := MaskStats{
		ManualKeywords: len(keywords),
		SmartDetection: make(map[string]int),
	}

	if len(keywords) > 0 {
		var apply func(text, keyword string) string
		switch mode {
		case ModePartial:
			apply = func(t, kw string) string { return MaskPartial(t, kw, preserveChars, maskChar) }
		default:
			apply = func(t, kw string) string { return MaskFull(t, kw, maskChar) }
		}
		for _, keyword := range keywords {
			masked = apply(masked, keyword)
		}
	}

	if enableSmart {
		var smartStats map[string]int
		masked, smartStats = e.ApplySmartDetection(masked)
		stats.SmartDetection = smartStats
	}

	e.logger.Debug("masked text built",
		zap.Int("keywords", stats.ManualKeywords),
		zap.Int("smart_matches", stats.TotalSmart()),
		zap.Bool("smart_enabled", enableSmart),
	)

	return masked, stats
}
