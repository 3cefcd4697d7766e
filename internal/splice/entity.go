package splice

import (
	"regexp"
	"strings"

	"github.com/docshield/docshield/internal/document"
	"go.uber.org/zap"
)

// entityPattern matches an organization name (CJK, latin, digits and
// parentheses) immediately followed by a classifier suffix.
var entityPattern = regexp.MustCompile(`[\x{4e00}-\x{9fa5}a-zA-Z0-9()（）]{2,30}(?:有限公司|股份有限公司|有限责任公司|集团有限公司|公司)`)

// entitySuffixes are tried longest first so 股份有限公司 never loses its
// leading characters to the shorter 公司.
var entitySuffixes = []string{
	"股份有限公司",
	"有限责任公司",
	"集团有限公司",
	"有限公司",
	"公司",
}

// EntitySuffixMasker is the second, whole-paragraph pass: it masks the name
// portion of an organization with the uniform block placeholder and copies
// the suffix verbatim. Matching runs over the concatenated paragraph text;
// the uniform placeholder keeps the character count, so the write-back
// slices the masked text over the original run boundaries.
type EntitySuffixMasker struct {
	placeholder PlaceholderStrategy
	logger      *zap.Logger
}

// NewEntitySuffixMasker creates the pass with the uniform placeholder.
func NewEntitySuffixMasker(logger *zap.Logger) *EntitySuffixMasker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitySuffixMasker{placeholder: UniformPlaceholder{}, logger: logger}
}

// ProcessDocument applies the pass to the body, every (nested) table cell and
// every header/footer paragraph.
func (m *EntitySuffixMasker) ProcessDocument(doc *document.Document) {
	doc.WalkParagraphs(m.ProcessParagraph)
}

// ProcessParagraph masks organization names in one paragraph.
func (m *EntitySuffixMasker) ProcessParagraph(p *document.Paragraph) {
	segments, text := Collect(p)
	if text == "" {
		return
	}

	masked := entityPattern.ReplaceAllStringFunc(text, m.maskEntity)
	if masked == text {
		return
	}

	Commit(p, segments, text, masked)
	m.logger.Debug("entity names masked", zap.Int("chars", len(masked)))
}

// MaskText applies the same masking to a flat string. Used by the flat-text
// path and by tests.
func (m *EntitySuffixMasker) MaskText(text string) string {
	return entityPattern.ReplaceAllStringFunc(text, m.maskEntity)
}

func (m *EntitySuffixMasker) maskEntity(match string) string {
	for _, suffix := range entitySuffixes {
		if strings.HasSuffix(match, suffix) {
			name := strings.TrimSuffix(match, suffix)
			return m.placeholder.Build(name, "") + suffix
		}
	}
	// No recognized suffix: mask the whole match.
	return m.placeholder.Build(match, "")
}
