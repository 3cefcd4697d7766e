// Package splice rewrites matched spans in place inside run-segmented
// paragraphs, keeping per-run styling stable. Two passes exist: RunSplicer
// (width-aware equal-length replacement against run boundaries) and
// EntitySuffixMasker (whole-paragraph organization-name masking with the
// classifier suffix kept).
package splice

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/masking"
	"go.uber.org/zap"
)

// Rule is one active replacement rule for a splicing pass. Patterns must be
// validated by the caller; the splicer itself never fails on well-formed
// input.
type Rule struct {
	Name        string
	Pattern     *regexp.Regexp
	MaskChar    string
	EqualLength bool
}

// BuildRules assembles the splicing rule set: one equal-length rule per
// escaped keyword, then every catalog detector except the organization-name
// one, which the entity suffix pass owns.
func BuildRules(keywords []string, catalog *masking.Catalog, maskChar string) []Rule {
	if maskChar == "" {
		maskChar = masking.DefaultMaskChar
	}
	var rules []Rule
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		rules = append(rules, Rule{
			Name:        "keyword",
			Pattern:     regexp.MustCompile(regexp.QuoteMeta(keyword)),
			MaskChar:    maskChar,
			EqualLength: true,
		})
	}
	for _, entry := range catalog.Entries() {
		if entry.Name == "org_name" {
			continue
		}
		rules = append(rules, Rule{
			Name:        entry.Name,
			Pattern:     entry.Pattern,
			MaskChar:    entry.MaskChar,
			EqualLength: true,
		})
	}
	return rules
}

// RunSegment is a snapshot of one styled run taken at collect time. Length is
// the cached character count; it is not recomputed if the run text changes.
type RunSegment struct {
	Index  int
	Text   string
	Length int
}

// TextReplacement is one half-open character span to overwrite in a
// paragraph's concatenated text.
type TextReplacement struct {
	Start       int
	End         int
	Original    string
	Replacement string
	EqualLength bool
}

// RunSplicer runs the Collect/Compute/Commit cycle over every paragraph of a
// document: body, table cells (nested tables included) and header/footer
// paragraphs.
type RunSplicer struct {
	rules       []Rule
	placeholder PlaceholderStrategy
	logger      *zap.Logger
}

// NewRunSplicer creates a splicer with the width-aware placeholder strategy.
func NewRunSplicer(rules []Rule, logger *zap.Logger) *RunSplicer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunSplicer{
		rules:       rules,
		placeholder: WidthAwarePlaceholder{},
		logger:      logger,
	}
}

// ProcessDocument applies the splicing pass to the whole document tree.
func (s *RunSplicer) ProcessDocument(doc *document.Document) {
	doc.WalkParagraphs(s.ProcessParagraph)
}

// ProcessParagraph runs one Collect/Compute/Commit cycle.
func (s *RunSplicer) ProcessParagraph(p *document.Paragraph) {
	segments, fullText := Collect(p)
	if fullText == "" {
		return
	}

	masked := s.Compute(fullText)
	if masked == fullText {
		return
	}

	Commit(p, segments, fullText, masked)
	s.logger.Debug("paragraph spliced",
		zap.Int("runs", len(segments)),
		zap.Int("chars", utf8.RuneCountInString(fullText)),
	)
}

// Collect reads the paragraph's runs in order and snapshots their texts and
// character counts. Style stays bound to the run objects and is never copied.
func Collect(p *document.Paragraph) ([]RunSegment, string) {
	segments := make([]RunSegment, 0, len(p.Runs))
	var sb strings.Builder
	for i, run := range p.Runs {
		text := run.Text()
		segments = append(segments, RunSegment{
			Index:  i,
			Text:   text,
			Length: utf8.RuneCountInString(text),
		})
		sb.WriteString(text)
	}
	return segments, sb.String()
}

// Compute evaluates every rule against the paragraph's concatenated text and
// builds the masked text. Equal-length rules are matched greedily left to
// right against the original text and their placeholders overwrite spans in
// place. Non-equal-length rules only mutate an intermediate buffer; whenever
// any equal-length rule produced replacements, those fully determine the
// committed text.
func (s *RunSplicer) Compute(fullText string) string {
	var replacements []TextReplacement
	masked := fullText

	for _, rule := range s.rules {
		if rule.EqualLength {
			for _, span := range rule.Pattern.FindAllStringIndex(fullText, -1) {
				original := fullText[span[0]:span[1]]
				start := utf8.RuneCountInString(fullText[:span[0]])
				replacements = append(replacements, TextReplacement{
					Start:       start,
					End:         start + utf8.RuneCountInString(original),
					Original:    original,
					Replacement: s.placeholder.Build(original, rule.MaskChar),
					EqualLength: true,
				})
			}
			continue
		}
		maskChar := rule.MaskChar
		if maskChar == "" {
			maskChar = masking.DefaultMaskChar
		}
		masked = rule.Pattern.ReplaceAllStringFunc(masked, func(m string) string {
			return strings.Repeat(maskChar, utf8.RuneCountInString(m))
		})
	}

	if len(replacements) > 0 {
		sort.SliceStable(replacements, func(i, j int) bool {
			return replacements[i].Start < replacements[j].Start
		})
		masked = ApplyReplacements(fullText, replacements)
	}
	return masked
}

// ApplyReplacements overwrites each replacement span character by character,
// index-aligned from the span's own start. Positions past the end of a
// shorter replacement text are left unchanged.
func ApplyReplacements(text string, replacements []TextReplacement) string {
	result := []rune(text)
	for i := len(replacements) - 1; i >= 0; i-- {
		repl := replacements[i]
		replacement := []rune(repl.Replacement)
		for pos := repl.Start; pos < repl.End && pos < len(result); pos++ {
			if offset := pos - repl.Start; offset < len(replacement) {
				result[pos] = replacement[offset]
			}
		}
	}
	return string(result)
}

// Commit writes the masked text back into the paragraph's runs. When the
// character count is unchanged, the masked text is sliced back over the
// original run lengths, which is what preserves per-run styling. When it
// changed, every run is cleared and the whole text is written into the first
// run; the first run's style is kept and the remaining runs stay in the tree
// empty.
func Commit(p *document.Paragraph, segments []RunSegment, fullText, masked string) {
	if len(p.Runs) == 0 {
		return
	}

	if utf8.RuneCountInString(masked) != utf8.RuneCountInString(fullText) {
		for _, run := range p.Runs {
			run.SetText("")
		}
		p.Runs[0].SetText(masked)
		return
	}

	runes := []rune(masked)
	pos := 0
	for _, segment := range segments {
		run := p.Runs[segment.Index]
		if segment.Length == 0 {
			run.SetText("")
			continue
		}
		end := pos + segment.Length
		if end > len(runes) {
			run.SetText(string(runes[pos:]))
			pos = len(runes)
			continue
		}
		run.SetText(string(runes[pos:end]))
		pos = end
	}
}
