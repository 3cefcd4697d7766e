package masking

import "regexp"

// MaskMode selects how a keyword or pattern match is rewritten.
type MaskMode string

const (
	// ModeFull replaces every matched character with the mask character.
	ModeFull MaskMode = "full"
	// ModePartial keeps the first PreserveChars characters and masks the rest.
	ModePartial MaskMode = "partial"
	// ModeRegex applies the partial policy driven by a regular expression.
	ModeRegex MaskMode = "regex"
	// ModeSmart runs the full pattern catalog.
	ModeSmart MaskMode = "smart"
)

// MaskPattern is a single named detector: a compiled regular expression plus
// its masking policy.
type MaskPattern struct {
	Name          string
	Pattern       *regexp.Regexp
	Mode          MaskMode
	PreserveChars int
	MaskChar      string
	Description   string
}

// MaskStats summarizes one masking run. Counts are match counts, not
// character counts; overlapping matches from different categories are each
// counted independently. Built once per run and never mutated after return.
type MaskStats struct {
	ManualKeywords int            `json:"manual_keywords"`
	SmartDetection map[string]int `json:"smart_detection"`
}

// TotalSmart returns the sum of all per-category match counts.
func (s MaskStats) TotalSmart() int {
	total := 0
	for _, n := range s.SmartDetection {
		total += n
	}
	return total
}

// Finding is a per-category detection result, used by the event stream and
// the audit log.
type Finding struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Findings flattens the smart-detection stats into catalog order.
func (s MaskStats) Findings(catalog *Catalog) []Finding {
	findings := make([]Finding, 0, len(s.SmartDetection))
	for _, entry := range catalog.Entries() {
		if n, ok := s.SmartDetection[entry.Name]; ok && n > 0 {
			findings = append(findings, Finding{Category: entry.Name, Count: n})
		}
	}
	return findings
}
