// Package pipeline orchestrates one masking or restore invocation: text
// extraction, masking or run-level splicing, encryption and packaging. The
// steps are strictly sequential; a started operation runs to completion or
// returns an error with no partial output.
package pipeline

import (
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/config"
	"github.com/docshield/docshield/internal/crypto"
	"github.com/docshield/docshield/internal/document"
	"github.com/docshield/docshield/internal/errs"
	"github.com/docshield/docshield/internal/files"
	"github.com/docshield/docshield/internal/masking"
	"github.com/docshield/docshield/internal/splice"
	"go.uber.org/zap"
)

// Options carries one invocation's masking policy. Unset fields fall back to
// the configured defaults; PreserveChars is a pointer so an explicit zero is
// distinguishable from unset.
type Options struct {
	Keywords      []string
	Mode          masking.MaskMode
	PreserveChars *int
	MaskChar      string
	EnableSmart   bool
	Password      string
}

// TextResult is the outcome of the flat-text path.
type TextResult struct {
	MaskedText string
	Stats      masking.MaskStats
	Payload    *crypto.RestorePayload
}

// DocumentResult is the outcome of the structured-document path.
type DocumentResult struct {
	Bundle     []byte
	Stamp      string
	Stats      masking.MaskStats
	Payload    *crypto.RestorePayload
	Collapsed  bool // true when the degraded regenerate path was used
	DurationMS float64
}

// Service wires the masking engine, splicing passes and encryption gateway
// into the two masking paths plus restore.
type Service struct {
	cfg    *config.Config
	engine *masking.Engine
	logger *zap.Logger
}

// New creates a pipeline service over one immutable catalog.
func New(cfg *config.Config, engine *masking.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{cfg: cfg, engine: engine, logger: logger}
}

// Engine exposes the underlying masking engine.
func (s *Service) Engine() *masking.Engine { return s.engine }

func (s *Service) fill(opts *Options) {
	if opts.Mode == "" {
		opts.Mode = masking.MaskMode(s.cfg.Masking.DefaultMode)
	}
	if opts.PreserveChars == nil {
		n := s.cfg.Masking.PreserveChars
		opts.PreserveChars = &n
	}
	if opts.MaskChar == "" {
		opts.MaskChar = s.cfg.Masking.MaskChar
	}
}

func (s *Service) checkPassword(password string, required bool) error {
	if password == "" {
		if required {
			return errs.Validation("password is required")
		}
		return nil
	}
	if utf8.RuneCountInString(password) < s.cfg.Crypto.MinPasswordLength {
		return errs.Validation("password must be at least %d characters", s.cfg.Crypto.MinPasswordLength)
	}
	return nil
}

// MaskText runs the flat-text path. When a password is supplied the original
// text is sealed into a restore payload alongside the masked output.
func (s *Service) MaskText(text string, opts Options) (*TextResult, error) {
	s.fill(&opts)
	if err := masking.ValidateRequest(text, opts.Keywords, opts.EnableSmart); err != nil {
		return nil, err
	}
	if err := s.checkPassword(opts.Password, false); err != nil {
		return nil, err
	}

	masked, stats := s.engine.BuildMaskedText(text, opts.Keywords, opts.Mode, *opts.PreserveChars, opts.MaskChar, opts.EnableSmart)

	result := &TextResult{MaskedText: masked, Stats: stats}
	if opts.Password != "" {
		payload, err := crypto.Encrypt(text, opts.Password, opts.Keywords)
		if err != nil {
			return nil, err
		}
		result.Payload = payload
	}
	return result, nil
}

// MaskDocument runs the structured path for DOCX input and the degraded
// extract-and-regenerate path for everything else, then seals the original
// text and packs the output bundle.
func (s *Service) MaskDocument(filename string, data []byte, opts Options) (*DocumentResult, error) {
	start := time.Now()
	s.fill(&opts)
	if err := s.checkPassword(opts.Password, true); err != nil {
		return nil, err
	}
	if len(opts.Keywords) == 0 && !opts.EnableSmart {
		return nil, errs.Validation("no keywords given and smart detection is disabled")
	}

	var (
		maskedDocx   []byte
		originalText string
		stats        masking.MaskStats
		collapsed    bool
	)

	if strings.EqualFold(filepath.Ext(filename), ".docx") {
		doc, text, docStats, err := s.spliceDocx(filename, data, opts)
		if err != nil {
			return nil, err
		}
		maskedDocx, originalText, stats = doc, text, docStats
	} else {
		text, err := files.ExtractText(filename, data, s.cfg.Files.MaxFileSizeMB)
		if err != nil {
			return nil, err
		}
		if err := masking.ValidateRequest(text, opts.Keywords, opts.EnableSmart); err != nil {
			return nil, err
		}
		var masked string
		masked, stats = s.engine.BuildMaskedText(text, opts.Keywords, opts.Mode, *opts.PreserveChars, opts.MaskChar, opts.EnableSmart)
		built, err := document.BuildPlain(masked)
		if err != nil {
			return nil, err
		}
		maskedDocx, originalText, collapsed = built, text, true
	}

	payload, err := crypto.Encrypt(originalText, opts.Password, opts.Keywords)
	if err != nil {
		return nil, err
	}

	stamp := files.Stamp(time.Now())
	bundle, err := files.BuildBundle(maskedDocx, payload, stamp)
	if err != nil {
		return nil, err
	}

	durationMS := float64(time.Since(start).Microseconds()) / 1000
	s.logger.Info("document masked",
		zap.String("filename", filename),
		zap.Int("keywords", stats.ManualKeywords),
		zap.Int("smart_matches", stats.TotalSmart()),
		zap.Bool("collapsed", collapsed),
		zap.Float64("duration_ms", durationMS),
	)

	return &DocumentResult{
		Bundle:     bundle,
		Stamp:      stamp,
		Stats:      stats,
		Payload:    payload,
		Collapsed:  collapsed,
		DurationMS: durationMS,
	}, nil
}

// spliceDocx is the run-level structured path: equal-length splicing over
// every paragraph, followed by the entity suffix pass.
func (s *Service) spliceDocx(filename string, data []byte, opts Options) ([]byte, string, masking.MaskStats, error) {
	sizeMB := float64(len(data)) / (1024 * 1024)
	if sizeMB > float64(s.cfg.Files.MaxFileSizeMB) {
		return nil, "", masking.MaskStats{}, errs.SizeLimit("file is %.1fMB, the limit is %dMB", sizeMB, s.cfg.Files.MaxFileSizeMB)
	}

	docx, err := document.Load(data)
	if err != nil {
		return nil, "", masking.MaskStats{}, err
	}

	// The original text is captured before any mutation so the restore
	// payload holds the pre-masking content.
	originalText := docx.PlainText()
	if err := masking.ValidateRequest(originalText, opts.Keywords, opts.EnableSmart); err != nil {
		return nil, "", masking.MaskStats{}, err
	}

	// Flat-path masking of the extracted text yields the per-category match
	// counts; the document itself is rewritten run by run below.
	_, stats := s.engine.BuildMaskedText(originalText, opts.Keywords, opts.Mode, *opts.PreserveChars, opts.MaskChar, opts.EnableSmart)

	var rules []splice.Rule
	if opts.EnableSmart {
		rules = splice.BuildRules(opts.Keywords, s.engine.Catalog(), opts.MaskChar)
	} else {
		rules = splice.BuildRules(opts.Keywords, emptyCatalog, opts.MaskChar)
	}
	splicer := splice.NewRunSplicer(rules, s.logger)
	splicer.ProcessDocument(docx.Document())

	if opts.EnableSmart && s.cfg.Masking.PreserveEntitySuffix {
		entity := splice.NewEntitySuffixMasker(s.logger)
		entity.ProcessDocument(docx.Document())
	}

	maskedDocx, err := docx.Save()
	if err != nil {
		return nil, "", masking.MaskStats{}, err
	}
	return maskedDocx, originalText, stats, nil
}

// emptyCatalog backs keyword-only splicing runs.
var emptyCatalog = new(masking.Catalog)

// Restore decrypts a restore payload back to the original text.
func (s *Service) Restore(payloadJSON []byte, password string) (string, *crypto.RestorePayload, error) {
	if strings.TrimSpace(password) == "" {
		return "", nil, errs.Validation("password is required")
	}
	payload, err := crypto.ParsePayload(payloadJSON)
	if err != nil {
		return "", nil, err
	}
	text, err := crypto.Decrypt(payload, password)
	if err != nil {
		return "", nil, err
	}
	return text, payload, nil
}
