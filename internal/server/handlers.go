package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/docshield/docshield/internal/audit"
	"github.com/docshield/docshield/internal/cache"
	"github.com/docshield/docshield/internal/errs"
	"github.com/docshield/docshield/internal/masking"
	"github.com/docshield/docshield/internal/pipeline"
	"github.com/docshield/docshield/internal/websocket"
	"go.uber.org/zap"
)

// maskTextRequest is the JSON body of POST /api/v1/mask/text. Keywords may
// arrive as a list or as one raw string separated by newlines, commas or
// semicolons.
type maskTextRequest struct {
	Text          string   `json:"text"`
	Keywords      []string `json:"keywords,omitempty"`
	KeywordsText  string   `json:"keywords_text,omitempty"`
	Mode          string   `json:"mode,omitempty"`
	PreserveChars *int     `json:"preserve_chars,omitempty"`
	MaskChar      string   `json:"mask_char,omitempty"`
	EnableSmart   *bool    `json:"enable_smart,omitempty"`
	Password      string   `json:"password,omitempty"`
}

type maskTextResponse struct {
	MaskedText     string            `json:"masked_text"`
	Stats          masking.MaskStats `json:"stats"`
	TotalSmart     int               `json:"total_smart"`
	Findings       []masking.Finding `json:"findings"`
	RestorePayload json.RawMessage   `json:"restore_payload,omitempty"`
}

type restoreResponse struct {
	Text           string    `json:"text"`
	CreatedAt      time.Time `json:"created_at"`
	OriginalLength int       `json:"original_length"`
	MaskedKeywords []string  `json:"masked_keywords"`
}

// handleMaskText handles the flat-text masking endpoint
func (s *Server) handleMaskText(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req maskTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, errs.Validation("invalid JSON body: %v", err))
		return
	}

	opts := s.optionsFromRequest(req)
	result, err := s.service.MaskText(req.Text, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := maskTextResponse{
		MaskedText: result.MaskedText,
		Stats:      result.Stats,
		TotalSmart: result.Stats.TotalSmart(),
		Findings:   result.Stats.Findings(s.service.Engine().Catalog()),
	}
	if result.Payload != nil {
		payloadJSON, err := result.Payload.Marshal()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		resp.RestorePayload = payloadJSON
	}

	durationMS := float64(time.Since(start).Microseconds()) / 1000
	s.recordOperation(r, "mask_text", "", len(opts.Keywords), result.Stats, durationMS)
	writeJSON(w, http.StatusOK, resp)
}

// handleMaskDocument handles multipart document upload masking. The response
// is the output bundle: a ZIP holding the masked DOCX and the restore file.
func (s *Server) handleMaskDocument(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	maxBytes := int64(s.config.Files.MaxFileSizeMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, r, errs.Validation("invalid multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, errs.Validation("missing file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, errs.Validation("failed to read uploaded file: %v", err))
		return
	}

	opts := s.optionsFromForm(r)
	result, err := s.service.MaskDocument(header.Filename, data, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	durationMS := float64(time.Since(start).Microseconds()) / 1000
	s.recordOperation(r, "mask_document", header.Filename, len(opts.Keywords), result.Stats, durationMS)

	bundleName := fmt.Sprintf("docshield_%s.zip", result.Stamp)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, bundleName))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Bundle)))
	w.WriteHeader(http.StatusOK)
	w.Write(result.Bundle)
}

// handleRestore decrypts a restore payload. The payload arrives either as a
// multipart upload of the restore file or as an inline JSON body.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var (
		payloadJSON []byte
		password    string
	)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			s.writeError(w, r, errs.Validation("invalid multipart form: %v", err))
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, errs.Validation("missing file field"))
			return
		}
		defer file.Close()
		payloadJSON, err = io.ReadAll(file)
		if err != nil {
			s.writeError(w, r, errs.Validation("failed to read uploaded file: %v", err))
			return
		}
		password = r.FormValue("password")
	} else {
		var req struct {
			Payload  json.RawMessage `json:"payload"`
			Password string          `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errs.Validation("invalid JSON body: %v", err))
			return
		}
		payloadJSON = req.Payload
		password = req.Password
	}

	text, payload, err := s.service.Restore(payloadJSON, password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	createdAt, _ := time.Parse(time.RFC3339, payload.CreatedAt)
	keywords := payload.MaskedKeywords
	if keywords == nil {
		keywords = []string{}
	}

	durationMS := float64(time.Since(start).Microseconds()) / 1000
	s.recordOperation(r, "restore", "", len(keywords), masking.MaskStats{}, durationMS)

	writeJSON(w, http.StatusOK, restoreResponse{
		Text:           text,
		CreatedAt:      createdAt,
		OriginalLength: payload.OriginalLength,
		MaskedKeywords: keywords,
	})
}

// handlePatterns lists the detector catalog
func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	type patternInfo struct {
		Name          string `json:"name"`
		Description   string `json:"description"`
		Mode          string `json:"mode"`
		PreserveChars int    `json:"preserve_chars"`
	}

	entries := s.service.Engine().Catalog().Entries()
	patterns := make([]patternInfo, 0, len(entries))
	for _, entry := range entries {
		patterns = append(patterns, patternInfo{
			Name:          entry.Name,
			Description:   entry.Description,
			Mode:          string(entry.Mode),
			PreserveChars: entry.PreserveChars,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// handleStats aggregates dashboard statistics from the optional stores
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"uptime":            time.Since(s.started).Round(time.Second).String(),
		"connected_clients": s.wsHub.ClientCount(),
		"catalog_size":      len(s.service.Engine().Catalog().Entries()),
	}

	if s.cache != nil {
		if counters, err := s.cache.GetCounters(r.Context()); err == nil {
			resp["counters"] = counters
		} else {
			s.logger.Warn("Failed to read counters from cache", zap.Error(err))
		}
		if recent, err := s.cache.RecentOperations(r.Context()); err == nil {
			resp["recent"] = recent
		}
	}

	if s.audit != nil {
		if stats, err := s.audit.GetStats(r.Context()); err == nil {
			resp["audit"] = stats
		} else {
			s.logger.Warn("Failed to read audit stats", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) optionsFromRequest(req maskTextRequest) pipeline.Options {
	keywords := req.Keywords
	if len(keywords) == 0 && req.KeywordsText != "" {
		keywords = masking.NormalizeKeywords(req.KeywordsText)
	}
	enableSmart := s.config.Masking.EnableSmart
	if req.EnableSmart != nil {
		enableSmart = *req.EnableSmart
	}
	return pipeline.Options{
		Keywords:      keywords,
		Mode:          masking.MaskMode(req.Mode),
		PreserveChars: req.PreserveChars,
		MaskChar:      req.MaskChar,
		EnableSmart:   enableSmart,
		Password:      req.Password,
	}
}

func (s *Server) optionsFromForm(r *http.Request) pipeline.Options {
	enableSmart := s.config.Masking.EnableSmart
	if v := r.FormValue("enable_smart"); v != "" {
		enableSmart, _ = strconv.ParseBool(v)
	}
	var preserveChars *int
	if v := r.FormValue("preserve_chars"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			preserveChars = &n
		}
	}
	return pipeline.Options{
		Keywords:      masking.NormalizeKeywords(r.FormValue("keywords")),
		Mode:          masking.MaskMode(r.FormValue("mode")),
		PreserveChars: preserveChars,
		MaskChar:      r.FormValue("mask_char"),
		EnableSmart:   enableSmart,
		Password:      r.FormValue("password"),
	}
}

// recordOperation fans a completed operation out to the event stream, the
// stats cache and the audit trail. Only metadata leaves the handler.
func (s *Server) recordOperation(r *http.Request, operation, filename string, keywords int, stats masking.MaskStats, durationMS float64) {
	requestID := getRequestID(r.Context())
	findings := stats.Findings(s.service.Engine().Catalog())

	s.wsHub.BroadcastEvent(websocket.Event{
		Type:      websocket.EventTypeMasking,
		Timestamp: time.Now(),
		RequestID: requestID,
		Data: websocket.MaskingEvent{
			RequestID:    requestID,
			Operation:    operation,
			Filename:     filename,
			ClientIP:     getClientIP(r),
			Keywords:     keywords,
			Findings:     findings,
			TotalMatches: keywords + stats.TotalSmart(),
			ProcessingMS: durationMS,
		},
	})

	if s.cache != nil {
		record := &cache.OperationRecord{
			ID:           requestID,
			Operation:    operation,
			Filename:     filename,
			Keywords:     keywords,
			SmartMatches: stats.TotalSmart(),
			Categories:   stats.SmartDetection,
			DurationMS:   durationMS,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.cache.RecordOperation(r.Context(), record); err != nil {
			s.logger.Warn("Failed to record operation in cache", zap.Error(err))
		}
	}

	if s.audit != nil {
		categories, _ := json.Marshal(stats.SmartDetection)
		record := &audit.Record{
			OperationID:  requestID,
			Operation:    operation,
			Filename:     filename,
			Keywords:     keywords,
			SmartMatches: stats.TotalSmart(),
			Categories:   string(categories),
			DurationMS:   durationMS,
		}
		if err := s.audit.Insert(r.Context(), record); err != nil {
			s.logger.Warn("Failed to insert audit record", zap.Error(err))
		}
	}
}

// writeError maps pipeline errors to HTTP status codes. Only the typed
// error's message is exposed; wrapped causes stay in the logs.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var typed *errs.Error
	if errors.As(err, &typed) {
		message = typed.Msg
		switch typed.Kind {
		case errs.KindValidation:
			status = http.StatusBadRequest
		case errs.KindSizeLimit:
			status = http.StatusRequestEntityTooLarge
		case errs.KindFormat:
			status = http.StatusUnprocessableEntity
		case errs.KindCrypto:
			status = http.StatusBadRequest
		}
		s.logger.WithRequestID(getRequestID(r.Context())).Debug("Request rejected",
			zap.String("kind", typed.Kind.String()),
			zap.Error(err),
		)
	} else {
		s.logger.WithRequestID(getRequestID(r.Context())).Error("Unhandled request error", zap.Error(err))
	}

	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
