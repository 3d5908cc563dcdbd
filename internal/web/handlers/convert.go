package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/metrics"
	"github.com/jusunglee/hanjahangul/internal/transliteration"
	"github.com/jusunglee/hanjahangul/internal/web/middleware"
)

// FallbackMessage is returned by /convert when nothing could be converted.
const FallbackMessage = hanja.FallbackMessage

const surfaceWeb = "web"

type Converter interface {
	Convert(input string) hanja.Result
}

// Recorder stores conversions. Record must not block.
type Recorder interface {
	Record(rec history.Record) bool
	Save(ctx context.Context, rec history.Record) (db.Conversion, error)
}

type ConvertHandler struct {
	conv     Converter
	recorder Recorder
	log      *slog.Logger
}

// NewConvertHandler returns a handler; recorder may be nil.
func NewConvertHandler(conv Converter, recorder Recorder, log *slog.Logger) *ConvertHandler {
	return &ConvertHandler{conv: conv, recorder: recorder, log: log}
}

type convertRequest struct {
	Text *string `json:"text"`
}

type legacyConvertResponse struct {
	ConvertedText string `json:"converted_text"`
}

type convertResponse struct {
	ID            int64  `json:"id,omitempty"`
	Converted     bool   `json:"converted"`
	ConvertedText string `json:"converted_text"`
	Romanized     string `json:"romanized,omitempty"`
}

func decodeConvertRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req convertRequest
	if !decodeJSON(w, r, &req) {
		return "", false
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return "", false
	}
	return *req.Text, true
}

func (h *ConvertHandler) convert(r *http.Request, text string) (history.Record, hanja.Result) {
	result := h.conv.Convert(text)
	metrics.RecordConversion(surfaceWeb, utf8.RuneCountInString(text), result.Converted())
	return history.Record{
		Input:    text,
		Result:   result,
		Surface:  surfaceWeb,
		ClientIP: middleware.ClientIP(r),
	}, result
}

// Convert serves the form endpoint: unchanged input maps to FallbackMessage.
func (h *ConvertHandler) Convert(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeConvertRequest(w, r)
	if !ok {
		return
	}

	rec, result := h.convert(r, text)
	if h.recorder != nil {
		h.recorder.Record(rec)
	}

	writeJSON(w, http.StatusOK, legacyConvertResponse{ConvertedText: result.Or(FallbackMessage)})
}

// ConvertAPI reports the result explicitly. Unchanged input is echoed back.
func (h *ConvertHandler) ConvertAPI(w http.ResponseWriter, r *http.Request) {
	text, ok := decodeConvertRequest(w, r)
	if !ok {
		return
	}

	rec, result := h.convert(r, text)
	out := result.Or(text)
	resp := convertResponse{
		Converted:     result.Converted(),
		ConvertedText: out,
		Romanized:     transliteration.Romanize(out),
	}

	if h.recorder != nil {
		c, err := h.recorder.Save(r.Context(), rec)
		if err != nil {
			// history is best effort
			h.log.WarnContext(r.Context(), "recording conversion", "error", err)
		} else {
			resp.ID = c.ID
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
