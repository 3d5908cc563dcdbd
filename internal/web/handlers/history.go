package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/web/middleware"
	"github.com/samber/lo"
)

const maxFeedbackRunes = 500

type HistoryHandler struct {
	repo db.Repository
	log  *slog.Logger
}

func NewHistoryHandler(repo db.Repository, log *slog.Logger) *HistoryHandler {
	return &HistoryHandler{repo: repo, log: log}
}

type conversionResponse struct {
	ID            int64   `json:"id"`
	InputText     string  `json:"input_text"`
	ConvertedText *string `json:"converted_text,omitempty"`
	Converted     bool    `json:"converted"`
	Surface       string  `json:"surface"`
	CreatedAt     string  `json:"created_at"`
}

func toConversionResponse(c db.Conversion) conversionResponse {
	resp := conversionResponse{
		ID:        c.ID,
		InputText: c.InputText,
		Converted: c.Converted,
		Surface:   c.Surface,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
	if c.OutputText.Valid {
		resp.ConvertedText = &c.OutputText.String
	}
	return resp
}

// parseConvertedFilter accepts "", "true" or "false".
func parseConvertedFilter(s string) (sql.NullBool, bool) {
	if s == "" {
		return sql.NullBool{}, true
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return sql.NullBool{}, false
	}
	return sql.NullBool{Bool: b, Valid: true}, true
}

func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseConvertedFilter(r.URL.Query().Get("converted"))
	if !ok {
		writeError(w, http.StatusBadRequest, "converted must be true or false")
		return
	}
	page, limit, offset, ok := pagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "page out of range")
		return
	}

	total, err := h.repo.CountConversions(r.Context(), db.CountConversionsParams{Converted: filter})
	if err != nil {
		h.log.ErrorContext(r.Context(), "counting conversions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows, err := h.repo.ListConversions(r.Context(), db.ListConversionsParams{
		Converted: filter,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		h.log.ErrorContext(r.Context(), "listing conversions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Data       []conversionResponse `json:"data"`
		Pagination paginationMeta       `json:"pagination"`
	}{
		Data: lo.Map(rows, func(c db.Conversion, _ int) conversionResponse { return toConversionResponse(c) }),
		Pagination: paginationMeta{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}

func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	c, err := h.repo.GetConversion(r.Context(), id)
	if err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		h.log.ErrorContext(r.Context(), "getting conversion", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, toConversionResponse(c))
}

type createFeedbackRequest struct {
	Text string `json:"text"`
}

type feedbackResponse struct {
	ID           int64  `json:"id"`
	ConversionID int64  `json:"conversion_id"`
	FeedbackText string `json:"feedback_text"`
	CreatedAt    string `json:"created_at"`
}

func (h *HistoryHandler) CreateFeedback(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req createFeedbackRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if utf8.RuneCountInString(text) > maxFeedbackRunes {
		writeError(w, http.StatusBadRequest, "feedback text must be 500 characters or fewer")
		return
	}

	fb, err := h.repo.CreateFeedback(r.Context(), db.CreateFeedbackParams{
		ConversionID: id,
		ClientHash:   history.HashClient(middleware.ClientIP(r)),
		FeedbackText: text,
	})
	if err != nil {
		if db.IsNoRows(err) {
			writeError(w, http.StatusNotFound, "conversion not found")
			return
		}
		h.log.ErrorContext(r.Context(), "creating feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, feedbackResponse{
		ID:           fb.ID,
		ConversionID: fb.ConversionID,
		FeedbackText: fb.FeedbackText,
		CreatedAt:    fb.CreatedAt.Format(time.RFC3339),
	})
}

type adminFeedbackRow struct {
	ID            int64   `json:"id"`
	ConversionID  int64   `json:"conversion_id"`
	FeedbackText  string  `json:"feedback_text"`
	InputText     string  `json:"input_text"`
	ConvertedText *string `json:"converted_text,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// ListFeedback is the admin view of submitted corrections.
func (h *HistoryHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, ok := pagination(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "page out of range")
		return
	}

	total, err := h.repo.CountFeedback(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "counting feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows, err := h.repo.ListFeedback(r.Context(), db.ListFeedbackParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		h.log.ErrorContext(r.Context(), "listing feedback", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	data := make([]adminFeedbackRow, len(rows))
	for i, row := range rows {
		data[i] = adminFeedbackRow{
			ID:           row.ID,
			ConversionID: row.ConversionID,
			FeedbackText: row.FeedbackText,
			InputText:    row.InputText,
			CreatedAt:    row.CreatedAt.Format(time.RFC3339),
		}
		if row.OutputText.Valid {
			data[i].ConvertedText = &row.OutputText.String
		}
	}

	writeJSON(w, http.StatusOK, struct {
		Data       []adminFeedbackRow `json:"data"`
		Pagination paginationMeta     `json:"pagination"`
	}{
		Data: data,
		Pagination: paginationMeta{
			Page:  page,
			Limit: limit,
			Total: total,
		},
	})
}
