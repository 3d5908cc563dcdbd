package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/db/dbmock"
	"github.com/jusunglee/hanjahangul/internal/db/sqlite"
	"github.com/jusunglee/hanjahangul/internal/logger"
	"github.com/jusunglee/hanjahangul/internal/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newHistoryFixture(t *testing.T) (*http.ServeMux, *sqlite.Repository) {
	t.Helper()
	ctx := context.Background()
	repo, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	for _, p := range []db.CreateConversionParams{
		{InputText: "女子", OutputText: sql.NullString{String: "여자", Valid: true}, Converted: true, Surface: "web"},
		{InputText: "hello", Surface: "web"},
		{InputText: "李", OutputText: sql.NullString{String: "리", Valid: true}, Converted: true, Surface: "bot"},
	} {
		_, err := repo.CreateConversion(ctx, p)
		require.NoError(t, err)
	}

	h := NewHistoryHandler(repo, logger.Discard())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /conversions", h.List)
	mux.HandleFunc("GET /conversions/{id}", h.Get)
	mux.HandleFunc("POST /conversions/{id}/feedback", h.CreateFeedback)
	mux.HandleFunc("GET /feedback", h.ListFeedback)
	return mux, repo
}

func serve(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHistoryList(t *testing.T) {
	mux, _ := newHistoryFixture(t)

	var resp struct {
		Data       []conversionResponse `json:"data"`
		Pagination paginationMeta       `json:"pagination"`
	}
	rec := serve(mux, http.MethodGet, "/conversions?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Limit)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "李", resp.Data[0].InputText)

	rec = serve(mux, http.MethodGet, "/conversions?converted=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "hello", resp.Data[0].InputText)
	assert.Nil(t, resp.Data[0].ConvertedText)

	rec = serve(mux, http.MethodGet, "/conversions?converted=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryGet(t *testing.T) {
	mux, _ := newHistoryFixture(t)

	rec := serve(mux, http.MethodGet, "/conversions/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c conversionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "女子", c.InputText)
	require.NotNil(t, c.ConvertedText)
	assert.Equal(t, "여자", *c.ConvertedText)

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodGet, "/conversions/99", "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodGet, "/conversions/abc", "").Code)
}

func TestFeedback(t *testing.T) {
	mux, repo := newHistoryFixture(t)

	rec := serve(mux, http.MethodPost, "/conversions/3/feedback", `{"text":"  should read 이  "}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var fb feedbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fb))
	assert.Equal(t, int64(3), fb.ConversionID)
	assert.Equal(t, "should read 이", fb.FeedbackText)

	n, err := repo.CountFeedback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.Equal(t, http.StatusNotFound, serve(mux, http.MethodPost, "/conversions/99/feedback", `{"text":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodPost, "/conversions/3/feedback", `{"text":"  "}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodPost, "/conversions/3/feedback", `{`).Code)

	// limit counts characters, not bytes
	ok := `{"text":"` + strings.Repeat("이", 500) + `"}`
	assert.Equal(t, http.StatusCreated, serve(mux, http.MethodPost, "/conversions/3/feedback", ok).Code)
	long := `{"text":"` + strings.Repeat("이", 501) + `"}`
	assert.Equal(t, http.StatusBadRequest, serve(mux, http.MethodPost, "/conversions/3/feedback", long).Code)

	rec = serve(mux, http.MethodGet, "/feedback", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data       []adminFeedbackRow `json:"data"`
		Pagination paginationMeta     `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(2), list.Pagination.Total)
	require.Len(t, list.Data, 2)
	assert.Equal(t, "李", list.Data[1].InputText)
}

func TestHistoryListRepositoryError(t *testing.T) {
	repo := &dbmock.Repository{}
	repo.On("CountConversions", mock.Anything, mock.Anything).Return(int64(0), errors.New("boom"))

	h := NewHistoryHandler(repo, logger.Discard())
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/conversions", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestHistoryListPageRange(t *testing.T) {
	mux, _ := newHistoryFixture(t)

	tests := []struct {
		name     string
		target   string
		wantCode int
		wantRows int
	}{
		{"first page", "/conversions?page=1&limit=100", http.StatusOK, 3},
		{"past the end", "/conversions?page=2&limit=100", http.StatusOK, 0},
		{"last int32 offset", "/conversions?page=21474837&limit=100", http.StatusOK, 0},
		{"offset overflows int32", "/conversions?page=30000000&limit=100", http.StatusBadRequest, 0},
		{"huge page", "/conversions?page=9223372036854775807", http.StatusBadRequest, 0},
		{"feedback overflows int32", "/feedback?page=30000000&limit=100", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(mux, http.MethodGet, tt.target, "")
			require.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode != http.StatusOK {
				assert.JSONEq(t, `{"error":"page out of range"}`, rec.Body.String())
				return
			}
			var resp struct {
				Data []json.RawMessage `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Len(t, resp.Data, tt.wantRows)
		})
	}
}

func TestFeedbackBodyTooLarge(t *testing.T) {
	mux, _ := newHistoryFixture(t)
	limited := middleware.MaxBodyBytes(16)(mux)

	body := `{"text":"` + strings.Repeat("x", 64) + `"}`
	rec := serve(limited, http.MethodPost, "/conversions/1/feedback", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())
}
