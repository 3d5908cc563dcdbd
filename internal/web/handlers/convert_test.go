package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jusunglee/hanjahangul/internal/db"
	"github.com/jusunglee/hanjahangul/internal/hanja"
	"github.com/jusunglee/hanjahangul/internal/history"
	"github.com/jusunglee/hanjahangul/internal/logger"
	"github.com/jusunglee/hanjahangul/internal/web/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) Record(rec history.Record) bool {
	ret := m.Called(rec)
	return ret.Bool(0)
}

func (m *MockRecorder) Save(ctx context.Context, rec history.Record) (db.Conversion, error) {
	ret := m.Called(ctx, rec)
	return ret.Get(0).(db.Conversion), ret.Error(1)
}

func testDictionary() *hanja.Dictionary {
	return hanja.Build(
		[]hanja.Entry{{Key: "李", Value: "리"}, {Key: "女", Value: "녀"}, {Key: "子", Value: "자"}},
		[]hanja.Entry{{Key: "리", Value: "이"}, {Key: "녀", Value: "여"}},
		[]hanja.Entry{{Key: "女子", Value: "여자"}},
	)
}

func postJSON(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.9:1234"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestConvertLegacy(t *testing.T) {
	h := NewConvertHandler(testDictionary(), nil, logger.Discard())

	tests := []struct {
		name string
		body string
		want string
	}{
		{"word", `{"text":"女子"}`, "여자"},
		{"adjusted before hangul", `{"text":"李가"}`, "이가"},
		{"mixed", `{"text":"abc 女子 def"}`, "abc 여자 def"},
		{"no hanja", `{"text":"hello"}`, FallbackMessage},
		{"empty", `{"text":""}`, FallbackMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h.Convert, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			var resp legacyConvertResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.ConvertedText)
		})
	}
}

func TestConvertBadRequests(t *testing.T) {
	h := NewConvertHandler(testDictionary(), nil, logger.Discard())

	rec := postJSON(t, h.Convert, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, h.ConvertAPI, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "text is required")
}

func TestConvertBodyTooLarge(t *testing.T) {
	h := NewConvertHandler(testDictionary(), nil, logger.Discard())
	limited := middleware.MaxBodyBytes(16)(http.HandlerFunc(h.Convert))

	req := httptest.NewRequest(http.MethodPost, "/convert", strings.NewReader(`{"text":"`+strings.Repeat("李", 100)+`"}`))
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestConvertRecordsAsync(t *testing.T) {
	recorder := &MockRecorder{}
	recorder.On("Record", mock.MatchedBy(func(rec history.Record) bool {
		out, ok := rec.Result.Value()
		return rec.Input == "女子" && ok && out == "여자" && rec.Surface == "web" && rec.ClientIP == "203.0.113.9"
	})).Return(true).Once()

	h := NewConvertHandler(testDictionary(), recorder, logger.Discard())
	rec := postJSON(t, h.Convert, `{"text":"女子"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	recorder.AssertExpectations(t)
}

func TestConvertAPI(t *testing.T) {
	recorder := &MockRecorder{}
	recorder.On("Save", mock.Anything, mock.Anything).Return(db.Conversion{ID: 42}, nil).Once()
	recorder.On("Save", mock.Anything, mock.Anything).Return(db.Conversion{}, errors.New("db down")).Once()

	h := NewConvertHandler(testDictionary(), recorder, logger.Discard())

	rec := postJSON(t, h.ConvertAPI, `{"text":"女子"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"converted":true,"converted_text":"여자","romanized":"yeoja"}`, rec.Body.String())

	// history failure still answers, without an id
	rec = postJSON(t, h.ConvertAPI, `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"converted":false,"converted_text":"hello"}`, rec.Body.String())

	recorder.AssertExpectations(t)
}

func TestConvertAPIWithoutRecorder(t *testing.T) {
	h := NewConvertHandler(testDictionary(), nil, logger.Discard())
	rec := postJSON(t, h.ConvertAPI, `{"text":"李子"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"converted":true,"converted_text":"이자","romanized":"ija"}`, rec.Body.String())
}

func TestDictionaryStats(t *testing.T) {
	h := NewDictionaryHandler(testDictionary(), "embed")
	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dictionary", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"source":"embed","chars":3,"initials":2,"words":1}`, rec.Body.String())
}
