package handlers

import (
	"net/http"

	"github.com/jusunglee/hanjahangul/internal/hanja"
)

type DictionaryHandler struct {
	stats  hanja.Stats
	source string
}

func NewDictionaryHandler(d *hanja.Dictionary, source string) *DictionaryHandler {
	return &DictionaryHandler{stats: d.Stats(), source: source}
}

func (h *DictionaryHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Source string `json:"source"`
		hanja.Stats
	}{
		Source: h.source,
		Stats:  h.stats,
	})
}
