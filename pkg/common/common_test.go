package common

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPaginationParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"defaults", "", PaginationParams{Page: 1, PageSize: 20}},
		{"explicit", "page=3&page_size=50", PaginationParams{Page: 3, PageSize: 50}},
		{"capped", "page_size=5000", PaginationParams{Page: 1, PageSize: 100}},
		{"invalid", "page=-1&page_size=abc", PaginationParams{Page: 1, PageSize: 20}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/persons?"+tt.query, nil)
			assert.Equal(t, tt.want, ExtractPaginationParams(r, 20, 100))
		})
	}
}

func TestBuildPaginationMeta(t *testing.T) {
	meta := BuildPaginationMeta(PaginationParams{Page: 2, PageSize: 10}, 25)

	assert.Equal(t, 3, meta.TotalPages)
	assert.True(t, meta.HasNext)
	assert.True(t, meta.HasPrev)
	assert.Equal(t, 10, PaginationParams{Page: 2, PageSize: 10}.Offset())
}

func TestRespondError(t *testing.T) {
	w := httptest.NewRecorder()
	RespondError(w, http.StatusNotFound, "Anggota tidak ditemukan")

	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Anggota tidak ditemukan", body["error"])
	assert.NotContains(t, body, "data")
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Budi","extra":1}`))
	require.NoError(t, DecodeJSON(httptest.NewRecorder(), r, &v, false))
	assert.Equal(t, "Budi", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Budi","extra":1}`))
	assert.Error(t, DecodeJSON(httptest.NewRecorder(), r, &v, true))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.ErrorIs(t, DecodeJSON(httptest.NewRecorder(), r, &v, false), ErrEmptyBody)
}
