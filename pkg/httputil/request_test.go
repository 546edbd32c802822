package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type replaceGrantsBody struct {
	Permissions []string `json:"permissions"`
}

func TestParseJSON(t *testing.T) {
	r := httptest.NewRequest("PUT", "/permissions",
		strings.NewReader(`{"permissions":["view_map","export_data"]}`))

	var body replaceGrantsBody
	require.NoError(t, ParseJSON(r, &body))
	assert.Equal(t, []string{"view_map", "export_data"}, body.Permissions)
}

func TestParseJSONInvalid(t *testing.T) {
	r := httptest.NewRequest("PUT", "/permissions", strings.NewReader(`{"permissions":`))

	var body replaceGrantsBody
	err := ParseJSON(r, &body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid JSON")
}

func TestParseJSONOrError(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/permissions", strings.NewReader(`{"permissions":[]}`))
		w := httptest.NewRecorder()

		var body replaceGrantsBody
		assert.True(t, ParseJSONOrError(w, r, &body))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed body answers 400", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/permissions", strings.NewReader(`not json`))
		w := httptest.NewRecorder()

		var body replaceGrantsBody
		assert.False(t, ParseJSONOrError(w, r, &body))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid JSON")
	})
}

func TestParseQueryInt(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		key     string
		def     int
		want    int
		wantErr bool
	}{
		{name: "present", url: "/users?limit=25", key: "limit", def: 50, want: 25},
		{name: "absent uses default", url: "/users", key: "limit", def: 50, want: 50},
		{name: "not a number", url: "/users?offset=abc", key: "offset", def: 0, wantErr: true},
		{name: "negative accepted", url: "/users?offset=-1", key: "offset", def: 0, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.url, nil)
			got, err := ParseQueryInt(r, tt.key, tt.def)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
