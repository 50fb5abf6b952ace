package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, method, target, body string) (int, map[string]interface{}) {
	t.Helper()
	srv := New(DefaultOptions())
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	for _, path := range []string{"/health", "/api/health"} {
		code, resp := doRequest(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", resp["status"])
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		body      string
		wantCode  int
		wantError bool
		wantTotal float64
		wantCode2 string
	}{
		{
			name:      "single upright piece",
			target:    "/api/score",
			body:      "id,x,y,deg\n001_0,s0,s0,s0\n",
			wantCode:  http.StatusOK,
			wantTotal: 1.0,
		},
		{
			name:      "two groups",
			target:    "/api/score",
			body:      "id,x,y,deg\n001_0,s0,s0,s0\n002_0,s0,s0,s0\n002_1,s0.7,s0,s0\n",
			wantCode:  http.StatusOK,
			wantTotal: 1.0 + 0.98,
		},
		{
			name:      "lenient values",
			target:    "/api/score?lenient=true",
			body:      "id,x,y,deg\n001_0,0,0,0\n",
			wantCode:  http.StatusOK,
			wantTotal: 1.0,
		},
		{
			name:      "missing prefix",
			target:    "/api/score",
			body:      "id,x,y,deg\n001_0,0,0,0\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: true,
			wantCode2: CodeParticipantVisible,
		},
		{
			name:      "overlapping pieces",
			target:    "/api/score",
			body:      "id,x,y,deg\n002_0,s0,s0,s0\n002_1,s0.1,s0,s0\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: true,
			wantCode2: CodeParticipantVisible,
		},
		{
			name:      "infinite angle",
			target:    "/api/score",
			body:      "id,x,y,deg\n001_0,s0,s0,sInf\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: true,
			wantCode2: CodeParticipantVisible,
		},
		{
			name:      "group size beyond the largest group",
			target:    "/api/score",
			body:      "id,x,y,deg\n20000000_0,s0,s0,s0\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: true,
			wantCode2: CodeParticipantVisible,
		},
		{
			name:      "incomplete when complete required",
			target:    "/api/score?complete=true",
			body:      "id,x,y,deg\n001_0,s0,s0,s0\n",
			wantCode:  http.StatusUnprocessableEntity,
			wantError: true,
			wantCode2: CodeMissingGroup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := doRequest(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantError, resp["error"])
			if tt.wantError {
				assert.Equal(t, tt.wantCode2, resp["code"])
				assert.NotEmpty(t, resp["message"])
				return
			}
			assert.InDelta(t, tt.wantTotal, resp["total"], 1e-9)
			assert.Contains(t, resp, "groups")
		})
	}
}

func TestScoreErrorNamesGroup(t *testing.T) {
	_, resp := doRequest(t, http.MethodPost, "/api/score", "id,x,y,deg\n003_0,s0,s0,s0\n003_1,s5,s0,s0\n003_2,s150,s0,s0\n")
	assert.Equal(t, CodeParticipantVisible, resp["code"])
	assert.Contains(t, resp["message"], "group 003")
}
