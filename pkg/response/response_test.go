package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gabfadel/gab-health/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		known   bool
	}{
		{"validation", apperror.Validation("bad input"), http.StatusBadRequest, "bad input", true},
		{"invalid state", apperror.InvalidState("already done"), http.StatusBadRequest, "already done", true},
		{"forbidden", apperror.Forbidden("no"), http.StatusForbidden, "no", true},
		{"wrapped", fmt.Errorf("loading: %w", apperror.NotFound("missing")), http.StatusNotFound, "missing", true},
		{"upstream", apperror.ExternalService(http.StatusBadGateway, "upstream failed", errors.New("eof")), http.StatusBadGateway, "upstream failed: eof", true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "fallback", false},
		{"internal kind", apperror.New(apperror.KindInternal, "secret detail"), http.StatusInternalServerError, "fallback", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			known := FromError(rec, tt.err, "fallback")

			assert.Equal(t, tt.known, known)
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "created", map[string]string{"id": "1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "created", resp.Message)
}
