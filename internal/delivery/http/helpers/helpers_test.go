package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner/internal/domain"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteServiceError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantMsg    string
	}{
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, ErrCodeUnauthorized, "not authenticated"},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid email or password"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "not authorized"},
		{"not found", fmt.Errorf("get event: %w", domain.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, "not found"},
		{"duplicate email", domain.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict, "email already registered"},
		{"invalid input", fmt.Errorf("%w: title is required", domain.ErrInvalidInput), http.StatusBadRequest, ErrCodeBadRequest, "invalid input: title is required"},
		{"storage failure hides detail", fmt.Errorf("%w: dial tcp 10.0.0.1:5432", domain.ErrStorage), http.StatusInternalServerError, ErrCodeInternalError, "internal server error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), logger, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeEnvelope(t, rec)
			require.NotNil(t, resp.Error)
			assert.Nil(t, resp.Data)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
		})
	}
}

type widget struct {
	Name string `json:"name"`
}

func (w widget) Validate() []string {
	if w.Name == "" {
		return []string{"name is required"}
	}
	return nil
}

func TestDecodeAndValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantOK  bool
		wantMsg string
	}{
		{name: "valid", body: `{"name":"x"}`, wantOK: true},
		{name: "unknown field", body: `{"name":"x","extra":1}`, wantMsg: "unknown field"},
		{name: "malformed", body: `{`, wantMsg: "invalid request body"},
		{name: "validation", body: `{"name":""}`, wantMsg: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(tt.body))
			var dest widget
			ok := DecodeAndValidate(rec, req, &dest)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, "x", dest.Name)
				return
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeEnvelope(t, rec).Error.Message, tt.wantMsg)
		})
	}
}
