package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/IT-Nick/testpoint/internal/domain/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.Unauthorized("missing token"), http.StatusUnauthorized},
		{errs.Forbidden(), http.StatusForbidden},
		{errs.NotFound("Test"), http.StatusNotFound},
		{errs.Validation("name", "required"), http.StatusBadRequest},
		{errs.Transition("draft", "completed", ""), http.StatusConflict},
		{errs.NotDraft("published", "Only draft tests can be deleted."), http.StatusConflict},
		{errs.EditNotAllowed("published"), http.StatusConflict},
		{errs.Storage("commit", errors.New("timeout")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), tt.err.Error())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Error {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body Error
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestFromError(t *testing.T) {
	rec := httptest.NewRecorder()
	FromError(rec, errs.Transition("draft", "completed", "Only published or ongoing tests can be ended."))
	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Only published or ongoing tests can be ended.", body.Error)
	assert.Equal(t, errs.KindInvalidTransition, body.Kind)
	assert.Equal(t, "draft", body.From)
	assert.Equal(t, "completed", body.To)

	rec = httptest.NewRecorder()
	FromError(rec, errs.Validation("time_limit", "must be at least 1"))
	body = decode(t, rec)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]string{"time_limit": "must be at least 1"}, body.Fields)

	rec = httptest.NewRecorder()
	FromError(rec, errs.Storage("commit", errors.New("password=secret")))
	body = decode(t, rec)
	assert.NotContains(t, body.Error, "secret")

	rec = httptest.NewRecorder()
	FromError(rec, errors.New("boom"))
	body = decode(t, rec)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", body.Error)
}
