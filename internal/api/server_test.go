package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"veriflow/internal/util"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{util.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("job: %w", util.ErrActiveJobExists), http.StatusConflict},
		{util.ErrMissingMainDoc, http.StatusBadRequest},
		{util.ErrNoIndexedSupport, http.StatusBadRequest},
		{fmt.Errorf("report.docx: %w", util.ErrUnsupportedFormat), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), c.err.Error())
	}
}

func TestWriteErrShape(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, http.StatusConflict, util.ErrActiveJobExists)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), util.ErrActiveJobExists.Error())
}

func TestWithCORSPreflight(t *testing.T) {
	called := false
	h := withCORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/projects", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/projects", nil))
	assert.True(t, called)
}
