package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHTTPErrorHandler_NotFound(t *testing.T) {
	a := &App{l: zap.NewNop()}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/nope", nil), rec)

	a.HTTPErrorHandler(echo.NewHTTPError(http.StatusNotFound), c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found","message":"The requested endpoint does not exist"}`, rec.Body.String())
}

func TestHTTPErrorHandler_UnhandledErrorHidesDetail(t *testing.T) {
	a := &App{l: zap.NewNop()}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	a.HTTPErrorHandler(errors.New("pq: connection refused at 10.0.0.3"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","message":"An unexpected error occurred"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "10.0.0.3")
}

func TestHTTPErrorHandler_CommittedResponseUntouched(t *testing.T) {
	a := &App{l: zap.NewNop()}

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	c.Response().WriteHeader(http.StatusOK)
	a.HTTPErrorHandler(errors.New("late failure"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}
