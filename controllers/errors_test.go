package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/services"
)

func TestRespondErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: query", services.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: %q", calendar.ErrInvalidDay, "x"), http.StatusBadRequest},
		{attendance.ErrInvalidOrder, http.StatusBadRequest},
		{errors.Join(services.ErrInvalidPhoto, errors.New("empty")), http.StatusBadRequest},
		{services.ErrPhotoTooLarge, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.Join(services.ErrUserNotFound, errors.New("record not found")), http.StatusNotFound},
		{services.ErrUsernameTaken, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		respondError(ctx, orNop(nil), tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestRespondErrorUnavailableIsRetryable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/v1/stats/all", nil)

	respondError(ctx, orNop(nil), fmt.Errorf("%w: list users: %w", services.ErrUnavailable, errors.New("dial tcp: refused")))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"code":50301,"message":"service temporarily unavailable, please retry","data":{"retryable":true}}`, w.Body.String())
}
