package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/middleware"
	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/utils"
)

const retryAfterSec = 5

// respondError maps service errors onto the JSON envelope.
func respondError(ctx *gin.Context, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40010, err.Error())
	case errors.Is(err, calendar.ErrInvalidDay):
		utils.Error(ctx, http.StatusBadRequest, 40011, "date must be YYYY-MM-DD")
	case errors.Is(err, attendance.ErrInvalidOrder):
		utils.Error(ctx, http.StatusBadRequest, 40012, "order must be weekly or monthly")
	case errors.Is(err, services.ErrInvalidPhoto):
		utils.Error(ctx, http.StatusBadRequest, 40020, "photo must be a non-empty image")
	case errors.Is(err, services.ErrPhotoTooLarge):
		utils.Error(ctx, http.StatusBadRequest, 40021, "photo exceeds size limit")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
	case errors.Is(err, services.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, services.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
	case errors.Is(err, services.ErrUnavailable):
		log.Warn("dependency unavailable", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Unavailable(ctx, 50301, "service temporarily unavailable, please retry", retryAfterSec)
	default:
		log.Error("unexpected error", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func currentUser(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
	}
	return id, ok
}

func optionalDay(raw string) (*calendar.Day, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := calendar.ParseDay(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
