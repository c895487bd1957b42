package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/gymchallenge/attendance"
	"github.com/cppla/gymchallenge/calendar"
	"github.com/cppla/gymchallenge/middleware"
	"github.com/cppla/gymchallenge/services"
	"github.com/cppla/gymchallenge/utils"
)

// StatsController serves weekly progress, the group ranking and the day view.
type StatsController struct {
	svc *services.StatsService
	log *zap.Logger
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(svc *services.StatsService, log *zap.Logger) *StatsController {
	return &StatsController{svc: svc, log: orNop(log)}
}

// Week returns one member's week. user_id defaults to the caller.
func (s *StatsController) Week(ctx *gin.Context) {
	callerID, ok := currentUser(ctx)
	if !ok {
		return
	}
	userID := callerID
	if raw := ctx.Query("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			respondError(ctx, s.log, services.ErrInvalidInput)
			return
		}
		userID = uint(id)
	}
	weekStart, err := optionalDay(ctx.Query("week_start"))
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}

	week, err := s.svc.GetUserWeek(ctx.Request.Context(), userID, weekStart)
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}
	utils.Success(ctx, week)
}

// All returns the ranking of every member for a week.
func (s *StatsController) All(ctx *gin.Context) {
	weekStart, err := optionalDay(ctx.Query("week_start"))
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}
	order, err := attendance.ParseRankingOrder(ctx.Query("order"))
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}

	all, err := s.svc.GetAllStats(ctx.Request.Context(), weekStart, order)
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}
	utils.Success(ctx, all)
}

// Day lists who trained on a given date.
func (s *StatsController) Day(ctx *gin.Context) {
	raw := ctx.Query("date")
	if raw == "" {
		respondError(ctx, s.log, calendar.ErrInvalidDay)
		return
	}
	day, err := calendar.ParseDay(raw)
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}
	callerID, _ := middleware.UserID(ctx)

	ds, err := s.svc.DayStats(ctx.Request.Context(), day, callerID)
	if err != nil {
		respondError(ctx, s.log, err)
		return
	}
	utils.Success(ctx, ds)
}
