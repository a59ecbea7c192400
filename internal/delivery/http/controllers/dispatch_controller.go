package controllers

import (
	"context"
	"log/slog"
	"net/http"

	"mailscheduler/internal/delivery/http/helpers"
)

// DispatchRunner runs one dispatch pass over all due events.
type DispatchRunner interface {
	RunPass(ctx context.Context) (int, error)
}

// DispatchResultResponse reports how many events a manual pass processed.
type DispatchResultResponse struct {
	Processed int `json:"processed"`
}

// DispatchController exposes a manual dispatch trigger, for deployments where
// an external cron hits an endpoint instead of running the in-process ticker.
type DispatchController struct {
	Logger *slog.Logger
	Runner DispatchRunner
}

func NewDispatchController(logger *slog.Logger, runner DispatchRunner) *DispatchController {
	return &DispatchController{
		Logger: logger,
		Runner: runner,
	}
}

// RunDispatch godoc
// @Summary Run one dispatch pass
// @Description Select all due, still-pending events and attempt delivery for each. Safe to call repeatedly; completed events are never re-sent.
// @Tags dispatch
// @Produce json
// @Success 200 {object} controllers.DispatchResultResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /dispatch/run [post]
func (c *DispatchController) RunDispatch(w http.ResponseWriter, r *http.Request) {
	processed, err := c.Runner.RunPass(r.Context())
	if err != nil {
		c.Logger.ErrorContext(r.Context(), "manual dispatch pass failed", "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DispatchResultResponse{Processed: processed})
}
