package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"mailscheduler/internal/delivery/http/helpers"
	"mailscheduler/internal/delivery/http/middleware"
	"mailscheduler/internal/domain"
)

// ScheduleEventRequest is the request body for POST /events and PUT /events/{eventID}.
// timestamp is free-form; values without an offset are read in the server's zone.
// recipients is a comma-separated list, each entry "email" or "Name <email>".
type ScheduleEventRequest struct {
	Subject    string `json:"subject"`
	Content    string `json:"content"`
	Timestamp  string `json:"timestamp"`
	Recipients string `json:"recipients"`
	OwnerID    string `json:"owner_id,omitempty"`
}

// Validate implements Validator. Returns error messages for required fields.
func (r ScheduleEventRequest) Validate() []string {
	var errs []string
	if r.Subject == "" {
		errs = append(errs, "subject is required")
	}
	if r.Content == "" {
		errs = append(errs, "content is required")
	}
	if r.Timestamp == "" {
		errs = append(errs, "timestamp is required")
	}
	if r.Recipients == "" {
		errs = append(errs, "recipients are required")
	}
	return errs
}

// EventSuccessResponse is the success envelope carrying a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success envelope carrying a list of events.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.ScheduleService
}

func NewEventController(logger *slog.Logger, svc domain.ScheduleService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Schedule an email event
// @Description Schedule an email for later delivery. The timestamp is normalized to UTC; values without an offset are assumed to be in the server's zone. The authenticated user becomes the owner.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body ScheduleEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req ScheduleEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.Schedule(r.Context(), c.toScheduleRequest(r, &req))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List scheduled events
// @Description List the authenticated user's events, or all events when unauthenticated.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := middleware.UserIDFromContext(r.Context())
	events, err := c.Service.ListEvents(r.Context(), ownerID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get one event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Edit a pending event
// @Description Replace subject, content, timestamp and recipients of a pending event. Completed events are immutable and return a conflict.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param event body ScheduleEventRequest true "New event data"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict"
// @Router /events/{eventID} [put]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req ScheduleEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), r.PathValue("eventID"), c.toScheduleRequest(r, &req))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Delete an event and all of its recipients. An already-enqueued delayed job is not retracted; it finds the event gone and stops.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("eventID")
	if err := c.Service.DeleteEvent(r.Context(), id); err != nil {
		c.writeServiceError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, map[string]string{"deleted": id})
}

func (c *EventController) toScheduleRequest(r *http.Request, req *ScheduleEventRequest) *domain.ScheduleRequest {
	ownerID := req.OwnerID
	if authID, ok := middleware.UserIDFromContext(r.Context()); ok {
		ownerID = authID
	}
	return &domain.ScheduleRequest{
		Subject:    req.Subject,
		Content:    req.Content,
		Timestamp:  req.Timestamp,
		Recipients: req.Recipients,
		OwnerID:    ownerID,
	}
}

func (c *EventController) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidTimestamp),
		errors.Is(err, domain.ErrInvalidRecipient):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrCodeNotFound, "event not found")
	case errors.Is(err, domain.ErrEventDone):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrCodeConflict, err.Error())
	default:
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, err.Error())
	}
}
