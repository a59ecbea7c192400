package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mailscheduler/internal/delivery/http/helpers"
	"mailscheduler/internal/delivery/http/middleware"
	"mailscheduler/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeScheduleService implements domain.ScheduleService for handler tests.
type fakeScheduleService struct {
	scheduleErr     error
	scheduleResult  *domain.Event
	lastScheduleReq *domain.ScheduleRequest

	getErr    error
	getResult *domain.Event
	lastGetID string

	listErr       error
	listResult    []*domain.Event
	lastListOwner string

	updateErr    error
	updateResult *domain.Event
	lastUpdateID string

	deleteErr    error
	lastDeleteID string
}

func (f *fakeScheduleService) Schedule(ctx context.Context, req *domain.ScheduleRequest) (*domain.Event, error) {
	f.lastScheduleReq = req
	if f.scheduleErr != nil {
		return nil, f.scheduleErr
	}
	return f.scheduleResult, nil
}

func (f *fakeScheduleService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	f.lastGetID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getResult, nil
}

func (f *fakeScheduleService) ListEvents(ctx context.Context, ownerID string) ([]*domain.Event, error) {
	f.lastListOwner = ownerID
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listResult, nil
}

func (f *fakeScheduleService) UpdateEvent(ctx context.Context, id string, req *domain.ScheduleRequest) (*domain.Event, error) {
	f.lastUpdateID = id
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateResult, nil
}

func (f *fakeScheduleService) DeleteEvent(ctx context.Context, id string) error {
	f.lastDeleteID = id
	return f.deleteErr
}

func sampleEvent() *domain.Event {
	return &domain.Event{
		ID:        "ev-1",
		Subject:   "Hello",
		Content:   "Body",
		Timestamp: time.Date(2030, 1, 1, 17, 0, 0, 0, time.UTC),
		CreatedAt: time.Date(2029, 12, 31, 9, 0, 0, 0, time.UTC),
		Recipients: []*domain.Recipient{
			{ID: "rec-1", Email: "a@x.com", EventID: "ev-1"},
		},
	}
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) helpers.APIResponse {
	t.Helper()
	var resp helpers.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&resp))
	return resp
}

func TestEventController_CreateEvent(t *testing.T) {
	validBody := `{"subject":"Hello","content":"Body","timestamp":"2030-01-01T12:00:00-05:00","recipients":"a@x.com"}`

	t.Run("created", func(t *testing.T) {
		svc := &fakeScheduleService{scheduleResult: sampleEvent()}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(validBody))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeEnvelope(t, rec.Body)
		assert.Nil(t, resp.Error)
		require.NotNil(t, resp.Data)
		assert.Equal(t, "a@x.com", svc.lastScheduleReq.Recipients)
	})

	t.Run("authenticated user becomes owner", func(t *testing.T) {
		svc := &fakeScheduleService{scheduleResult: sampleEvent()}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(validBody))
		req = req.WithContext(middleware.SetUserID(req.Context(), "user-42"))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "user-42", svc.lastScheduleReq.OwnerID)
	})

	t.Run("missing required fields rejected before the service is called", func(t *testing.T) {
		svc := &fakeScheduleService{}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(`{"subject":"Hello"}`))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeEnvelope(t, rec.Body)
		require.NotNil(t, resp.Error)
		assert.Equal(t, helpers.ErrCodeBadRequest, resp.Error.Code)
		assert.Nil(t, svc.lastScheduleReq)
	})

	t.Run("invalid timestamp maps to bad request", func(t *testing.T) {
		svc := &fakeScheduleService{scheduleErr: domain.ErrInvalidTimestamp}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(validBody))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("service failure maps to internal error", func(t *testing.T) {
		svc := &fakeScheduleService{scheduleErr: errors.New("db down")}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(validBody))
		rec := httptest.NewRecorder()
		c.CreateEvent(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestEventController_GetEvent(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &fakeScheduleService{getResult: sampleEvent()}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/events/ev-1", nil)
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.GetEvent(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ev-1", svc.lastGetID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeScheduleService{getErr: domain.ErrNotFound}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodGet, "/events/ev-missing", nil)
		req.SetPathValue("eventID", "ev-missing")
		rec := httptest.NewRecorder()
		c.GetEvent(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		resp := decodeEnvelope(t, rec.Body)
		require.NotNil(t, resp.Error)
		assert.Equal(t, helpers.ErrCodeNotFound, resp.Error.Code)
	})
}

func TestEventController_ListEvents(t *testing.T) {
	svc := &fakeScheduleService{listResult: []*domain.Event{sampleEvent()}}
	c := NewEventController(testLogger, svc)

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(middleware.SetUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	c.ListEvents(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", svc.lastListOwner)
}

func TestEventController_UpdateEvent(t *testing.T) {
	validBody := `{"subject":"Changed","content":"Body","timestamp":"2030-06-01T00:00:00Z","recipients":"b@y.com"}`

	t.Run("done event maps to conflict", func(t *testing.T) {
		svc := &fakeScheduleService{updateErr: domain.ErrEventDone}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPut, "/events/ev-1", strings.NewReader(validBody))
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("updated", func(t *testing.T) {
		svc := &fakeScheduleService{updateResult: sampleEvent()}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodPut, "/events/ev-1", strings.NewReader(validBody))
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.UpdateEvent(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ev-1", svc.lastUpdateID)
	})
}

func TestEventController_DeleteEvent(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		svc := &fakeScheduleService{}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodDelete, "/events/ev-1", nil)
		req.SetPathValue("eventID", "ev-1")
		rec := httptest.NewRecorder()
		c.DeleteEvent(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ev-1", svc.lastDeleteID)
	})

	t.Run("not found", func(t *testing.T) {
		svc := &fakeScheduleService{deleteErr: domain.ErrNotFound}
		c := NewEventController(testLogger, svc)

		req := httptest.NewRequest(http.MethodDelete, "/events/ev-missing", nil)
		req.SetPathValue("eventID", "ev-missing")
		rec := httptest.NewRecorder()
		c.DeleteEvent(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// fakeRunner implements DispatchRunner.
type fakeRunner struct {
	processed int
	err       error
}

func (f *fakeRunner) RunPass(ctx context.Context) (int, error) {
	return f.processed, f.err
}

func TestDispatchController_RunDispatch(t *testing.T) {
	t.Run("reports processed count", func(t *testing.T) {
		c := NewDispatchController(testLogger, &fakeRunner{processed: 3})

		req := httptest.NewRequest(http.MethodPost, "/dispatch/run", nil)
		rec := httptest.NewRecorder()
		c.RunDispatch(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		resp := decodeEnvelope(t, rec.Body)
		require.Nil(t, resp.Error)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(3), data["processed"])
	})

	t.Run("pass failure maps to internal error", func(t *testing.T) {
		c := NewDispatchController(testLogger, &fakeRunner{err: errors.New("db down")})

		req := httptest.NewRequest(http.MethodPost, "/dispatch/run", nil)
		rec := httptest.NewRecorder()
		c.RunDispatch(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
