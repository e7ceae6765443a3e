package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/tailortalk/server/internal/booking"
	"github.com/tailortalk/server/internal/service"
	"github.com/tailortalk/server/pkg/httpx"
	"github.com/tailortalk/server/pkg/slogx"
)

// CalendarHandler serves the booking routes. The caller's identity comes from
// the bearer session token, so every operation acts on the calendar of the
// authenticated user.
type CalendarHandler struct {
	Calendar *booking.Client
}

type createEventRequest struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	TimeZone    string    `json:"time_zone,omitempty"`
}

type listEventsResponse struct {
	Events []booking.Event `json:"events"`
	Count  int             `json:"count"`
}

func (h *CalendarHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		mapServiceError(service.ErrAuthenticationRequired).WriteError(w)
		return
	}

	var req createEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ErrInvalidRequest.WriteError(w)
		return
	}
	if req.Summary == "" || req.Start.IsZero() || req.End.IsZero() {
		(&APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        ErrorCodeInvalidRequest,
			Description: "summary, start and end are required",
		}).WriteError(w)
		return
	}
	if !req.End.After(req.Start) {
		(&APIError{
			StatusCode:  http.StatusBadRequest,
			Code:        ErrorCodeInvalidRequest,
			Description: "end must be after start",
		}).WriteError(w)
		return
	}

	event, err := h.Calendar.CreateEvent(ctx, userID, booking.Event{
		Summary:     req.Summary,
		Description: req.Description,
		Location:    req.Location,
		Start:       req.Start,
		End:         req.End,
		Attendees:   req.Attendees,
		TimeZone:    req.TimeZone,
	})
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationRequired) {
			mapServiceError(err).WriteError(w)
			return
		}
		log.Error("event creation failed", "user_id", userID, "err", err)
		(&APIError{
			StatusCode:  http.StatusBadGateway,
			Code:        ErrorCodeServerError,
			Description: "calendar provider rejected the event",
		}).WriteError(w)
		return
	}

	log.Info("event created", "user_id", userID, "event_id", event.ID)

	httpx.WriteJSON(w, http.StatusCreated, event)
}

func (h *CalendarHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		mapServiceError(service.ErrAuthenticationRequired).WriteError(w)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			(&APIError{
				StatusCode:  http.StatusBadRequest,
				Code:        ErrorCodeInvalidRequest,
				Description: "limit must be an integer between 1 and 100",
			}).WriteError(w)
			return
		}
		limit = n
	}

	events, err := h.Calendar.ListUpcoming(ctx, userID, int64(limit))
	if err != nil {
		if errors.Is(err, service.ErrAuthenticationRequired) {
			mapServiceError(err).WriteError(w)
			return
		}
		log.Error("event listing failed", "user_id", userID, "err", err)
		(&APIError{
			StatusCode:  http.StatusBadGateway,
			Code:        ErrorCodeServerError,
			Description: "calendar provider request failed",
		}).WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, listEventsResponse{Events: events, Count: len(events)})
}
