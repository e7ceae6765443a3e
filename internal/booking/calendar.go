// Package booking is the thin Google Calendar client the chat assistant
// books through. It consumes AuthGateway for tokens; scheduling smarts
// (slot-finding, conflict resolution) live upstream in the agent, not here.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/tailortalk/server/internal/service"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is the service-facing shape of a calendar event.
type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	TimeZone    string    `json:"time_zone,omitempty"`
	Attendees   []string  `json:"attendees,omitempty"`
	HTMLLink    string    `json:"html_link,omitempty"`
}

// Client books events on the authenticated user's primary calendar.
type Client struct {
	Gateway *service.AuthGateway

	// CalendarID defaults to "primary".
	CalendarID string
}

func (c *Client) calendarID() string {
	if c.CalendarID != "" {
		return c.CalendarID
	}
	return "primary"
}

func (c *Client) calendarService(ctx context.Context, userID string) (*gcal.Service, error) {
	ts, err := c.Gateway.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return gcal.NewService(ctx, option.WithTokenSource(ts))
}

// CreateEvent inserts the event into the user's calendar and returns the
// created record with its provider id and link filled in.
func (c *Client) CreateEvent(ctx context.Context, userID string, event Event) (Event, error) {
	svc, err := c.calendarService(ctx, userID)
	if err != nil {
		return Event{}, err
	}

	created, err := svc.Events.Insert(c.calendarID(), buildEvent(event)).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("insert calendar event: %w", err)
	}

	event.ID = created.Id
	event.HTMLLink = created.HtmlLink
	return event, nil
}

// ListUpcoming returns up to max upcoming events ordered by start time.
func (c *Client) ListUpcoming(ctx context.Context, userID string, max int64) ([]Event, error) {
	svc, err := c.calendarService(ctx, userID)
	if err != nil {
		return nil, err
	}

	if max <= 0 {
		max = 10
	}
	result, err := svc.Events.List(c.calendarID()).
		TimeMin(time.Now().UTC().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(max).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		events = append(events, mapEvent(item))
	}
	return events, nil
}

// buildEvent converts the service shape into the Calendar API payload.
func buildEvent(e Event) *gcal.Event {
	out := &gcal.Event{
		Summary:     e.Summary,
		Description: e.Description,
		Location:    e.Location,
		Start:       &gcal.EventDateTime{DateTime: e.Start.Format(time.RFC3339), TimeZone: e.TimeZone},
		End:         &gcal.EventDateTime{DateTime: e.End.Format(time.RFC3339), TimeZone: e.TimeZone},
	}
	for _, email := range e.Attendees {
		out.Attendees = append(out.Attendees, &gcal.EventAttendee{Email: email})
	}
	return out
}

func mapEvent(in *gcal.Event) Event {
	out := Event{
		ID:          in.Id,
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		HTMLLink:    in.HtmlLink,
	}
	if in.Start != nil {
		out.TimeZone = in.Start.TimeZone
		if t, err := time.Parse(time.RFC3339, in.Start.DateTime); err == nil {
			out.Start = t
		}
	}
	if in.End != nil {
		if t, err := time.Parse(time.RFC3339, in.End.DateTime); err == nil {
			out.End = t
		}
	}
	for _, a := range in.Attendees {
		out.Attendees = append(out.Attendees, a.Email)
	}
	return out
}
