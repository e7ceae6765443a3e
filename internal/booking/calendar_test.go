package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gcal "google.golang.org/api/calendar/v3"
)

func TestBuildEvent(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)

	got := buildEvent(Event{
		Summary:     "Intro call",
		Description: "30 minute chat",
		Location:    "Meet",
		Start:       start,
		End:         end,
		TimeZone:    "Australia/Brisbane",
		Attendees:   []string{"alice@example.com", "bob@example.com"},
	})

	require.Equal(t, "Intro call", got.Summary)
	require.Equal(t, "30 minute chat", got.Description)
	require.Equal(t, "Meet", got.Location)
	require.Equal(t, start.Format(time.RFC3339), got.Start.DateTime)
	require.Equal(t, end.Format(time.RFC3339), got.End.DateTime)
	require.Equal(t, "Australia/Brisbane", got.Start.TimeZone)
	require.Len(t, got.Attendees, 2)
	require.Equal(t, "alice@example.com", got.Attendees[0].Email)
}

func TestMapEvent(t *testing.T) {
	t.Parallel()

	got := mapEvent(&gcal.Event{
		Id:          "evt1",
		Summary:     "Intro call",
		Description: "30 minute chat",
		Location:    "Meet",
		HtmlLink:    "https://calendar.google.com/event?eid=evt1",
		Start:       &gcal.EventDateTime{DateTime: "2026-09-01T14:00:00Z", TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: "2026-09-01T14:30:00Z"},
		Attendees: []*gcal.EventAttendee{
			{Email: "alice@example.com"},
		},
	})

	require.Equal(t, "evt1", got.ID)
	require.Equal(t, "Intro call", got.Summary)
	require.Equal(t, "Meet", got.Location)
	require.Equal(t, time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC), got.Start)
	require.Equal(t, time.Date(2026, 9, 1, 14, 30, 0, 0, time.UTC), got.End)
	require.Equal(t, []string{"alice@example.com"}, got.Attendees)
	require.Equal(t, "UTC", got.TimeZone)
}

func TestMapEventToleratesMissingTimes(t *testing.T) {
	t.Parallel()

	got := mapEvent(&gcal.Event{Id: "evt2", Summary: "All day"})
	require.Equal(t, "evt2", got.ID)
	require.True(t, got.Start.IsZero())
	require.True(t, got.End.IsZero())
}

func TestClientDefaultsToPrimaryCalendar(t *testing.T) {
	t.Parallel()

	c := &Client{}
	require.Equal(t, "primary", c.calendarID())

	c.CalendarID = "team-room"
	require.Equal(t, "team-room", c.calendarID())
}
