// Package googlecalendar adapts the Google Calendar v3 API to
// agent.CalendarService.
package googlecalendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/Gurpartap/horizons/adapters/internal/timewindow"
	"github.com/Gurpartap/horizons/agent"
)

// DefaultFanout bounds concurrent per-calendar event listings.
const DefaultFanout = 4

type Calendar struct {
	api      *calendar.Service
	logger   *slog.Logger
	fanout   int
	location *time.Location
}

var _ agent.CalendarService = (*Calendar)(nil)

type Option func(*Calendar)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Calendar) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithFanout(n int) Option {
	return func(c *Calendar) {
		if n > 0 {
			c.fanout = n
		}
	}
}

// WithLocation sets the zone for query bounds that carry no offset.
// Defaults to the local time zone.
func WithLocation(loc *time.Location) Option {
	return func(c *Calendar) {
		if loc != nil {
			c.location = loc
		}
	}
}

// New authorizes with the OAuth client credentials file and a stored token.
func New(ctx context.Context, credentialsFile, tokenFile string, opts ...Option) (*Calendar, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials %q: %w", credentialsFile, err)
	}
	oauthConfig, err := google.ConfigFromJSON(credentials, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials %q: %w", credentialsFile, err)
	}
	token, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}
	return NewWithClient(ctx, oauthConfig.Client(ctx, token), opts...)
}

// NewWithClient uses an already authorized HTTP client.
func NewWithClient(ctx context.Context, client *http.Client, opts ...Option) (*Calendar, error) {
	return newCalendar(ctx, []option.ClientOption{option.WithHTTPClient(client)}, opts...)
}

func newCalendar(ctx context.Context, clientOptions []option.ClientOption, opts ...Option) (*Calendar, error) {
	api, err := calendar.NewService(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	c := &Calendar{
		api:      api,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		fanout:   DefaultFanout,
		location: time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Calendar) ListCalendars(ctx context.Context) ([]agent.Calendar, error) {
	var out []agent.Calendar
	err := c.api.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, entry := range page.Items {
			out = append(out, agent.Calendar{
				ID:      entry.Id,
				Summary: entry.Summary,
				Primary: entry.Primary,
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapError("list calendars", err)
	}
	return out, nil
}

// ListEvents lists each calendar concurrently and returns the events grouped
// by calendar in query order.
func (c *Calendar) ListEvents(ctx context.Context, query agent.EventQuery) ([]agent.CalendarEvent, error) {
	start, end, err := timewindow.Parse(query.Start, query.End, c.location)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	calendarIDs := query.CalendarIDs
	if len(calendarIDs) == 0 {
		calendars, err := c.ListCalendars(ctx)
		if err != nil {
			return nil, err
		}
		for _, cal := range calendars {
			calendarIDs = append(calendarIDs, cal.ID)
		}
	}

	results := make([][]agent.CalendarEvent, len(calendarIDs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.fanout)
	for i, calendarID := range calendarIDs {
		group.Go(func() error {
			events, err := c.listCalendarEvents(groupCtx, calendarID, start, end)
			if err != nil {
				return err
			}
			results[i] = events
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	out := make([]agent.CalendarEvent, 0)
	for _, events := range results {
		out = append(out, events...)
	}
	c.logger.DebugContext(ctx, "calendar events listed",
		slog.Int("calendars", len(calendarIDs)),
		slog.Int("events", len(out)),
	)
	return out, nil
}

func (c *Calendar) listCalendarEvents(ctx context.Context, calendarID string, start, end time.Time) ([]agent.CalendarEvent, error) {
	call := c.api.Events.List(calendarID).SingleEvents(true).OrderBy("startTime")
	if !start.IsZero() {
		call = call.TimeMin(start.Format(time.RFC3339))
	}
	if !end.IsZero() {
		call = call.TimeMax(end.Format(time.RFC3339))
	}
	var out []agent.CalendarEvent
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			out = append(out, toEvent(calendarID, item))
		}
		return nil
	})
	if err != nil {
		return nil, mapError(fmt.Sprintf("list events calendar=%q", calendarID), err)
	}
	return out, nil
}

func (c *Calendar) CreateEvent(ctx context.Context, calendarID string, input agent.EventInput) (agent.CalendarEvent, error) {
	created, err := c.api.Events.Insert(calendarID, &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
		Start:       eventTime(input.Start),
		End:         eventTime(input.End),
	}).Context(ctx).Do()
	if err != nil {
		return agent.CalendarEvent{}, mapError(fmt.Sprintf("create event calendar=%q", calendarID), err)
	}
	return toEvent(calendarID, created), nil
}

// UpdateEvent patches the non-empty fields of input.
func (c *Calendar) UpdateEvent(ctx context.Context, calendarID, eventID string, input agent.EventInput) (agent.CalendarEvent, error) {
	patch := &calendar.Event{
		Summary:     input.Summary,
		Description: input.Description,
	}
	if input.Start != "" {
		patch.Start = eventTime(input.Start)
	}
	if input.End != "" {
		patch.End = eventTime(input.End)
	}
	updated, err := c.api.Events.Patch(calendarID, eventID, patch).Context(ctx).Do()
	if err != nil {
		return agent.CalendarEvent{}, mapError(fmt.Sprintf("update event calendar=%q event=%q", calendarID, eventID), err)
	}
	return toEvent(calendarID, updated), nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := c.api.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		return mapError(fmt.Sprintf("delete event calendar=%q event=%q", calendarID, eventID), err)
	}
	return nil
}

// eventTime treats a bare YYYY-MM-DD value as an all-day date.
func eventTime(value string) *calendar.EventDateTime {
	if _, err := time.Parse(time.DateOnly, value); err == nil {
		return &calendar.EventDateTime{Date: value}
	}
	return &calendar.EventDateTime{DateTime: value}
}

func toEvent(calendarID string, item *calendar.Event) agent.CalendarEvent {
	return agent.CalendarEvent{
		ID:          item.Id,
		CalendarID:  calendarID,
		Summary:     item.Summary,
		Description: item.Description,
		Start:       eventDateTime(item.Start),
		End:         eventDateTime(item.End),
	}
}

func eventDateTime(value *calendar.EventDateTime) string {
	if value == nil {
		return ""
	}
	if value.DateTime != "" {
		return value.DateTime
	}
	return value.Date
}

func mapError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return fmt.Errorf("%s: %w: %w", op, agent.ErrNotFound, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
