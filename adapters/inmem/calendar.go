package inmem

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Gurpartap/horizons/adapters/internal/timewindow"
	"github.com/Gurpartap/horizons/agent"
)

// Calendar is an in-memory calendar service for local development and tests.
type Calendar struct {
	mu        sync.RWMutex
	calendars []agent.Calendar
	events    map[string]agent.CalendarEvent
	ids       *CounterIDGenerator
	location  *time.Location
}

var _ agent.CalendarService = (*Calendar)(nil)

// NewCalendar reads query bounds without an offset in the local time zone.
func NewCalendar(calendars ...agent.Calendar) *Calendar {
	return NewCalendarIn(time.Local, calendars...)
}

// NewCalendarIn reads query bounds without an offset in loc.
func NewCalendarIn(loc *time.Location, calendars ...agent.Calendar) *Calendar {
	return &Calendar{
		calendars: slices.Clone(calendars),
		events:    map[string]agent.CalendarEvent{},
		ids:       NewCounterIDGenerator("evt"),
		location:  loc,
	}
}

// Seed stores events as-is, keeping their IDs.
func (c *Calendar) Seed(events ...agent.CalendarEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, event := range events {
		c.events[event.ID] = event
	}
}

// Events returns every stored event ordered by start then ID.
func (c *Calendar) Events() []agent.CalendarEvent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedEvents(c.events, func(agent.CalendarEvent) bool { return true })
}

func (c *Calendar) ListCalendars(ctx context.Context) ([]agent.Calendar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.calendars), nil
}

func (c *Calendar) ListEvents(ctx context.Context, query agent.EventQuery) ([]agent.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start, end, err := timewindow.Parse(query.Start, query.End, c.location)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, id := range query.CalendarIDs {
		if !c.hasCalendar(id) {
			return nil, fmt.Errorf("%w: calendar %q", agent.ErrNotFound, id)
		}
	}
	return sortedEvents(c.events, func(event agent.CalendarEvent) bool {
		if len(query.CalendarIDs) > 0 && !slices.Contains(query.CalendarIDs, event.CalendarID) {
			return false
		}
		return overlaps(event, start, end)
	}), nil
}

func (c *Calendar) CreateEvent(ctx context.Context, calendarID string, input agent.EventInput) (agent.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return agent.CalendarEvent{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasCalendar(calendarID) {
		return agent.CalendarEvent{}, fmt.Errorf("%w: calendar %q", agent.ErrNotFound, calendarID)
	}
	event := agent.CalendarEvent{
		ID:          c.ids.Next(),
		CalendarID:  calendarID,
		Summary:     input.Summary,
		Description: input.Description,
		Start:       input.Start,
		End:         input.End,
	}
	c.events[event.ID] = event
	return event, nil
}

func (c *Calendar) UpdateEvent(ctx context.Context, calendarID, eventID string, input agent.EventInput) (agent.CalendarEvent, error) {
	if err := ctx.Err(); err != nil {
		return agent.CalendarEvent{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	event, ok := c.events[eventID]
	if !ok || event.CalendarID != calendarID {
		return agent.CalendarEvent{}, fmt.Errorf("%w: event %q in calendar %q", agent.ErrNotFound, eventID, calendarID)
	}
	if input.Summary != "" {
		event.Summary = input.Summary
	}
	if input.Description != "" {
		event.Description = input.Description
	}
	if input.Start != "" {
		event.Start = input.Start
	}
	if input.End != "" {
		event.End = input.End
	}
	c.events[eventID] = event
	return event, nil
}

func (c *Calendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	event, ok := c.events[eventID]
	if !ok || event.CalendarID != calendarID {
		return fmt.Errorf("%w: event %q in calendar %q", agent.ErrNotFound, eventID, calendarID)
	}
	delete(c.events, eventID)
	return nil
}

func (c *Calendar) hasCalendar(id string) bool {
	for _, calendar := range c.calendars {
		if calendar.ID == id {
			return true
		}
	}
	return false
}

// overlaps treats unparseable event times as matching so seeded fixtures stay visible.
func overlaps(event agent.CalendarEvent, start, end time.Time) bool {
	eventStart, startErr := time.Parse(time.RFC3339, event.Start)
	eventEnd, endErr := time.Parse(time.RFC3339, event.End)
	if startErr != nil || endErr != nil {
		return true
	}
	if !end.IsZero() && !eventStart.Before(end) {
		return false
	}
	if !start.IsZero() && !eventEnd.After(start) {
		return false
	}
	return true
}

func sortedEvents(events map[string]agent.CalendarEvent, keep func(agent.CalendarEvent) bool) []agent.CalendarEvent {
	out := make([]agent.CalendarEvent, 0, len(events))
	for _, event := range events {
		if keep(event) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out
}
