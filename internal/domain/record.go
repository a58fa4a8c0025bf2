package domain

import (
	"strconv"
	"strings"
	"time"
)

// FilterAll is the sentinel value meaning "no filter" for both the
// category and year dimensions.
const FilterAll = "all"

// Event represents a council event that winners are recorded against
type Event struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	EventType string    `json:"event_type"`
	Year      int       `json:"year"`
	CreatedAt time.Time `json:"created_at"`
}

// WinRecord associates a student with a placement in one sub-event of
// one event. EventType and EventYear are denormalized from the parent
// event so the aggregator can filter without a second lookup.
type WinRecord struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	WinnerEmail    string    `json:"winner_email"`
	WinnerName     string    `json:"winner_name,omitempty"`
	Position       string    `json:"position"`
	Placement      Placement `json:"placement"`
	SubEventName   string    `json:"sub_event_name,omitempty"`
	Prize          string    `json:"prize,omitempty"`
	WinnerImageURL string    `json:"winner_image_url,omitempty"`
	EventType      string    `json:"event_type"`
	EventYear      int       `json:"event_year"`
	CreatedAt      time.Time `json:"created_at"`
}

// DisplayName returns the winner's name, falling back to the local
// part of the email when no name was recorded.
func (r *WinRecord) DisplayName() string {
	if r.WinnerName != "" {
		return r.WinnerName
	}
	if i := strings.Index(r.WinnerEmail, "@"); i > 0 {
		return r.WinnerEmail[:i]
	}
	return r.WinnerEmail
}

// WinSubmission represents a request to record a win for a student
type WinSubmission struct {
	EventID        string `json:"event_id"`
	WinnerEmail    string `json:"winner_email"`
	WinnerName     string `json:"winner_name,omitempty"`
	Position       string `json:"position"`
	SubEventName   string `json:"sub_event_name,omitempty"`
	Prize          string `json:"prize,omitempty"`
	WinnerImageURL string `json:"winner_image_url,omitempty"`
}

// BatchWinSubmission represents multiple win submissions
type BatchWinSubmission struct {
	Wins []WinSubmission `json:"wins"`
}

// CreateEventRequest represents a request to create a new event
type CreateEventRequest struct {
	Name      string `json:"name"`
	EventType string `json:"event_type"`
	Year      int    `json:"year"`
}

// FilterOptions restricts which wins count toward a student's totals.
// Category and Year each default to FilterAll.
type FilterOptions struct {
	Category string
	Year     string
}

// Matches reports whether a win record satisfies both active predicates.
// A record whose denormalized event data is missing fails any active
// predicate and is excluded.
func (f FilterOptions) Matches(r WinRecord) bool {
	if f.Category != "" && f.Category != FilterAll && r.EventType != f.Category {
		return false
	}
	if f.Year != "" && f.Year != FilterAll && strconv.Itoa(r.EventYear) != f.Year {
		return false
	}
	return true
}

// IsAll reports whether no predicate is active
func (f FilterOptions) IsAll() bool {
	return (f.Category == "" || f.Category == FilterAll) &&
		(f.Year == "" || f.Year == FilterAll)
}
