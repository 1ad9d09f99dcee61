package reminder

import (
	"errors"
	"sort"
	"time"

	"github.com/coopco/remindbot/internal/schedule"
)

var (
	ErrCollectionUnreadable = errors.New("reminder collection unreadable")
	ErrIOFailure            = errors.New("reminder collection write failed")
)

// Reminder is one scheduled notification owned by a Discord user.
type Reminder struct {
	OwnerID       string
	Name          string
	DestinationID string
	Text          string
	Cadence       schedule.Cadence
	TimeOfDay     schedule.TimeOfDay
	NextFireAt    time.Time
	LastFiredAt   time.Time // zero if never fired
}

// Due reports whether r should fire at asOf.
func (r Reminder) Due(asOf time.Time) bool {
	return !r.NextFireAt.IsZero() && !r.NextFireAt.After(asOf)
}

// Update carries the fields ApplyUpdate should change. Nil means unchanged.
type Update struct {
	Name          *string
	DestinationID *string
	Text          *string
	Cadence       *schedule.Cadence
	TimeOfDay     *schedule.TimeOfDay
	NextFireAt    *time.Time
	LastFiredAt   *time.Time
}

func (u Update) apply(r *Reminder) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.DestinationID != nil {
		r.DestinationID = *u.DestinationID
	}
	if u.Text != nil {
		r.Text = *u.Text
	}
	if u.Cadence != nil {
		r.Cadence = *u.Cadence
	}
	if u.TimeOfDay != nil {
		r.TimeOfDay = *u.TimeOfDay
	}
	if u.NextFireAt != nil {
		r.NextFireAt = *u.NextFireAt
	}
	if u.LastFiredAt != nil {
		r.LastFiredAt = *u.LastFiredAt
	}
}

// Collection is the full set of reminders persisted for one owner.
type Collection struct {
	OwnerID   string
	Reminders map[string]Reminder

	// records that failed to decode, kept verbatim so rewrites don't drop them
	invalid    map[string][]byte
	invalidErr map[string]error
}

func newCollection(ownerID string) *Collection {
	return &Collection{
		OwnerID:   ownerID,
		Reminders: make(map[string]Reminder),
	}
}

// Due returns the reminders due at asOf, sorted by name.
func (c *Collection) Due(asOf time.Time) []Reminder {
	var due []Reminder
	for _, r := range c.Reminders {
		if r.Due(asOf) {
			due = append(due, r)
		}
	}
	sortByName(due)
	return due
}

func sortByName(rs []Reminder) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].Name < rs[j].Name })
}

// Invalid returns the decode error of every record that could not be read.
func (c *Collection) Invalid() map[string]error {
	out := make(map[string]error, len(c.invalidErr))
	for k, v := range c.invalidErr {
		out[k] = v
	}
	return out
}

func (c *Collection) put(r Reminder) {
	delete(c.invalid, r.Name)
	delete(c.invalidErr, r.Name)
	c.Reminders[r.Name] = r
}

func (c *Collection) remove(name string) {
	delete(c.Reminders, name)
	delete(c.invalid, name)
	delete(c.invalidErr, name)
}
