package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/coopco/remindbot/internal/schedule"
)

// CreateRequest is what the command gateway collects from the user.
type CreateRequest struct {
	OwnerID       string
	Name          string
	DestinationID string
	Text          string
	PerDay        bool
	IntervalDays  *uint32
	Weekday       *time.Weekday
	TimeOfDay     string
}

// Service is the entry point the command gateway talks to.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create validates req and stores the reminder, replacing any existing
// reminder of the same owner and name.
func (s *Service) Create(ctx context.Context, req CreateRequest) error {
	if req.Name == "" {
		return errors.New("reminder name must not be empty")
	}
	cadence, err := schedule.NewCadence(req.PerDay, req.IntervalDays, req.Weekday)
	if err != nil {
		return err
	}
	tod, err := schedule.ParseTimeOfDay(req.TimeOfDay)
	if err != nil {
		return err
	}
	return s.store.CreateOrReplace(ctx, Reminder{
		OwnerID:       req.OwnerID,
		Name:          req.Name,
		DestinationID: req.DestinationID,
		Text:          req.Text,
		Cadence:       cadence,
		TimeOfDay:     tod,
	})
}

// Delete removes the named reminder. Deleting a missing reminder is not an
// error.
func (s *Service) Delete(ctx context.Context, ownerID, name string) error {
	return s.store.Delete(ctx, ownerID, name)
}

// List returns the owner's reminders sorted by name.
func (s *Service) List(ctx context.Context, ownerID string) ([]Reminder, error) {
	c, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]Reminder, 0, len(c.Reminders))
	for _, r := range c.Reminders {
		out = append(out, r)
	}
	sortByName(out)
	return out, nil
}
