package reminder

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coopco/remindbot/internal/schedule"
)

// TimestampLayout is the on-disk format of next_reminder and before_remind.
const TimestampLayout = "2006-01-02 15:04:05-07:00"

// record is the JSON shape of one reminder inside an owner's file.
type record struct {
	UserID       uint64  `json:"user_id"`
	Name         string  `json:"name"`
	ChannelID    uint64  `json:"channel_id"`
	Text         string  `json:"text"`
	IsPerDay     bool    `json:"is_per_day"`
	Days         *uint32 `json:"days"`
	Time         string  `json:"time"`
	Week         *string `json:"week"`
	NextReminder string  `json:"next_reminder"`
	BeforeRemind string  `json:"before_remind"`
}

var weekdayAbbrev = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// FormatWeekday returns the three-letter form used on disk.
func FormatWeekday(w time.Weekday) string {
	return weekdayAbbrev[w]
}

// ParseWeekday accepts "Mon", "monday", "MONDAY" and so on.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, abbrev := range weekdayAbbrev {
		full := strings.ToLower(time.Weekday(i).String())
		if s == strings.ToLower(abbrev) || s == full {
			return time.Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

func toRecord(r Reminder) (record, error) {
	userID, err := strconv.ParseUint(r.OwnerID, 10, 64)
	if err != nil {
		return record{}, fmt.Errorf("invalid owner id %q: %w", r.OwnerID, err)
	}
	channelID, err := strconv.ParseUint(r.DestinationID, 10, 64)
	if err != nil {
		return record{}, fmt.Errorf("invalid channel id %q: %w", r.DestinationID, err)
	}

	rec := record{
		UserID:       userID,
		Name:         r.Name,
		ChannelID:    channelID,
		Text:         r.Text,
		IsPerDay:     r.Cadence.PerDay,
		Time:         r.TimeOfDay.String(),
		NextReminder: r.NextFireAt.Format(TimestampLayout),
	}
	if r.Cadence.PerDay {
		days := r.Cadence.IntervalDays
		rec.Days = &days
	} else {
		week := FormatWeekday(r.Cadence.Weekday)
		rec.Week = &week
	}
	if !r.LastFiredAt.IsZero() {
		rec.BeforeRemind = r.LastFiredAt.Format(TimestampLayout)
	}
	return rec, nil
}

func fromRecord(rec record) (Reminder, error) {
	r := Reminder{
		OwnerID:       strconv.FormatUint(rec.UserID, 10),
		Name:          rec.Name,
		DestinationID: strconv.FormatUint(rec.ChannelID, 10),
		Text:          rec.Text,
	}

	var weekday *time.Weekday
	if rec.Week != nil {
		w, err := ParseWeekday(*rec.Week)
		if err != nil {
			return Reminder{}, err
		}
		weekday = &w
	}
	cadence, err := schedule.NewCadence(rec.IsPerDay, rec.Days, weekday)
	if err != nil {
		return Reminder{}, err
	}
	r.Cadence = cadence

	if r.TimeOfDay, err = schedule.ParseTimeOfDay(rec.Time); err != nil {
		return Reminder{}, err
	}
	if r.NextFireAt, err = time.Parse(TimestampLayout, rec.NextReminder); err != nil {
		return Reminder{}, fmt.Errorf("failed to parse next_reminder: %w", err)
	}
	if rec.BeforeRemind != "" {
		if r.LastFiredAt, err = time.Parse(TimestampLayout, rec.BeforeRemind); err != nil {
			return Reminder{}, fmt.Errorf("failed to parse before_remind: %w", err)
		}
	}
	return r, nil
}

// decodeCollection parses an owner file. A malformed file is an error;
// a malformed record only marks that record invalid.
func decodeCollection(ownerID string, data []byte) (*Collection, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	c := newCollection(ownerID)
	for name, msg := range raw {
		var rec record
		r, err := func() (Reminder, error) {
			if err := json.Unmarshal(msg, &rec); err != nil {
				return Reminder{}, err
			}
			return fromRecord(rec)
		}()
		if err != nil {
			if c.invalid == nil {
				c.invalid = make(map[string][]byte)
				c.invalidErr = make(map[string]error)
			}
			c.invalid[name] = msg
			c.invalidErr[name] = err
			continue
		}
		r.Name = name
		c.Reminders[name] = r
	}
	return c, nil
}

// encodeCollection renders c as an indented JSON object keyed by name.
func encodeCollection(c *Collection) ([]byte, error) {
	out := make(map[string]json.RawMessage, len(c.Reminders)+len(c.invalid))
	for name, msg := range c.invalid {
		out[name] = msg
	}
	for name, r := range c.Reminders {
		rec, err := toRecord(r)
		if err != nil {
			return nil, fmt.Errorf("reminder %q: %w", name, err)
		}
		msg, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		out[name] = msg
	}

	return json.MarshalIndent(out, "", "  ")
}
