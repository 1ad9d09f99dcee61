package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidTimeFormat       = errors.New("invalid time format")
	ErrMissingCadenceParameter = errors.New("missing cadence parameter")
)

// Cadence is the repetition rule of a reminder: either every IntervalDays
// days or weekly on Weekday.
type Cadence struct {
	PerDay       bool
	IntervalDays uint32       // PerDay only, > 0
	Weekday      time.Weekday // weekly only
}

// PerDay returns a cadence repeating every n days.
func PerDay(n uint32) Cadence {
	return Cadence{PerDay: true, IntervalDays: n}
}

// PerWeek returns a cadence repeating weekly on w.
func PerWeek(w time.Weekday) Cadence {
	return Cadence{Weekday: w}
}

// NewCadence builds a Cadence from optional command parameters.
// intervalDays is required when perDay is set, weekday otherwise.
func NewCadence(perDay bool, intervalDays *uint32, weekday *time.Weekday) (Cadence, error) {
	if perDay {
		if intervalDays == nil {
			return Cadence{}, fmt.Errorf("%w: days must be specified for a per-day reminder", ErrMissingCadenceParameter)
		}
		c := PerDay(*intervalDays)
		return c, c.Validate()
	}
	if weekday == nil {
		return Cadence{}, fmt.Errorf("%w: weekday must be specified for a weekly reminder", ErrMissingCadenceParameter)
	}
	c := PerWeek(*weekday)
	return c, c.Validate()
}

// Validate reports whether the populated variant carries its parameter.
func (c Cadence) Validate() error {
	if c.PerDay {
		if c.IntervalDays == 0 {
			return fmt.Errorf("%w: days must be greater than zero", ErrMissingCadenceParameter)
		}
		return nil
	}
	if c.Weekday < time.Sunday || c.Weekday > time.Saturday {
		return fmt.Errorf("%w: weekday %d out of range", ErrMissingCadenceParameter, c.Weekday)
	}
	return nil
}

// Period returns the number of days between two consecutive fires.
func (c Cadence) Period() int {
	if c.PerDay {
		return int(c.IntervalDays)
	}
	return 7
}

func (c Cadence) String() string {
	if c.PerDay {
		return fmt.Sprintf("every %d day(s)", c.IntervalDays)
	}
	return "every " + c.Weekday.String()
}

// TimeOfDay is a wall-clock time with an optional UTC offset as typed by the
// user ("12:00:00+09:00").
type TimeOfDay struct {
	Hour, Minute, Second int
	HasOffset            bool
	Offset               int // seconds east of UTC
}

const (
	clockLayout  = "15:04:05"
	offsetLayout = "-07:00"
)

// ParseTimeOfDay parses "HH:MM:SS" with an optional "+HH:MM" or "-HH:MM"
// suffix.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	clock, offset := s, ""
	if i := strings.IndexAny(s, "+-"); i >= 0 {
		clock, offset = s[:i], s[i:]
	}

	t, err := time.Parse(clockLayout, strings.TrimSpace(clock))
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("%w: failed to parse time %q: %v", ErrInvalidTimeFormat, s, err)
	}
	tod := TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}

	if offset != "" {
		z, err := time.Parse(offsetLayout, offset)
		if err != nil {
			return TimeOfDay{}, fmt.Errorf("%w: failed to parse offset in %q: %v", ErrInvalidTimeFormat, s, err)
		}
		_, tod.Offset = z.Zone()
		tod.HasOffset = true
	}
	return tod, nil
}

// String formats the value back into the form ParseTimeOfDay accepts.
func (t TimeOfDay) String() string {
	s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	if !t.HasOffset {
		return s
	}
	sign, off := '+', t.Offset
	if off < 0 {
		sign, off = '-', -off
	}
	return fmt.Sprintf("%s%c%02d:%02d", s, sign, off/3600, (off%3600)/60)
}

// On returns the instant at this time of day on the calendar date of day,
// in day's location. The explicit offset is ignored.
func (t TimeOfDay) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, t.Second, 0, day.Location())
}
