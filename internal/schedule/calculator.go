package schedule

import "time"

// FirstFire returns the first instant a reminder with the given cadence and
// time of day is due, relative to now. The result is in now's location.
func FirstFire(c Cadence, tod TimeOfDay, now time.Time) (time.Time, error) {
	if err := c.Validate(); err != nil {
		return time.Time{}, err
	}

	today := tod.On(now)

	if c.PerDay {
		if !now.Before(today) {
			return today.AddDate(0, 0, int(c.IntervalDays)), nil
		}
		return today, nil
	}

	days := (int(c.Weekday) - int(now.Weekday()) + 7) % 7
	if days == 0 && now.After(today) {
		days = 7
	}
	return today.AddDate(0, 0, days), nil
}

// NextFire rolls previous forward by one period of c. It does not look at
// the current time, so missed fires are not caught up.
func NextFire(c Cadence, previous time.Time) time.Time {
	return previous.AddDate(0, 0, c.Period())
}
