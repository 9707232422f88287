package models

import "time"

// Day is a calendar day in "2006-01-02" form.
type Day string

const dayLayout = "2006-01-02"

func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

func ParseDay(s string) (Day, error) {
	if _, err := time.Parse(dayLayout, s); err != nil {
		return "", err
	}
	return Day(s), nil
}

func (d Day) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// Month returns the "2006-01" bucket of the day, or "" for an invalid day.
func (d Day) Month() string {
	if !d.Valid() {
		return ""
	}
	return string(d)[:7]
}

// In returns midnight of the day in loc.
func (d Day) In(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dayLayout, string(d), loc)
}

// AddDays shifts the day; an invalid day stays unchanged.
func (d Day) AddDays(n int) Day {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, n))
}

// Display renders the day the way operators read it, e.g. "05.11.2024".
func (d Day) Display() string {
	t, err := time.Parse(dayLayout, string(d))
	if err != nil {
		return string(d)
	}
	return t.Format("02.01.2006")
}

func (d Day) String() string { return string(d) }
