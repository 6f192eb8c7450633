// Package calendar holds the wall-clock value types used at the booking
// boundary: a calendar Date written as DD-MM-YYYY and a TimeOfDay written
// as HH:MM. All values are zone-less; callers pass the local "now".
package calendar

import (
	"fmt"
	"time"

	"github.com/consultorio/turnos/internal/platform/apperr"
)

const (
	DateLayout = "02-01-2006"
	TimeLayout = "15:04"
)

// Date is a day on the calendar with no time or zone component.
type Date struct {
	t time.Time // midnight UTC
}

// NewDate builds a Date, normalising out-of-range values the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses exactly "DD-MM-YYYY".
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) || s[2] != '-' || s[5] != '-' || !digits(s[0:2]) || !digits(s[3:5]) || !digits(s[6:]) {
		return Date{}, apperr.Parse("invalid date %q: expected DD-MM-YYYY", s)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, apperr.Parse("invalid date %q: expected DD-MM-YYYY", s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool { return d.t.IsZero() }

func (d Date) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// Weekday returns 0 for Sunday through 6 for Saturday.
func (d Date) Weekday() int { return int(d.t.Weekday()) }

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool  { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool  { return d.t.Equal(o.t) }

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to o; negative when o is earlier.
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// Time returns the date at midnight in UTC.
func (d Date) Time() time.Time { return d.t }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	p, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// TimeOfDay is a wall-clock time with minute precision, stored as minutes
// since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay; it does not validate its arguments.
func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay(hour*60 + minute) }

// ClockOf truncates t to its minute of the day.
func ClockOf(t time.Time) TimeOfDay { return NewTimeOfDay(t.Hour(), t.Minute()) }

// ParseTime parses exactly "HH:MM" on a 24-hour clock.
func ParseTime(s string) (TimeOfDay, error) {
	if len(s) != len(TimeLayout) || s[2] != ':' || !digits(s[0:2]) || !digits(s[3:]) {
		return 0, apperr.Parse("invalid time %q: expected HH:MM", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, apperr.Parse("invalid time %q: expected HH:MM", s)
	}
	return NewTimeOfDay(h, m), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// AfterClock reports whether t is strictly later than now's time of day,
// seconds included: 09:00 is after 08:59:59 but not after 09:00:01.
func (t TimeOfDay) AfterClock(now time.Time) bool {
	clock := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second +
		time.Duration(now.Nanosecond())
	return time.Duration(t)*time.Minute > clock
}

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	p, err := ParseTime(string(b))
	if err != nil {
		return err
	}
	*t = p
	return nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}
