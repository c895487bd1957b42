package calendar

import (
	"errors"
	"fmt"
	"time"
)

// DayLayout is the text form of a Day.
const DayLayout = "2006-01-02"

// ErrInvalidDay is returned when a string is not a YYYY-MM-DD calendar date.
var ErrInvalidDay = errors.New("invalid calendar day")

// Day is a calendar date without a time of day. The zero value is not a valid day.
// Day values are comparable and safe to use as map keys.
type Day struct {
	y int
	m time.Month
	d int
}

// NewDay builds a Day from its components, normalising overflow the way time.Date does.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DayOf returns the calendar day of t as seen in t's own location.
func DayOf(t time.Time) Day {
	return Day{y: t.Year(), m: t.Month(), d: t.Day()}
}

// ParseDay parses a strict YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	if len(s) != len(DayLayout) {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%w: %q", ErrInvalidDay, s)
	}
	return DayOf(t), nil
}

// MustParseDay is ParseDay for literals in tests and tables.
func MustParseDay(s string) Day {
	d, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns midnight UTC of the day. Day arithmetic uses UTC so it never crosses a DST edge.
func (d Day) Time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

func (d Day) IsZero() bool { return d.m == 0 }

func (d Day) Year() int { return d.y }

func (d Day) Month() time.Month { return d.m }

func (d Day) Weekday() time.Weekday { return d.Time().Weekday() }

// AddDays returns the day n days after d (n may be negative).
func (d Day) AddDays(n int) Day { return NewDay(d.y, d.m, d.d+n) }

func (d Day) Before(o Day) bool { return d.Compare(o) < 0 }

func (d Day) After(o Day) bool { return d.Compare(o) > 0 }

// Compare returns -1, 0 or +1.
func (d Day) Compare(o Day) int {
	switch {
	case d.y != o.y:
		return sign(d.y - o.y)
	case d.m != o.m:
		return sign(int(d.m) - int(o.m))
	default:
		return sign(d.d - o.d)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.y, int(d.m), d.d)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekKey identifies an ISO-8601 week. Year is the ISO year, which differs from
// the calendar year for some days around January 1st.
type WeekKey struct {
	Year int
	Week int
}

func (k WeekKey) String() string {
	return fmt.Sprintf("%04d-W%02d", k.Year, k.Week)
}

// ISOWeekKey buckets a day into its ISO week.
func ISOWeekKey(d Day) WeekKey {
	y, w := d.Time().ISOWeek()
	return WeekKey{Year: y, Week: w}
}

// WeekStart returns the Monday on or before d.
func WeekStart(d Day) Day {
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	return d.AddDays(-offset)
}

// WeekDates returns the seven days Monday..Sunday of the week starting at weekStart.
// A weekStart that is not a Monday is normalised first.
func WeekDates(weekStart Day) []Day {
	start := WeekStart(weekStart)
	dates := make([]Day, 7)
	for i := range dates {
		dates[i] = start.AddDays(i)
	}
	return dates
}

// WeekWindow is the inclusive Monday..Sunday range of one week.
type WeekWindow struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

// Window returns the week containing d.
func Window(d Day) WeekWindow {
	start := WeekStart(d)
	return WeekWindow{Start: start, End: start.AddDays(6)}
}

// Contains reports whether d falls inside the window, bounds included.
func (w WeekWindow) Contains(d Day) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// InMonth reports whether d falls in the given calendar month.
func InMonth(d Day, year int, month time.Month) bool {
	return d.Year() == year && d.Month() == month
}

// Calendar resolves "today" against one fixed timezone, the group's home zone,
// so a check-in lands on the same day for every member regardless of device zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New creates a Calendar. A nil loc means UTC and a nil now means time.Now.
func New(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// Location returns the fixed timezone.
func (c *Calendar) Location() *time.Location { return c.loc }

// Now returns the current instant in the fixed timezone.
func (c *Calendar) Now() time.Time { return c.now().In(c.loc) }

// Today returns the current calendar day in the fixed timezone.
func (c *Calendar) Today() Day { return DayOf(c.Now()) }

// CurrentWeek returns the window containing Today.
func (c *Calendar) CurrentWeek() WeekWindow { return Window(c.Today()) }

// ResolveWeek returns the window for an explicit week start, or the current week when nil.
func (c *Calendar) ResolveWeek(weekStart *Day) WeekWindow {
	if weekStart == nil || weekStart.IsZero() {
		return c.CurrentWeek()
	}
	return Window(*weekStart)
}
