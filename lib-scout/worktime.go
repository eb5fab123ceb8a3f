package scout

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// WeekTime is a point in a week, in minute precision.
type WeekTime struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// WeekTimeOf makes WeekTime from a time.Time, in the location of the time.
func WeekTimeOf(t time.Time) WeekTime {
	return WeekTime{
		Weekday: t.Weekday(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
	}
}

// Compare compares two WeekTimes lexicographically.
// It returns -1 if w is before x, +1 if w is after x, and 0 if same.
func (w WeekTime) Compare(x WeekTime) int {
	a := [3]int{int(w.Weekday), w.Hour, w.Minute}
	b := [3]int{int(x.Weekday), x.Hour, x.Minute}

	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}

// Valid checks each field is in the range.
func (w WeekTime) Valid() error {
	switch {
	case w.Weekday < time.Sunday || w.Weekday > time.Saturday:
		return fmt.Errorf("weekday must be between 0 and 6 but got %d", w.Weekday)
	case w.Hour < 0 || w.Hour > 23:
		return fmt.Errorf("hour must be between 0 and 23 but got %d", w.Hour)
	case w.Minute < 0 || w.Minute > 59:
		return fmt.Errorf("minute must be between 0 and 59 but got %d", w.Minute)
	}
	return nil
}

func (w WeekTime) String() string {
	return fmt.Sprintf("%s %02d:%02d", w.Weekday.String()[:3], w.Hour, w.Minute)
}

// MarshalJSON encodes WeekTime as [weekday, hour, minute].
func (w WeekTime) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{int(w.Weekday), w.Hour, w.Minute})
}

// UnmarshalJSON decodes [weekday, hour, minute].
func (w *WeekTime) UnmarshalJSON(data []byte) error {
	var xs []int
	if err := json.Unmarshal(data, &xs); err != nil {
		return err
	}
	if len(xs) != 3 {
		return fmt.Errorf("week time must be [weekday, hour, minute] but got %d elements", len(xs))
	}
	*w = WeekTime{time.Weekday(xs[0]), xs[1], xs[2]}
	return nil
}

// WorkTimeRange is an active window in a week.
//
// If Start is after End, the range wraps across the end of the week.
// For example, Fri 22:00 to Mon 06:00.
type WorkTimeRange [2]WeekTime

// Contains reports whether w is in the range.
// The start is inclusive, and the end is exclusive.
func (r WorkTimeRange) Contains(w WeekTime) bool {
	start, end := r[0], r[1]

	if start.Compare(end) <= 0 {
		return start.Compare(w) <= 0 && w.Compare(end) < 0
	}
	return start.Compare(w) <= 0 || w.Compare(end) < 0
}

func (r WorkTimeRange) String() string {
	return r[0].String() + " - " + r[1].String()
}

// IsWorkTime reports whether now is in any of ranges.
// An empty ranges means always active.
//
// The week time is calculated in the location of now.
func IsWorkTime(now time.Time, ranges []WorkTimeRange) bool {
	if len(ranges) == 0 {
		return true
	}

	w := WeekTimeOf(now)
	for _, r := range ranges {
		if r.Contains(w) {
			return true
		}
	}
	return false
}
