package school

import (
	"time"

	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
)

var errStartRequired = errors.New("internship start date is required")

// Window is a course's internship window. Start is mandatory; End and
// DurationMonths derive from each other. EndDerived records whether End was
// computed from the duration, so a later duration change may recompute it;
// an end date the admin typed in is never overwritten.
type Window struct {
	Start          time.Time  `json:"internship_start_date"`
	End            *time.Time `json:"internship_end_date,omitempty"`
	DurationMonths *int       `json:"internship_duration_months,omitempty"`
	EndDerived     bool       `json:"-"`
}

// WindowEdit carries the window fields of a course edit. Nil means
// "not provided"; provided fields overwrite.
type WindowEdit struct {
	Start          *time.Time
	End            *time.Time
	DurationMonths *int
}

// DeriveWindow merges an edit into the previous window and keeps the three
// values mutually consistent:
//
//   - a provided end date pins End and recomputes the duration
//   - a provided duration computes End when End is absent or was itself
//     derived; a hand-edited End wins and the duration is recomputed from it
//   - a start change recomputes whichever side was derived
//
// An empty start is a validation failure, never a silent default.
func DeriveWindow(prev Window, edit WindowEdit) (Window, error) {
	next := prev
	if edit.Start != nil {
		next.Start = edit.Start.UTC()
	}
	if next.Start.IsZero() {
		return Window{}, core.NewValidationError(nil,
			core.FieldError{Field: "internship_start_date", Error: errStartRequired.Error()})
	}

	switch {
	case edit.End != nil:
		end := edit.End.UTC()
		next.End = &end
		next.EndDerived = false
		months := monthsBetween(next.Start, end)
		next.DurationMonths = &months

	case edit.DurationMonths != nil:
		next.DurationMonths = edit.DurationMonths
		if next.End == nil || next.EndDerived {
			end := addMonthsClamped(next.Start, *edit.DurationMonths)
			next.End = &end
			next.EndDerived = true
		} else {
			// the admin pinned the end date earlier; it wins
			months := monthsBetween(next.Start, *next.End)
			next.DurationMonths = &months
		}

	case edit.Start != nil:
		// only the start moved; refresh the derived side
		if next.End != nil && next.EndDerived && next.DurationMonths != nil {
			end := addMonthsClamped(next.Start, *next.DurationMonths)
			next.End = &end
		} else if next.End != nil {
			months := monthsBetween(next.Start, *next.End)
			next.DurationMonths = &months
		}
	}

	return next, nil
}

// addMonthsClamped adds calendar months, clamping to the last day of the
// target month when the start day does not exist there
// (Jan 31 + 1 month = Feb 29 in a leap year, not Mar 2).
func addMonthsClamped(start time.Time, months int) time.Time {
	year, month, day := start.Date()
	first := time.Date(year, month+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	if last := daysInMonth(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// monthsBetween counts whole calendar months from start to end, discarding
// any fractional remainder and flooring at zero when end precedes start.
// The count is clamp-aware: a start on Jan 31 reaches one month on the
// clamped Feb 28/29.
func monthsBetween(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()-start.Month())
	if months < 0 {
		return 0
	}
	for months > 0 && addMonthsClamped(start, months).After(end) {
		months--
	}
	return months
}
