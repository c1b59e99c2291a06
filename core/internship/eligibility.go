package internship

import (
	"fmt"
	"time"
)

// ReportGate holds the course knobs a report submission is checked against.
type ReportGate struct {
	MinHours int // completed hours required before reporting
	WaitDays int // days after the internship start before reporting opens
}

// EligibilityError says exactly which condition blocks the report, so the
// client can show the student what is still missing instead of a generic
// denial.
type EligibilityError struct {
	Reasons []string
}

func (e *EligibilityError) Error() string {
	if len(e.Reasons) == 0 {
		return "report not allowed"
	}
	msg := e.Reasons[0]
	for _, r := range e.Reasons[1:] {
		msg += "; " + r
	}
	return msg
}

// CheckReportEligibility gates report writes. Eligible when the completed
// hours meet the course minimum and the wait period since the internship
// start has elapsed. An unknown start date cannot block: the wait condition
// is then vacuously satisfied.
func CheckReportEligibility(gate ReportGate, completedHours int, start *time.Time, now time.Time) error {
	var reasons []string

	if completedHours < gate.MinHours {
		reasons = append(reasons, fmt.Sprintf(
			"completed hours (%d) are below the required minimum (%d)", completedHours, gate.MinHours))
	}

	if start != nil && gate.WaitDays > 0 {
		opens := start.AddDate(0, 0, gate.WaitDays)
		if now.Before(opens) {
			reasons = append(reasons, fmt.Sprintf(
				"reports open on %s, %d days after the internship start",
				opens.Format("2006-01-02"), gate.WaitDays))
		}
	}

	if len(reasons) > 0 {
		return &EligibilityError{Reasons: reasons}
	}
	return nil
}
