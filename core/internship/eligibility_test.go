package internship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReportEligibility(t *testing.T) {
	now := time.Date(2024, time.June, 10, 12, 0, 0, 0, time.UTC)
	start := now // internship starts today

	tests := []struct {
		name        string
		gate        ReportGate
		hours       int
		start       *time.Time
		wantErr     bool
		wantReasons int
		wantContain string
	}{
		{
			name:        "one hour short",
			gate:        ReportGate{MinHours: 80},
			hours:       79,
			start:       &start,
			wantErr:     true,
			wantReasons: 1,
			wantContain: "completed hours (79) are below the required minimum (80)",
		},
		{
			name:        "hours met but wait period still running",
			gate:        ReportGate{MinHours: 80, WaitDays: 2},
			hours:       80,
			start:       &start,
			wantErr:     true,
			wantReasons: 1,
			wantContain: "reports open on 2024-06-12",
		},
		{
			name:  "hours met and no wait period",
			gate:  ReportGate{MinHours: 80},
			hours: 80,
			start: &start,
		},
		{
			name:  "unknown start date cannot block on the wait period",
			gate:  ReportGate{MinHours: 80, WaitDays: 30},
			hours: 120,
		},
		{
			name:        "both conditions unmet reports both",
			gate:        ReportGate{MinHours: 80, WaitDays: 2},
			hours:       10,
			start:       &start,
			wantErr:     true,
			wantReasons: 2,
		},
		{
			name:  "wait period elapsed",
			gate:  ReportGate{MinHours: 80, WaitDays: 2},
			hours: 90,
			start: func() *time.Time { s := now.AddDate(0, 0, -3); return &s }(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckReportEligibility(tt.gate, tt.hours, tt.start, now)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var elErr *EligibilityError
			require.ErrorAs(t, err, &elErr)
			assert.Len(t, elErr.Reasons, tt.wantReasons)
			if tt.wantContain != "" {
				assert.Contains(t, err.Error(), tt.wantContain)
			}
		})
	}
}
