package school

import (
	"context"

	"github.com/pkg/errors"

	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
)

// ProfileGetter is the slice of the profile service the gate source needs.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (profile.Profile, error)
}

// GateSource resolves a student's report gate from their course knobs.
// Students without a course fall back to the defaults.
type GateSource struct {
	repo     Repository
	profiles ProfileGetter
}

var _ internship.GateDirectory = (*GateSource)(nil)

func NewGateSource(repo Repository, profiles ProfileGetter) *GateSource {
	return &GateSource{repo: repo, profiles: profiles}
}

func (g *GateSource) ReportGate(ctx context.Context, studentID string) (internship.ReportGate, error) {
	prof, err := g.profiles.GetByID(ctx, studentID)
	if err != nil {
		return internship.ReportGate{}, errors.Wrap(err, "looking up student")
	}
	if prof.CourseID == "" {
		return internship.ReportGate{MinHours: DefaultReportMinHours, WaitDays: DefaultReportWaitDays}, nil
	}
	crs, err := g.repo.GetCourseByID(ctx, prof.CourseID)
	if err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return internship.ReportGate{MinHours: DefaultReportMinHours, WaitDays: DefaultReportWaitDays}, nil
		}
		return internship.ReportGate{}, errors.Wrap(err, "looking up course")
	}
	return internship.ReportGate{MinHours: crs.ReportMinHours, WaitDays: crs.ReportWaitDays}, nil
}
