package school

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service whose side effects run synchronously,
// for use in tests.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			repo:    repo,
			mailSvc: mailSvc,
			conf:    conf,
		},
	}
}

func (svc *serviceMock) InviteTeacher(ctx context.Context, schoolID, invitedBy string, npt NewPendingTeacher) (PendingTeacher, error) {
	sch, err := svc.repo.GetSchoolByID(ctx, schoolID)
	if err != nil {
		return PendingTeacher{}, err
	}
	pt, err := svc.repo.CreatePendingTeacher(ctx, PendingTeacher{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Email:     npt.Email,
		Name:      npt.Name,
		InvitedBy: invitedBy,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return PendingTeacher{}, err
	}
	// run synchronously
	svc.sendTeacherInviteMail(pt, sch)
	return pt, nil
}
