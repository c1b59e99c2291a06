package school

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

var (
	ErrNotFound       = errors.New("school not found")
	ErrCourseNotFound = errors.New("course not found")
	ErrFolderNotFound = errors.New("folder not found")
)

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchoolByID(ctx context.Context, id string) (School, error)
		GetAllSchools(ctx context.Context) ([]School, error)
		UpdateSchool(ctx context.Context, sch School) (School, error)

		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCoursesBySchool(ctx context.Context, schoolID string) ([]Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateFolder(ctx context.Context, fld Folder) (Folder, error)
		GetFoldersBySchool(ctx context.Context, schoolID string) ([]Folder, error)
		DeleteFolder(ctx context.Context, id string) error

		CreatePendingTeacher(ctx context.Context, pt PendingTeacher) (PendingTeacher, error)
		GetPendingTeachersBySchool(ctx context.Context, schoolID string) ([]PendingTeacher, error)
		GetPendingTeacherByEmail(ctx context.Context, schoolID, email string) (PendingTeacher, error)
		DeletePendingTeacher(ctx context.Context, id string) error

		CreateApprovalHistory(ctx context.Context, ah ApprovalHistory) (ApprovalHistory, error)
		GetApprovalHistoryBySchool(ctx context.Context, schoolID string) ([]ApprovalHistory, error)

		CreateSchoolRequest(ctx context.Context, sr SchoolRequest) (SchoolRequest, error)
		GetAllSchoolRequests(ctx context.Context) ([]SchoolRequest, error)
	}

	Service interface {
		Create(ctx context.Context, ns NewSchool) (School, error)
		GetByID(ctx context.Context, id string) (School, error)
		GetAll(ctx context.Context) ([]School, error)
		Update(ctx context.Context, id string, us UpdateSchool) (School, error)

		CreateCourse(ctx context.Context, schoolID string, nc NewCourse) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryCourses(ctx context.Context, schoolID string) ([]Course, error)
		UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error)
		DeleteCourse(ctx context.Context, id string) error

		CreateFolder(ctx context.Context, schoolID string, nf NewFolder) (Folder, error)
		QueryFolders(ctx context.Context, schoolID string) ([]Folder, error)
		DeleteFolder(ctx context.Context, id string) error

		InviteTeacher(ctx context.Context, schoolID, invitedBy string, npt NewPendingTeacher) (PendingTeacher, error)
		QueryPendingTeachers(ctx context.Context, schoolID string) ([]PendingTeacher, error)
		RevokeTeacherInvite(ctx context.Context, id string) error

		QueryApprovalHistory(ctx context.Context, schoolID string) ([]ApprovalHistory, error)

		RequestSchool(ctx context.Context, nsr NewSchoolRequest) (SchoolRequest, error)
		QuerySchoolRequests(ctx context.Context) ([]SchoolRequest, error)
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) Create(ctx context.Context, ns NewSchool) (School, error) {
	now := time.Now().UTC()
	return svc.repo.CreateSchool(ctx, School{
		ID:                        uuid.New().String(),
		Name:                      ns.Name,
		EmailDomain:               ns.EmailDomain,
		RequireInstitutionalEmail: ns.RequireInstitutionalEmail,
		Address:                   ns.Address,
		Phone:                     ns.Phone,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchoolByID(ctx, id)
}

func (svc *service) GetAll(ctx context.Context) ([]School, error) {
	return svc.repo.GetAllSchools(ctx)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSchool) (School, error) {
	sch, err := svc.repo.GetSchoolByID(ctx, id)
	if err != nil {
		return School{}, err
	}
	sch.Name = us.Name
	sch.EmailDomain = us.EmailDomain
	if us.RequireInstitutionalEmail != nil {
		sch.RequireInstitutionalEmail = *us.RequireInstitutionalEmail
	}
	if us.Address != "" {
		sch.Address = us.Address
	}
	if us.Phone != "" {
		sch.Phone = us.Phone
	}
	if us.LogoURL != "" {
		sch.LogoURL = us.LogoURL
	}
	sch.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSchool(ctx, sch)
}

func (svc *service) CreateCourse(ctx context.Context, schoolID string, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetSchoolByID(ctx, schoolID); err != nil {
		return Course{}, err
	}
	if err := svc.checkFolder(ctx, schoolID, nc.FolderID); err != nil {
		return Course{}, err
	}

	window, err := DeriveWindow(Window{}, WindowEdit{
		Start:          nc.StartDate,
		End:            nc.EndDate,
		DurationMonths: nc.DurationMonths,
	})
	if err != nil {
		return Course{}, err
	}

	now := time.Now().UTC()
	crs := Course{
		ID:             uuid.New().String(),
		SchoolID:       schoolID,
		Name:           nc.Name,
		FolderID:       nc.FolderID,
		Window:         window,
		ReportMinHours: DefaultReportMinHours,
		ReportWaitDays: DefaultReportWaitDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if nc.EnrollmentCap != nil {
		crs.EnrollmentCap = *nc.EnrollmentCap
	}
	if nc.ReportMinHours != nil {
		crs.ReportMinHours = *nc.ReportMinHours
	}
	if nc.ReportWaitDays != nil {
		crs.ReportWaitDays = *nc.ReportWaitDays
	}
	return svc.repo.CreateCourse(ctx, crs)
}

// checkFolder verifies that a folder grouping belongs to the course's school.
func (svc *service) checkFolder(ctx context.Context, schoolID, folderID string) error {
	if folderID == "" {
		return nil
	}
	folders, err := svc.repo.GetFoldersBySchool(ctx, schoolID)
	if err != nil {
		return err
	}
	for _, fld := range folders {
		if fld.ID == folderID {
			return nil
		}
	}
	return ErrFolderNotFound
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) QueryCourses(ctx context.Context, schoolID string) ([]Course, error) {
	return svc.repo.GetCoursesBySchool(ctx, schoolID)
}

func (svc *service) UpdateCourse(ctx context.Context, id string, uc UpdateCourse) (Course, error) {
	crs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}

	window, err := DeriveWindow(crs.Window, WindowEdit{
		Start:          uc.StartDate,
		End:            uc.EndDate,
		DurationMonths: uc.DurationMonths,
	})
	if err != nil {
		return Course{}, err
	}
	crs.Window = window

	if uc.Name != "" {
		crs.Name = uc.Name
	}
	if uc.FolderID != nil {
		if err = svc.checkFolder(ctx, crs.SchoolID, *uc.FolderID); err != nil {
			return Course{}, err
		}
		crs.FolderID = *uc.FolderID
	}
	if uc.EnrollmentCap != nil {
		crs.EnrollmentCap = *uc.EnrollmentCap
	}
	if uc.ReportMinHours != nil {
		crs.ReportMinHours = *uc.ReportMinHours
	}
	if uc.ReportWaitDays != nil {
		crs.ReportWaitDays = *uc.ReportWaitDays
	}
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) DeleteCourse(ctx context.Context, id string) error {
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) CreateFolder(ctx context.Context, schoolID string, nf NewFolder) (Folder, error) {
	return svc.repo.CreateFolder(ctx, Folder{
		ID:        uuid.New().String(),
		SchoolID:  schoolID,
		Name:      nf.Name,
		ParentID:  nf.ParentID,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) QueryFolders(ctx context.Context, schoolID string) ([]Folder, error) {
	return svc.repo.GetFoldersBySchool(ctx, schoolID)
}

func (svc *service) DeleteFolder(ctx context.Context, id string) error {
	return svc.repo.DeleteFolder(ctx, id)
}

// InviteTeacher records a standing invitation and emails the teacher a
// registration link.
func (svc *service) InviteTeacher(ctx context.Context, schoolID, invitedBy string, npt NewPendingTeacher) (PendingTeacher, error) {
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
	go svc.sendTeacherInviteMail(pt, sch)
	return pt, nil
}

func (svc *service) QueryPendingTeachers(ctx context.Context, schoolID string) ([]PendingTeacher, error) {
	return svc.repo.GetPendingTeachersBySchool(ctx, schoolID)
}

func (svc *service) RevokeTeacherInvite(ctx context.Context, id string) error {
	return svc.repo.DeletePendingTeacher(ctx, id)
}

func (svc *service) QueryApprovalHistory(ctx context.Context, schoolID string) ([]ApprovalHistory, error) {
	return svc.repo.GetApprovalHistoryBySchool(ctx, schoolID)
}

func (svc *service) RequestSchool(ctx context.Context, nsr NewSchoolRequest) (SchoolRequest, error) {
	return svc.repo.CreateSchoolRequest(ctx, SchoolRequest{
		ID:          uuid.New().String(),
		SchoolName:  nsr.SchoolName,
		ContactName: nsr.ContactName,
		Email:       nsr.Email,
		Phone:       nsr.Phone,
		Message:     nsr.Message,
		CreatedAt:   time.Now().UTC(),
	})
}

func (svc *service) QuerySchoolRequests(ctx context.Context) ([]SchoolRequest, error) {
	return svc.repo.GetAllSchoolRequests(ctx)
}

func (svc *service) sendTeacherInviteMail(pt PendingTeacher, sch School) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: pt.Name, Address: pt.Email}},
		Subject:      "Teacher invitation",
		TemplateName: "teacher-invite",
		TemplateData: struct {
			Name       string
			SchoolName string
		}{
			Name:       pt.Name,
			SchoolName: sch.Name,
		},
	})
}

// Directory adapts this aggregate to the lookups the profile package needs,
// keeping the dependency pointing one way.
type Directory struct {
	repo Repository
}

var _ profile.SchoolDirectory = (*Directory)(nil)

func NewDirectory(repo Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) GetSchoolInfo(ctx context.Context, id string) (profile.SchoolInfo, error) {
	sch, err := d.repo.GetSchoolByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return profile.SchoolInfo{}, profile.ErrSchoolNotFound
		}
		return profile.SchoolInfo{}, err
	}
	return profile.SchoolInfo{
		ID:                        sch.ID,
		Name:                      sch.Name,
		EmailDomain:               sch.EmailDomain,
		RequireInstitutionalEmail: sch.RequireInstitutionalEmail,
	}, nil
}

func (d *Directory) RecordApproval(ctx context.Context, schoolID, profileID, approverID, action string) error {
	_, err := d.repo.CreateApprovalHistory(ctx, ApprovalHistory{
		ID:         uuid.New().String(),
		SchoolID:   schoolID,
		ProfileID:  profileID,
		ApproverID: approverID,
		Action:     action,
		CreatedAt:  time.Now().UTC(),
	})
	return err
}
