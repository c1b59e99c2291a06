package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/internlink/backend/core"
)

// School is the tenant record. Every school-scoped profile and every
// internship hangs off exactly one school.
type School struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// EmailDomain plus RequireInstitutionalEmail drive the registration
	// email-domain policy for this tenant.
	EmailDomain               string    `json:"email_domain,omitempty"`
	RequireInstitutionalEmail bool      `json:"require_institutional_email"`
	Address                   string    `json:"address,omitempty"`
	Phone                     string    `json:"phone,omitempty"`
	LogoURL                   string    `json:"logo_url,omitempty"`
	CreatedAt                 time.Time `json:"created_at"` // UTC
	UpdatedAt                 time.Time `json:"updated_at"` // UTC
}

// Folder organizes a school's documents.
type Folder struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent_id,omitempty"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// PendingTeacher is a school admin's standing invitation: a teacher
// registering with this email is pre-cleared for the school.
type PendingTeacher struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	InvitedBy string    `json:"invited_by"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// ApprovalHistory is the audit trail of account lifecycle transitions
// performed by this school's approvers.
type ApprovalHistory struct {
	ID         string    `json:"id"`
	SchoolID   string    `json:"school_id"`
	ProfileID  string    `json:"profile_id"`
	ApproverID string    `json:"approver_id"`
	Action     string    `json:"action"`     // resulting estado
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// SchoolRequest is an unauthenticated ask to onboard a new school; platform
// admins review these out of band.
type SchoolRequest struct {
	ID          string    `json:"id"`
	SchoolName  string    `json:"school_name"`
	ContactName string    `json:"contact_name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
}

// Course carries the internship window and the report-eligibility knobs
// students inherit.
type Course struct {
	ID       string `json:"id"`
	SchoolID string `json:"school_id"`
	Name     string `json:"name"`
	// FolderID optionally groups the course under one of the school's folders.
	FolderID string `json:"folder_id,omitempty"`
	// EnrollmentCap of 0 means unlimited.
	EnrollmentCap int `json:"enrollment_cap"`

	Window Window `json:"window"`

	// report eligibility knobs; see the internship package
	ReportMinHours int `json:"report_min_hours"`
	ReportWaitDays int `json:"report_wait_days"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// defaults applied when a course is created without explicit knobs.
const (
	DefaultReportMinHours = 80
	DefaultReportWaitDays = 0
)

// NewSchool contains information needed to create a school.
type NewSchool struct {
	Name                      string `json:"name" validate:"required"`
	EmailDomain               string `json:"email_domain" validate:"omitempty,fqdn"`
	RequireInstitutionalEmail bool   `json:"require_institutional_email"`
	Address                   string `json:"address"`
	Phone                     string `json:"phone"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.EmailDomain = core.CleanString(ns.EmailDomain, true /* lower */)
	ns.Address = core.CleanString(ns.Address)
	return validate.Struct(ns)
}

// UpdateSchool defines what a school admin may change on their school.
type UpdateSchool struct {
	Name                      string `json:"name"`
	EmailDomain               string `json:"email_domain" validate:"omitempty,fqdn"`
	RequireInstitutionalEmail *bool  `json:"require_institutional_email"`
	Address                   string `json:"address"`
	Phone                     string `json:"phone"`
	LogoURL                   string `json:"logo_url" validate:"omitempty,url"`
}

func (us *UpdateSchool) Validate(orig School, validate *validator.Validate) error {
	name := core.CleanString(us.Name)
	if name != "" {
		us.Name = name
	} else {
		us.Name = orig.Name
	}
	us.EmailDomain = core.CleanString(us.EmailDomain, true /* lower */)
	us.Address = core.CleanString(us.Address)
	return validate.Struct(us)
}

// NewCourse contains information needed to create a course.
// The start date is mandatory; end and duration derive from each other.
type NewCourse struct {
	Name           string     `json:"name" validate:"required"`
	FolderID       string     `json:"folder_id"`
	EnrollmentCap  *int       `json:"enrollment_cap" validate:"omitempty,min=1"`
	StartDate      *time.Time `json:"internship_start_date" validate:"required"`
	EndDate        *time.Time `json:"internship_end_date"`
	DurationMonths *int       `json:"internship_duration_months" validate:"omitempty,min=1"`
	ReportMinHours *int       `json:"report_min_hours" validate:"omitempty,min=0"`
	ReportWaitDays *int       `json:"report_wait_days" validate:"omitempty,min=0"`
}

func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateCourse carries a course edit. Only provided fields change; the
// window fields feed DeriveWindow.
type UpdateCourse struct {
	Name           string     `json:"name"`
	FolderID       *string    `json:"folder_id"`
	EnrollmentCap  *int       `json:"enrollment_cap" validate:"omitempty,min=1"`
	StartDate      *time.Time `json:"internship_start_date"`
	EndDate        *time.Time `json:"internship_end_date"`
	DurationMonths *int       `json:"internship_duration_months" validate:"omitempty,min=1"`
	ReportMinHours *int       `json:"report_min_hours" validate:"omitempty,min=0"`
	ReportWaitDays *int       `json:"report_wait_days" validate:"omitempty,min=0"`
}

func (uc *UpdateCourse) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

// NewPendingTeacher is a school admin's teacher invitation.
type NewPendingTeacher struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name"`
}

func (npt *NewPendingTeacher) Validate(validate *validator.Validate) error {
	npt.Email = core.CleanString(npt.Email, true /* lower */)
	npt.Name = core.CleanString(npt.Name)
	return validate.Struct(npt)
}

// NewFolder names a document folder.
type NewFolder struct {
	Name     string `json:"name" validate:"required"`
	ParentID string `json:"parent_id"`
}

func (nf *NewFolder) Validate(validate *validator.Validate) error {
	nf.Name = core.CleanString(nf.Name)
	return validate.Struct(nf)
}

// NewSchoolRequest is the public onboarding ask.
type NewSchoolRequest struct {
	SchoolName  string `json:"school_name" validate:"required"`
	ContactName string `json:"contact_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone"`
	Message     string `json:"message"`
}

func (nsr *NewSchoolRequest) Validate(validate *validator.Validate) error {
	nsr.SchoolName = core.CleanString(nsr.SchoolName)
	nsr.ContactName = core.CleanString(nsr.ContactName)
	nsr.Email = core.CleanString(nsr.Email, true /* lower */)
	nsr.Message = core.CleanString(nsr.Message)
	return validate.Struct(nsr)
}
