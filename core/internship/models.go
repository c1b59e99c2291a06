package internship

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/internlink/backend/core"
)

// Document visibility
const (
	VisibilityAll    = "todos"
	VisibilityTutors = "tutores" // hidden from the student
)

// Internship links a student to a company placement within their school.
// TutorID stays empty until a registered tutor claims the TutorEmail slot.
type Internship struct {
	ID             string     `json:"id"`
	StudentID      string     `json:"student_id"`
	SchoolID       string     `json:"school_id"`
	TeacherID      string     `json:"teacher_id,omitempty"`
	TutorID        string     `json:"tutor_id,omitempty"`
	TutorEmail     string     `json:"tutor_email,omitempty"`
	CompanyName    string     `json:"company_name"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	CompletedHours int        `json:"completed_hours"`
	ProtocolRef    string     `json:"protocol_ref,omitempty"`
	CreatedAt      time.Time  `json:"created_at"` // UTC
	UpdatedAt      time.Time  `json:"updated_at"` // UTC
}

// Document is a file attached to an internship, optionally requiring
// signatures from specific roles.
type Document struct {
	ID                 string      `json:"id"`
	InternshipID       string      `json:"internship_id"`
	Title              string      `json:"title"`
	FileURL            string      `json:"file_url,omitempty"`
	Visibility         string      `json:"visibility"`
	RequiredSignatures []string    `json:"required_signatures,omitempty"`
	Signatures         []Signature `json:"signatures,omitempty"`
	CreatedAt          time.Time   `json:"created_at"` // UTC
	UpdatedAt          time.Time   `json:"updated_at"` // UTC
}

// Signature records one role's sign-off on a document. A document holds at
// most one signature per role.
type Signature struct {
	DocumentID string    `json:"-"`
	Role       string    `json:"role"`
	ProfileID  string    `json:"profile_id"`
	SignedAt   time.Time `json:"signed_at"` // UTC
}

// Signed reports whether every required role has signed.
func (d *Document) Signed() bool {
	for _, role := range d.RequiredSignatures {
		var found bool
		for _, sig := range d.Signatures {
			if sig.Role == role {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Report is a student's internship report, gated by the course's
// eligibility knobs.
type Report struct {
	ID           string    `json:"id"`
	StudentID    string    `json:"student_id"`
	InternshipID string    `json:"internship_id"`
	Title        string    `json:"title"`
	Body         string    `json:"body,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

// NewInternship contains information needed to open a placement.
type NewInternship struct {
	StudentID   string     `json:"student_id" validate:"required"`
	TeacherID   string     `json:"teacher_id"`
	TutorEmail  string     `json:"tutor_email" validate:"omitempty,email"`
	CompanyName string     `json:"company_name" validate:"required"`
	StartDate   *time.Time `json:"start_date"`
	ProtocolRef string     `json:"protocol_ref"`
}

func (ni *NewInternship) Validate(validate *validator.Validate) error {
	ni.StudentID = core.CleanString(ni.StudentID)
	ni.TutorEmail = core.CleanString(ni.TutorEmail, true /* lower */)
	ni.CompanyName = core.CleanString(ni.CompanyName)
	return validate.Struct(ni)
}

// UpdateInternship carries an internship edit; nil and empty fields keep
// their stored values.
type UpdateInternship struct {
	TeacherID      string     `json:"teacher_id"`
	TutorEmail     string     `json:"tutor_email" validate:"omitempty,email"`
	CompanyName    string     `json:"company_name"`
	StartDate      *time.Time `json:"start_date"`
	CompletedHours *int       `json:"completed_hours" validate:"omitempty,min=0"`
	ProtocolRef    string     `json:"protocol_ref"`
}

func (ui *UpdateInternship) Validate(validate *validator.Validate) error {
	ui.TutorEmail = core.CleanString(ui.TutorEmail, true /* lower */)
	ui.CompanyName = core.CleanString(ui.CompanyName)
	return validate.Struct(ui)
}

// NewDocument attaches a file to an internship.
type NewDocument struct {
	Title              string   `json:"title" validate:"required"`
	FileURL            string   `json:"file_url" validate:"omitempty,url"`
	Visibility         string   `json:"visibility" validate:"omitempty,oneof=todos tutores"`
	RequiredSignatures []string `json:"required_signatures" validate:"dive,oneof=aluno professor tutor"`
}

func (nd *NewDocument) Validate(validate *validator.Validate) error {
	nd.Title = core.CleanString(nd.Title)
	if nd.Visibility == "" {
		nd.Visibility = VisibilityAll
	}
	return validate.Struct(nd)
}

// NewReport is a student's report submission.
type NewReport struct {
	InternshipID string `json:"internship_id" validate:"required"`
	Title        string `json:"title" validate:"required"`
	Body         string `json:"body"`
}

func (nr *NewReport) Validate(validate *validator.Validate) error {
	nr.InternshipID = core.CleanString(nr.InternshipID)
	nr.Title = core.CleanString(nr.Title)
	return validate.Struct(nr)
}

// UpdateReport edits a report's content.
type UpdateReport struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (ur *UpdateReport) Validate(validate *validator.Validate) error {
	ur.Title = core.CleanString(ur.Title)
	return validate.Struct(ur)
}
