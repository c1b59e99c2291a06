package internship

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core/profile"
)

var (
	ErrNotFound           = errors.New("internship not found")
	ErrDocumentNotFound   = errors.New("document not found")
	ErrReportNotFound     = errors.New("report not found")
	ErrAlreadySigned      = errors.New("document already signed for this role")
	ErrSignatureNotWanted = errors.New("document does not require this signature")
)

type (
	Repository interface {
		CreateInternship(ctx context.Context, itn Internship) (Internship, error)
		GetInternshipByID(ctx context.Context, id string) (Internship, error)
		GetInternshipsByStudent(ctx context.Context, studentID string) ([]Internship, error)
		GetInternshipsBySchool(ctx context.Context, schoolID string) ([]Internship, error)
		GetInternshipsByTutor(ctx context.Context, tutorID string) ([]Internship, error)
		UpdateInternship(ctx context.Context, itn Internship) (Internship, error)
		// LinkTutorByEmail claims every unclaimed tutor slot matching the email
		// and returns how many were linked.
		LinkTutorByEmail(ctx context.Context, email, tutorID string) (int, error)

		CreateDocument(ctx context.Context, doc Document) (Document, error)
		GetDocumentByID(ctx context.Context, id string) (Document, error)
		GetDocumentsByInternship(ctx context.Context, internshipID string) ([]Document, error)
		// CreateSignature returns ErrAlreadySigned when the role slot is taken.
		CreateSignature(ctx context.Context, sig Signature) error

		CreateReport(ctx context.Context, rep Report) (Report, error)
		GetReportByID(ctx context.Context, id string) (Report, error)
		GetReportsByStudent(ctx context.Context, studentID string) ([]Report, error)
		GetReportsByInternship(ctx context.Context, internshipID string) ([]Report, error)
		UpdateReport(ctx context.Context, rep Report) (Report, error)
		DeleteReport(ctx context.Context, id string) error
	}

	// GateDirectory resolves the report gate a student inherits from their
	// course. Implemented by the school aggregate.
	GateDirectory interface {
		ReportGate(ctx context.Context, studentID string) (ReportGate, error)
	}

	Service interface {
		Create(ctx context.Context, schoolID string, ni NewInternship) (Internship, error)
		GetByID(ctx context.Context, id string) (Internship, error)
		QueryByStudent(ctx context.Context, studentID string) ([]Internship, error)
		QueryBySchool(ctx context.Context, schoolID string) ([]Internship, error)
		QueryByTutor(ctx context.Context, tutorID string) ([]Internship, error)
		Update(ctx context.Context, id string, ui UpdateInternship) (Internship, error)
		// LinkTutor claims open tutor slots for a freshly activated tutor.
		LinkTutor(ctx context.Context, tutor profile.Profile) (int, error)

		AddDocument(ctx context.Context, internshipID string, nd NewDocument) (Document, error)
		GetDocument(ctx context.Context, id string) (Document, error)
		QueryDocuments(ctx context.Context, internshipID string) ([]Document, error)
		Sign(ctx context.Context, signer profile.Profile, documentID string) (Document, error)

		CreateReport(ctx context.Context, studentID string, nr NewReport) (Report, error)
		GetReport(ctx context.Context, id string) (Report, error)
		QueryReportsByStudent(ctx context.Context, studentID string) ([]Report, error)
		QueryReportsByInternship(ctx context.Context, internshipID string) ([]Report, error)
		UpdateReport(ctx context.Context, id string, ur UpdateReport) (Report, error)
		DeleteReport(ctx context.Context, id string) error
	}

	service struct {
		repo  Repository
		gates GateDirectory
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, gates GateDirectory) Service {
	return &service{
		repo:  repo,
		gates: gates,
	}
}

func (svc *service) Create(ctx context.Context, schoolID string, ni NewInternship) (Internship, error) {
	now := time.Now().UTC()
	return svc.repo.CreateInternship(ctx, Internship{
		ID:          uuid.New().String(),
		StudentID:   ni.StudentID,
		SchoolID:    schoolID,
		TeacherID:   ni.TeacherID,
		TutorEmail:  ni.TutorEmail,
		CompanyName: ni.CompanyName,
		StartDate:   ni.StartDate,
		ProtocolRef: ni.ProtocolRef,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *service) GetByID(ctx context.Context, id string) (Internship, error) {
	return svc.repo.GetInternshipByID(ctx, id)
}

func (svc *service) QueryByStudent(ctx context.Context, studentID string) ([]Internship, error) {
	return svc.repo.GetInternshipsByStudent(ctx, studentID)
}

func (svc *service) QueryBySchool(ctx context.Context, schoolID string) ([]Internship, error) {
	return svc.repo.GetInternshipsBySchool(ctx, schoolID)
}

func (svc *service) QueryByTutor(ctx context.Context, tutorID string) ([]Internship, error) {
	return svc.repo.GetInternshipsByTutor(ctx, tutorID)
}

func (svc *service) Update(ctx context.Context, id string, ui UpdateInternship) (Internship, error) {
	itn, err := svc.repo.GetInternshipByID(ctx, id)
	if err != nil {
		return Internship{}, err
	}
	if ui.TeacherID != "" {
		itn.TeacherID = ui.TeacherID
	}
	if ui.TutorEmail != "" && ui.TutorEmail != itn.TutorEmail {
		itn.TutorEmail = ui.TutorEmail
		itn.TutorID = "" // the new tutor has to claim the slot
	}
	if ui.CompanyName != "" {
		itn.CompanyName = ui.CompanyName
	}
	if ui.StartDate != nil {
		itn.StartDate = ui.StartDate
	}
	if ui.CompletedHours != nil {
		itn.CompletedHours = *ui.CompletedHours
	}
	if ui.ProtocolRef != "" {
		itn.ProtocolRef = ui.ProtocolRef
	}
	itn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateInternship(ctx, itn)
}

func (svc *service) LinkTutor(ctx context.Context, tutor profile.Profile) (int, error) {
	if !tutor.IsTutor() {
		return 0, nil
	}
	return svc.repo.LinkTutorByEmail(ctx, tutor.Email, tutor.ID)
}

func (svc *service) AddDocument(ctx context.Context, internshipID string, nd NewDocument) (Document, error) {
	if _, err := svc.repo.GetInternshipByID(ctx, internshipID); err != nil {
		return Document{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateDocument(ctx, Document{
		ID:                 uuid.New().String(),
		InternshipID:       internshipID,
		Title:              nd.Title,
		FileURL:            nd.FileURL,
		Visibility:         nd.Visibility,
		RequiredSignatures: nd.RequiredSignatures,
		CreatedAt:          now,
		UpdatedAt:          now,
	})
}

func (svc *service) GetDocument(ctx context.Context, id string) (Document, error) {
	return svc.repo.GetDocumentByID(ctx, id)
}

func (svc *service) QueryDocuments(ctx context.Context, internshipID string) ([]Document, error) {
	return svc.repo.GetDocumentsByInternship(ctx, internshipID)
}

// Sign records the signer's role sign-off. The document must list the role
// among its required signatures and the role slot must still be open.
func (svc *service) Sign(ctx context.Context, signer profile.Profile, documentID string) (Document, error) {
	doc, err := svc.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return Document{}, err
	}

	var wanted bool
	for _, role := range doc.RequiredSignatures {
		if role == signer.Role {
			wanted = true
			break
		}
	}
	if !wanted {
		return Document{}, ErrSignatureNotWanted
	}

	err = svc.repo.CreateSignature(ctx, Signature{
		DocumentID: doc.ID,
		Role:       signer.Role,
		ProfileID:  signer.ID,
		SignedAt:   time.Now().UTC(),
	})
	if err != nil {
		return Document{}, err
	}
	return svc.repo.GetDocumentByID(ctx, documentID)
}

// CreateReport is gated: the student's completed hours and the course wait
// period are checked before anything is stored.
func (svc *service) CreateReport(ctx context.Context, studentID string, nr NewReport) (Report, error) {
	itn, err := svc.repo.GetInternshipByID(ctx, nr.InternshipID)
	if err != nil {
		return Report{}, err
	}
	if err = svc.checkGate(ctx, itn); err != nil {
		return Report{}, err
	}

	now := time.Now().UTC()
	return svc.repo.CreateReport(ctx, Report{
		ID:           uuid.New().String(),
		StudentID:    studentID,
		InternshipID: nr.InternshipID,
		Title:        nr.Title,
		Body:         nr.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *service) GetReport(ctx context.Context, id string) (Report, error) {
	return svc.repo.GetReportByID(ctx, id)
}

func (svc *service) QueryReportsByStudent(ctx context.Context, studentID string) ([]Report, error) {
	return svc.repo.GetReportsByStudent(ctx, studentID)
}

func (svc *service) QueryReportsByInternship(ctx context.Context, internshipID string) ([]Report, error) {
	return svc.repo.GetReportsByInternship(ctx, internshipID)
}

// UpdateReport re-checks the gate; a report that became editable stays
// editable only while the conditions still hold.
func (svc *service) UpdateReport(ctx context.Context, id string, ur UpdateReport) (Report, error) {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return Report{}, err
	}
	itn, err := svc.repo.GetInternshipByID(ctx, rep.InternshipID)
	if err != nil {
		return Report{}, err
	}
	if err = svc.checkGate(ctx, itn); err != nil {
		return Report{}, err
	}

	if ur.Title != "" {
		rep.Title = ur.Title
	}
	rep.Body = ur.Body
	rep.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateReport(ctx, rep)
}

func (svc *service) DeleteReport(ctx context.Context, id string) error {
	rep, err := svc.repo.GetReportByID(ctx, id)
	if err != nil {
		return err
	}
	itn, err := svc.repo.GetInternshipByID(ctx, rep.InternshipID)
	if err != nil {
		return err
	}
	if err = svc.checkGate(ctx, itn); err != nil {
		return err
	}
	return svc.repo.DeleteReport(ctx, id)
}

func (svc *service) checkGate(ctx context.Context, itn Internship) error {
	gate, err := svc.gates.ReportGate(ctx, itn.StudentID)
	if err != nil {
		return errors.Wrap(err, "resolving report gate")
	}
	return CheckReportEligibility(gate, itn.CompletedHours, itn.StartDate, time.Now().UTC())
}
