package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/internlink/backend/core/internship"
)

type internshipRepository struct {
	db *DB
}

var _ internship.Repository = (*internshipRepository)(nil)

func NewInternshipRepository(db *DB) *internshipRepository {
	return &internshipRepository{db: db}
}

func (repo *internshipRepository) CreateInternship(_ context.Context, itn internship.Internship) (internship.Internship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.internships[itn.ID] = &itn
	return itn, nil
}

func (repo *internshipRepository) GetInternshipByID(_ context.Context, id string) (internship.Internship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if itn, ok := repo.db.internships[id]; ok {
		return *itn, nil
	}
	return internship.Internship{}, internship.ErrNotFound
}

func (repo *internshipRepository) filter(keep func(internship.Internship) bool) []internship.Internship {
	var itns []internship.Internship
	for _, itn := range repo.db.internships {
		if keep(*itn) {
			itns = append(itns, *itn)
		}
	}
	sort.Slice(itns, func(i, j int) bool { return itns[i].CreatedAt.After(itns[j].CreatedAt) })
	return itns
}

func (repo *internshipRepository) GetInternshipsByStudent(_ context.Context, studentID string) ([]internship.Internship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(itn internship.Internship) bool { return itn.StudentID == studentID }), nil
}

func (repo *internshipRepository) GetInternshipsBySchool(_ context.Context, schoolID string) ([]internship.Internship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(itn internship.Internship) bool { return itn.SchoolID == schoolID }), nil
}

func (repo *internshipRepository) GetInternshipsByTutor(_ context.Context, tutorID string) ([]internship.Internship, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filter(func(itn internship.Internship) bool { return itn.TutorID == tutorID }), nil
}

func (repo *internshipRepository) UpdateInternship(_ context.Context, itn internship.Internship) (internship.Internship, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.internships[itn.ID]; !ok {
		return internship.Internship{}, internship.ErrNotFound
	}
	repo.db.internships[itn.ID] = &itn
	return itn, nil
}

func (repo *internshipRepository) LinkTutorByEmail(_ context.Context, email, tutorID string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var linked int
	for _, itn := range repo.db.internships {
		if itn.TutorEmail == email && itn.TutorID == "" {
			itn.TutorID = tutorID
			itn.UpdatedAt = time.Now().UTC()
			linked++
		}
	}
	return linked, nil
}

func (repo *internshipRepository) CreateDocument(_ context.Context, doc internship.Document) (internship.Document, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.documents[doc.ID] = &doc
	return doc, nil
}

func (repo *internshipRepository) GetDocumentByID(_ context.Context, id string) (internship.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	doc, ok := repo.db.documents[id]
	if !ok {
		return internship.Document{}, internship.ErrDocumentNotFound
	}
	out := *doc
	out.Signatures = append([]internship.Signature(nil), repo.db.signatures[id]...)
	return out, nil
}

func (repo *internshipRepository) GetDocumentsByInternship(_ context.Context, internshipID string) ([]internship.Document, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var docs []internship.Document
	for _, doc := range repo.db.documents {
		if doc.InternshipID == internshipID {
			out := *doc
			out.Signatures = append([]internship.Signature(nil), repo.db.signatures[doc.ID]...)
			docs = append(docs, out)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.Before(docs[j].CreatedAt) })
	return docs, nil
}

func (repo *internshipRepository) CreateSignature(_ context.Context, sig internship.Signature) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.signatures[sig.DocumentID] {
		if existing.Role == sig.Role {
			return internship.ErrAlreadySigned
		}
	}
	repo.db.signatures[sig.DocumentID] = append(repo.db.signatures[sig.DocumentID], sig)
	return nil
}

func (repo *internshipRepository) CreateReport(_ context.Context, rep internship.Report) (internship.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.reports[rep.ID] = &rep
	return rep, nil
}

func (repo *internshipRepository) GetReportByID(_ context.Context, id string) (internship.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rep, ok := repo.db.reports[id]; ok {
		return *rep, nil
	}
	return internship.Report{}, internship.ErrReportNotFound
}

func (repo *internshipRepository) reportsWhere(keep func(internship.Report) bool) []internship.Report {
	var reps []internship.Report
	for _, rep := range repo.db.reports {
		if keep(*rep) {
			reps = append(reps, *rep)
		}
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].CreatedAt.After(reps[j].CreatedAt) })
	return reps
}

func (repo *internshipRepository) GetReportsByStudent(_ context.Context, studentID string) ([]internship.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.reportsWhere(func(rep internship.Report) bool { return rep.StudentID == studentID }), nil
}

func (repo *internshipRepository) GetReportsByInternship(_ context.Context, internshipID string) ([]internship.Report, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.reportsWhere(func(rep internship.Report) bool { return rep.InternshipID == internshipID }), nil
}

func (repo *internshipRepository) UpdateReport(_ context.Context, rep internship.Report) (internship.Report, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.reports[rep.ID]; !ok {
		return internship.Report{}, internship.ErrReportNotFound
	}
	repo.db.reports[rep.ID] = &rep
	return rep, nil
}

func (repo *internshipRepository) DeleteReport(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.reports, id)
	return nil
}
