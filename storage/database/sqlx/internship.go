package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core/internship"
)

type internshipRow struct {
	ID             string         `db:"id"`
	StudentID      string         `db:"student_id"`
	SchoolID       string         `db:"school_id"`
	TeacherID      sql.NullString `db:"teacher_id"`
	TutorID        sql.NullString `db:"tutor_id"`
	TutorEmail     sql.NullString `db:"tutor_email"`
	CompanyName    string         `db:"company_name"`
	StartDate      sql.NullTime   `db:"start_date"`
	CompletedHours int            `db:"completed_hours"`
	ProtocolRef    string         `db:"protocol_ref"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func rowFromInternship(itn internship.Internship) internshipRow {
	row := internshipRow{
		ID:             itn.ID,
		StudentID:      itn.StudentID,
		SchoolID:       itn.SchoolID,
		TeacherID:      nullString(itn.TeacherID),
		TutorID:        nullString(itn.TutorID),
		TutorEmail:     nullString(itn.TutorEmail),
		CompanyName:    itn.CompanyName,
		CompletedHours: itn.CompletedHours,
		ProtocolRef:    itn.ProtocolRef,
		CreatedAt:      itn.CreatedAt.UTC(),
		UpdatedAt:      itn.UpdatedAt.UTC(),
	}
	if itn.StartDate != nil {
		row.StartDate = sql.NullTime{Time: itn.StartDate.UTC(), Valid: true}
	}
	return row
}

func (row internshipRow) internship() internship.Internship {
	itn := internship.Internship{
		ID:             row.ID,
		StudentID:      row.StudentID,
		SchoolID:       row.SchoolID,
		TeacherID:      row.TeacherID.String,
		TutorID:        row.TutorID.String,
		TutorEmail:     row.TutorEmail.String,
		CompanyName:    row.CompanyName,
		CompletedHours: row.CompletedHours,
		ProtocolRef:    row.ProtocolRef,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.StartDate.Valid {
		start := row.StartDate.Time
		itn.StartDate = &start
	}
	return itn
}

type internshipRepository struct {
	db *sqlx.DB
}

var _ internship.Repository = (*internshipRepository)(nil) // interface compliance check

func NewInternshipRepository(db *sqlx.DB) *internshipRepository {
	return &internshipRepository{db: db}
}

func (repo internshipRepository) CreateInternship(ctx context.Context, itn internship.Internship) (internship.Internship, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO internship (id, student_id, school_id, teacher_id, tutor_id, tutor_email,
		                        company_name, start_date, completed_hours, protocol_ref, created_at, updated_at)
		VALUES (:id, :student_id, :school_id, :teacher_id, :tutor_id, :tutor_email,
		        :company_name, :start_date, :completed_hours, :protocol_ref, :created_at, :updated_at)`,
		rowFromInternship(itn))
	if err != nil {
		return internship.Internship{}, errors.Wrap(err, "inserting internship")
	}
	return itn, nil
}

func (repo internshipRepository) GetInternshipByID(ctx context.Context, id string) (internship.Internship, error) {
	var row internshipRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM internship WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return internship.Internship{}, internship.ErrNotFound
		}
		return internship.Internship{}, errors.Wrap(err, "getting internship")
	}
	return row.internship(), nil
}

func (repo internshipRepository) queryInternships(ctx context.Context, query string, args ...interface{}) ([]internship.Internship, error) {
	var rows []internshipRow
	if err := repo.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying internships")
	}
	itns := make([]internship.Internship, 0, len(rows))
	for _, row := range rows {
		itns = append(itns, row.internship())
	}
	return itns, nil
}

func (repo internshipRepository) GetInternshipsByStudent(ctx context.Context, studentID string) ([]internship.Internship, error) {
	return repo.queryInternships(ctx, `SELECT * FROM internship WHERE student_id = $1 ORDER BY created_at DESC`, studentID)
}

func (repo internshipRepository) GetInternshipsBySchool(ctx context.Context, schoolID string) ([]internship.Internship, error) {
	return repo.queryInternships(ctx, `SELECT * FROM internship WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
}

func (repo internshipRepository) GetInternshipsByTutor(ctx context.Context, tutorID string) ([]internship.Internship, error) {
	return repo.queryInternships(ctx, `SELECT * FROM internship WHERE tutor_id = $1 ORDER BY created_at DESC`, tutorID)
}

func (repo internshipRepository) UpdateInternship(ctx context.Context, itn internship.Internship) (internship.Internship, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE internship
		SET teacher_id = :teacher_id, tutor_id = :tutor_id, tutor_email = :tutor_email,
		    company_name = :company_name, start_date = :start_date, completed_hours = :completed_hours,
		    protocol_ref = :protocol_ref, updated_at = :updated_at
		WHERE id = :id`, rowFromInternship(itn))
	if err != nil {
		return internship.Internship{}, errors.Wrap(err, "updating internship")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internship.Internship{}, internship.ErrNotFound
	}
	return itn, nil
}

func (repo internshipRepository) LinkTutorByEmail(ctx context.Context, email, tutorID string) (int, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE internship SET tutor_id = $1, updated_at = $2
		WHERE tutor_email = $3 AND tutor_id IS NULL`, tutorID, time.Now().UTC(), email)
	if err != nil {
		return 0, errors.Wrap(err, "linking tutor")
	}
	n, err := res.RowsAffected()
	return int(n), errors.Wrap(err, "linking tutor")
}

func (repo internshipRepository) CreateDocument(ctx context.Context, doc internship.Document) (internship.Document, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO document (id, internship_id, title, file_url, visibility, required_signatures, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.InternshipID, doc.Title, doc.FileURL, doc.Visibility,
		pq.Array(doc.RequiredSignatures), doc.CreatedAt.UTC(), doc.UpdatedAt.UTC())
	if err != nil {
		return internship.Document{}, errors.Wrap(err, "inserting document")
	}
	return doc, nil
}

func (repo internshipRepository) getDocuments(ctx context.Context, cond string, args ...interface{}) ([]internship.Document, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, internship_id, title, file_url, visibility, required_signatures, created_at, updated_at
		FROM document WHERE `+cond+` ORDER BY created_at`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	defer func() { _ = rows.Close() }()

	var docs []internship.Document
	for rows.Next() {
		var doc internship.Document
		var required pq.StringArray
		err = rows.Scan(&doc.ID, &doc.InternshipID, &doc.Title, &doc.FileURL, &doc.Visibility,
			&required, &doc.CreatedAt, &doc.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning document")
		}
		doc.RequiredSignatures = required
		docs = append(docs, doc)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}

	for i := range docs {
		if docs[i].Signatures, err = repo.getSignatures(ctx, docs[i].ID); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (repo internshipRepository) getSignatures(ctx context.Context, documentID string) ([]internship.Signature, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT document_id, role, profile_id, signed_at
		FROM document_signature WHERE document_id = $1 ORDER BY signed_at`, documentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying signatures")
	}
	defer func() { _ = rows.Close() }()

	var sigs []internship.Signature
	for rows.Next() {
		var sig internship.Signature
		if err = rows.Scan(&sig.DocumentID, &sig.Role, &sig.ProfileID, &sig.SignedAt); err != nil {
			return nil, errors.Wrap(err, "scanning signature")
		}
		sigs = append(sigs, sig)
	}
	return sigs, rows.Err()
}

func (repo internshipRepository) GetDocumentByID(ctx context.Context, id string) (internship.Document, error) {
	docs, err := repo.getDocuments(ctx, "id = $1", id)
	if err != nil {
		return internship.Document{}, err
	}
	if len(docs) == 0 {
		return internship.Document{}, internship.ErrDocumentNotFound
	}
	return docs[0], nil
}

func (repo internshipRepository) GetDocumentsByInternship(ctx context.Context, internshipID string) ([]internship.Document, error) {
	return repo.getDocuments(ctx, "internship_id = $1", internshipID)
}

func (repo internshipRepository) CreateSignature(ctx context.Context, sig internship.Signature) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO document_signature (document_id, role, profile_id, signed_at)
		VALUES ($1, $2, $3, $4)`,
		sig.DocumentID, sig.Role, sig.ProfileID, sig.SignedAt.UTC())
	if err != nil {
		if strings.Contains(err.Error(), "document_signature_pkey") {
			return internship.ErrAlreadySigned
		}
		return errors.Wrap(err, "inserting signature")
	}
	return nil
}

func (repo internshipRepository) CreateReport(ctx context.Context, rep internship.Report) (internship.Report, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO internship_report (id, student_id, internship_id, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rep.ID, rep.StudentID, rep.InternshipID, rep.Title, rep.Body, rep.CreatedAt.UTC(), rep.UpdatedAt.UTC())
	if err != nil {
		return internship.Report{}, errors.Wrap(err, "inserting report")
	}
	return rep, nil
}

func (repo internshipRepository) getReports(ctx context.Context, cond string, args ...interface{}) ([]internship.Report, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, student_id, internship_id, title, body, created_at, updated_at
		FROM internship_report WHERE `+cond+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	defer func() { _ = rows.Close() }()

	var reps []internship.Report
	for rows.Next() {
		var rep internship.Report
		err = rows.Scan(&rep.ID, &rep.StudentID, &rep.InternshipID, &rep.Title, &rep.Body, &rep.CreatedAt, &rep.UpdatedAt)
		if err != nil {
			return nil, errors.Wrap(err, "scanning report")
		}
		reps = append(reps, rep)
	}
	return reps, rows.Err()
}

func (repo internshipRepository) GetReportByID(ctx context.Context, id string) (internship.Report, error) {
	reps, err := repo.getReports(ctx, "id = $1", id)
	if err != nil {
		return internship.Report{}, err
	}
	if len(reps) == 0 {
		return internship.Report{}, internship.ErrReportNotFound
	}
	return reps[0], nil
}

func (repo internshipRepository) GetReportsByStudent(ctx context.Context, studentID string) ([]internship.Report, error) {
	return repo.getReports(ctx, "student_id = $1", studentID)
}

func (repo internshipRepository) GetReportsByInternship(ctx context.Context, internshipID string) ([]internship.Report, error) {
	return repo.getReports(ctx, "internship_id = $1", internshipID)
}

func (repo internshipRepository) UpdateReport(ctx context.Context, rep internship.Report) (internship.Report, error) {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE internship_report SET title = $1, body = $2, updated_at = $3 WHERE id = $4`,
		rep.Title, rep.Body, rep.UpdatedAt.UTC(), rep.ID)
	if err != nil {
		return internship.Report{}, errors.Wrap(err, "updating report")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return internship.Report{}, internship.ErrReportNotFound
	}
	return rep, nil
}

func (repo internshipRepository) DeleteReport(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM internship_report WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting report")
	}
	return nil
}
