package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core/school"
)

type schoolRow struct {
	ID                        string    `db:"id"`
	Name                      string    `db:"name"`
	EmailDomain               string    `db:"email_domain"`
	RequireInstitutionalEmail bool      `db:"require_institutional_email"`
	Address                   string    `db:"address"`
	Phone                     string    `db:"phone"`
	LogoURL                   string    `db:"logo_url"`
	CreatedAt                 time.Time `db:"created_at"`
	UpdatedAt                 time.Time `db:"updated_at"`
}

func (row schoolRow) school() school.School {
	return school.School(row)
}

type courseRow struct {
	ID             string         `db:"id"`
	SchoolID       string         `db:"school_id"`
	Name           string         `db:"name"`
	FolderID       sql.NullString `db:"folder_id"`
	EnrollmentCap  int            `db:"enrollment_cap"`
	StartDate      time.Time      `db:"internship_start_date"`
	EndDate        sql.NullTime   `db:"internship_end_date"`
	DurationMonths sql.NullInt64  `db:"internship_duration_months"`
	EndDerived     bool           `db:"end_derived"`
	ReportMinHours int            `db:"report_min_hours"`
	ReportWaitDays int            `db:"report_wait_days"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func rowFromCourse(crs school.Course) courseRow {
	row := courseRow{
		ID:             crs.ID,
		SchoolID:       crs.SchoolID,
		Name:           crs.Name,
		EnrollmentCap:  crs.EnrollmentCap,
		StartDate:      crs.Window.Start.UTC(),
		EndDerived:     crs.Window.EndDerived,
		ReportMinHours: crs.ReportMinHours,
		ReportWaitDays: crs.ReportWaitDays,
		CreatedAt:      crs.CreatedAt.UTC(),
		UpdatedAt:      crs.UpdatedAt.UTC(),
	}
	if crs.FolderID != "" {
		row.FolderID = sql.NullString{String: crs.FolderID, Valid: true}
	}
	if crs.Window.End != nil {
		row.EndDate = sql.NullTime{Time: crs.Window.End.UTC(), Valid: true}
	}
	if crs.Window.DurationMonths != nil {
		row.DurationMonths = sql.NullInt64{Int64: int64(*crs.Window.DurationMonths), Valid: true}
	}
	return row
}

func (row courseRow) course() school.Course {
	crs := school.Course{
		ID:            row.ID,
		SchoolID:      row.SchoolID,
		Name:          row.Name,
		FolderID:      row.FolderID.String,
		EnrollmentCap: row.EnrollmentCap,
		Window: school.Window{
			Start:      row.StartDate,
			EndDerived: row.EndDerived,
		},
		ReportMinHours: row.ReportMinHours,
		ReportWaitDays: row.ReportWaitDays,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
	if row.EndDate.Valid {
		end := row.EndDate.Time
		crs.Window.End = &end
	}
	if row.DurationMonths.Valid {
		months := int(row.DurationMonths.Int64)
		crs.Window.DurationMonths = &months
	}
	return crs
}

type schoolRepository struct {
	db *sqlx.DB
}

var _ school.Repository = (*schoolRepository)(nil) // interface compliance check

func NewSchoolRepository(db *sqlx.DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO school (id, name, email_domain, require_institutional_email, address, phone, logo_url, created_at, updated_at)
		VALUES (:id, :name, :email_domain, :require_institutional_email, :address, :phone, :logo_url, :created_at, :updated_at)`,
		schoolRow(sch))
	if err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo schoolRepository) GetSchoolByID(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM school WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.School{}, school.ErrNotFound
		}
		return school.School{}, errors.Wrap(err, "getting school")
	}
	return row.school(), nil
}

func (repo schoolRepository) GetAllSchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM school ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.school())
	}
	return schools, nil
}

func (repo schoolRepository) UpdateSchool(ctx context.Context, sch school.School) (school.School, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE school
		SET name = :name, email_domain = :email_domain, require_institutional_email = :require_institutional_email,
		    address = :address, phone = :phone, logo_url = :logo_url, updated_at = :updated_at
		WHERE id = :id`, schoolRow(sch))
	if err != nil {
		return school.School{}, errors.Wrap(err, "updating school")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.School{}, school.ErrNotFound
	}
	return sch, nil
}

func (repo schoolRepository) CreateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO course (id, school_id, name, folder_id, enrollment_cap, internship_start_date, internship_end_date,
		                    internship_duration_months, end_derived, report_min_hours, report_wait_days, created_at, updated_at)
		VALUES (:id, :school_id, :name, :folder_id, :enrollment_cap, :internship_start_date, :internship_end_date,
		        :internship_duration_months, :end_derived, :report_min_hours, :report_wait_days, :created_at, :updated_at)`,
		rowFromCourse(crs))
	if err != nil {
		return school.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo schoolRepository) GetCourseByID(ctx context.Context, id string) (school.Course, error) {
	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM course WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return school.Course{}, school.ErrCourseNotFound
		}
		return school.Course{}, errors.Wrap(err, "getting course")
	}
	return row.course(), nil
}

func (repo schoolRepository) GetCoursesBySchool(ctx context.Context, schoolID string) ([]school.Course, error) {
	var rows []courseRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM course WHERE school_id = $1 ORDER BY name`, schoolID); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]school.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo schoolRepository) UpdateCourse(ctx context.Context, crs school.Course) (school.Course, error) {
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE course
		SET name = :name, folder_id = :folder_id, enrollment_cap = :enrollment_cap,
		    internship_start_date = :internship_start_date, internship_end_date = :internship_end_date,
		    internship_duration_months = :internship_duration_months, end_derived = :end_derived,
		    report_min_hours = :report_min_hours, report_wait_days = :report_wait_days, updated_at = :updated_at
		WHERE id = :id`, rowFromCourse(crs))
	if err != nil {
		return school.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.Course{}, school.ErrCourseNotFound
	}
	return crs, nil
}

func (repo schoolRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}

func (repo schoolRepository) CreateFolder(ctx context.Context, fld school.Folder) (school.Folder, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO folder (id, school_id, name, parent_id, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		fld.ID, fld.SchoolID, fld.Name, fld.ParentID, fld.CreatedAt.UTC())
	if err != nil {
		return school.Folder{}, errors.Wrap(err, "inserting folder")
	}
	return fld, nil
}

func (repo schoolRepository) GetFoldersBySchool(ctx context.Context, schoolID string) ([]school.Folder, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, school_id, name, COALESCE(parent_id, ''), created_at
		FROM folder WHERE school_id = $1 ORDER BY name`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying folders")
	}
	defer func() { _ = rows.Close() }()

	var folders []school.Folder
	for rows.Next() {
		var fld school.Folder
		if err = rows.Scan(&fld.ID, &fld.SchoolID, &fld.Name, &fld.ParentID, &fld.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning folder")
		}
		folders = append(folders, fld)
	}
	return folders, rows.Err()
}

func (repo schoolRepository) DeleteFolder(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM folder WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting folder")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return school.ErrFolderNotFound
	}
	return nil
}

func (repo schoolRepository) CreatePendingTeacher(ctx context.Context, pt school.PendingTeacher) (school.PendingTeacher, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO pending_teacher (id, school_id, email, name, invited_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (school_id, email) DO NOTHING`,
		pt.ID, pt.SchoolID, pt.Email, pt.Name, pt.InvitedBy, pt.CreatedAt.UTC())
	if err != nil {
		return school.PendingTeacher{}, errors.Wrap(err, "inserting pending teacher")
	}
	return pt, nil
}

func (repo schoolRepository) GetPendingTeachersBySchool(ctx context.Context, schoolID string) ([]school.PendingTeacher, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, school_id, email, name, invited_by, created_at
		FROM pending_teacher WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying pending teachers")
	}
	defer func() { _ = rows.Close() }()

	var pts []school.PendingTeacher
	for rows.Next() {
		var pt school.PendingTeacher
		if err = rows.Scan(&pt.ID, &pt.SchoolID, &pt.Email, &pt.Name, &pt.InvitedBy, &pt.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning pending teacher")
		}
		pts = append(pts, pt)
	}
	return pts, rows.Err()
}

func (repo schoolRepository) GetPendingTeacherByEmail(ctx context.Context, schoolID, email string) (school.PendingTeacher, error) {
	var pt school.PendingTeacher
	err := repo.db.QueryRowxContext(ctx, `
		SELECT id, school_id, email, name, invited_by, created_at
		FROM pending_teacher WHERE school_id = $1 AND email = $2`, schoolID, email).
		Scan(&pt.ID, &pt.SchoolID, &pt.Email, &pt.Name, &pt.InvitedBy, &pt.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return school.PendingTeacher{}, school.ErrNotFound
		}
		return school.PendingTeacher{}, errors.Wrap(err, "getting pending teacher")
	}
	return pt, nil
}

func (repo schoolRepository) DeletePendingTeacher(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM pending_teacher WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting pending teacher")
	}
	return nil
}

func (repo schoolRepository) CreateApprovalHistory(ctx context.Context, ah school.ApprovalHistory) (school.ApprovalHistory, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO approval_history (id, school_id, profile_id, approver_id, action, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ah.ID, ah.SchoolID, ah.ProfileID, ah.ApproverID, ah.Action, ah.CreatedAt.UTC())
	if err != nil {
		return school.ApprovalHistory{}, errors.Wrap(err, "inserting approval history")
	}
	return ah, nil
}

func (repo schoolRepository) GetApprovalHistoryBySchool(ctx context.Context, schoolID string) ([]school.ApprovalHistory, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, school_id, profile_id, approver_id, action, created_at
		FROM approval_history WHERE school_id = $1 ORDER BY created_at DESC`, schoolID)
	if err != nil {
		return nil, errors.Wrap(err, "querying approval history")
	}
	defer func() { _ = rows.Close() }()

	var entries []school.ApprovalHistory
	for rows.Next() {
		var ah school.ApprovalHistory
		if err = rows.Scan(&ah.ID, &ah.SchoolID, &ah.ProfileID, &ah.ApproverID, &ah.Action, &ah.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning approval history")
		}
		entries = append(entries, ah)
	}
	return entries, rows.Err()
}

func (repo schoolRepository) CreateSchoolRequest(ctx context.Context, sr school.SchoolRequest) (school.SchoolRequest, error) {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO school_request (id, school_name, contact_name, email, phone, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sr.ID, sr.SchoolName, sr.ContactName, sr.Email, sr.Phone, sr.Message, sr.CreatedAt.UTC())
	if err != nil {
		return school.SchoolRequest{}, errors.Wrap(err, "inserting school request")
	}
	return sr, nil
}

func (repo schoolRepository) GetAllSchoolRequests(ctx context.Context) ([]school.SchoolRequest, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT id, school_name, contact_name, email, phone, message, created_at
		FROM school_request ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying school requests")
	}
	defer func() { _ = rows.Close() }()

	var reqs []school.SchoolRequest
	for rows.Next() {
		var sr school.SchoolRequest
		if err = rows.Scan(&sr.ID, &sr.SchoolName, &sr.ContactName, &sr.Email, &sr.Phone, &sr.Message, &sr.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning school request")
		}
		reqs = append(reqs, sr)
	}
	return reqs, rows.Err()
}
