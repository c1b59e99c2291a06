package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

type profileRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Email         string         `db:"email"`
	Role          string         `db:"role"`
	Estado        string         `db:"estado"`
	SchoolID      sql.NullString `db:"school_id"`
	CourseID      sql.NullString `db:"course_id"`
	CompanyName   sql.NullString `db:"company_name"`
	Phone         sql.NullString `db:"phone"`
	Locale        sql.NullString `db:"locale"`
	PhotoURL      sql.NullString `db:"photo_url"`
	EmailVerified bool           `db:"email_verified"`
	PasswordHash  []byte         `db:"password_hash"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	LastLogin     sql.NullTime   `db:"last_login"`
}

func rowFromProfile(prof profile.Profile) profileRow {
	return profileRow{
		ID:            prof.ID,
		Name:          prof.Name,
		Email:         prof.Email,
		Role:          prof.Role,
		Estado:        prof.Estado,
		SchoolID:      nullString(prof.SchoolID),
		CourseID:      nullString(prof.CourseID),
		CompanyName:   nullString(prof.CompanyName),
		Phone:         nullString(prof.Phone),
		Locale:        nullString(prof.Locale),
		PhotoURL:      nullString(prof.PhotoURL),
		EmailVerified: prof.EmailVerified,
		PasswordHash:  prof.PasswordHash,
		CreatedAt:     prof.CreatedAt.UTC(),
		UpdatedAt:     prof.UpdatedAt.UTC(),
		LastLogin:     nullTime(prof.LastLogin),
	}
}

func (row profileRow) profile() profile.Profile {
	return profile.Profile{
		ID:            row.ID,
		Name:          row.Name,
		Email:         row.Email,
		Role:          row.Role,
		Estado:        row.Estado,
		SchoolID:      row.SchoolID.String,
		CourseID:      row.CourseID.String,
		CompanyName:   row.CompanyName.String,
		Phone:         row.Phone.String,
		Locale:        row.Locale.String,
		PhotoURL:      row.PhotoURL.String,
		EmailVerified: row.EmailVerified,
		PasswordHash:  row.PasswordHash,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		LastLogin:     row.LastLogin.Time,
	}
}

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to profile.ErrNotFound
func (repo profileRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return profile.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo profileRepository) CheckEmailUniqueness(ctx context.Context, email string, excluded ...profile.Profile) error {
	query := `SELECT EXISTS (SELECT 1 FROM profile WHERE email = ?`
	args := []interface{}{email}
	if len(excluded) > 0 {
		ids := make([]string, 0, len(excluded))
		for _, prof := range excluded {
			ids = append(ids, prof.ID)
		}
		query += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	query += `)`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return profile.ErrEmailExists
	}
	return nil
}

func (repo profileRepository) CreateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	row := rowFromProfile(prof)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO profile (id, name, email, role, estado, school_id, course_id, company_name,
		                     phone, locale, photo_url, email_verified, password_hash, created_at, updated_at, last_login)
		VALUES (:id, :name, :email, :role, :estado, :school_id, :course_id, :company_name,
		        :phone, :locale, :photo_url, :email_verified, :password_hash, :created_at, :updated_at, :last_login)`, row)
	if err != nil {
		if strings.Contains(err.Error(), "profile_email_key") {
			return profile.Profile{}, profile.ErrEmailExists
		}
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return row.profile(), nil
}

func (repo profileRepository) GetProfileByID(ctx context.Context, id string) (profile.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE id = $1`, id); err != nil {
		return profile.Profile{}, repo.trapNoRowsErr(err, "getting profile by id")
	}
	return row.profile(), nil
}

func (repo profileRepository) GetProfileByEmail(ctx context.Context, email string) (profile.Profile, error) {
	var row profileRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM profile WHERE email = $1`, email); err != nil {
		return profile.Profile{}, repo.trapNoRowsErr(err, "getting profile by email")
	}
	return row.profile(), nil
}

func (repo profileRepository) FilterProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	query := `SELECT * FROM profile WHERE 1=1`
	var args []interface{}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query += ` AND (name ILIKE ? OR email ILIKE ?)`
		args = append(args, pattern, pattern)
	}
	if len(filter.Roles) > 0 {
		query += ` AND role IN (?)`
		args = append(args, filter.Roles)
	}
	if len(filter.Estados) > 0 {
		query += ` AND estado IN (?)`
		args = append(args, filter.Estados)
	}
	if filter.SchoolID != "" {
		query += ` AND school_id = ?`
		args = append(args, filter.SchoolID)
	}
	if !filter.CreatedFrom.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.CreatedFrom.UTC())
	}
	if !filter.CreatedTo.IsZero() {
		query += ` AND created_at <= ?`
		args = append(args, filter.CreatedTo.UTC())
	}
	query += orderByClause(filter.Ordering)

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "building filter query")
	}

	var rows []profileRow
	if err = repo.db.SelectContext(ctx, &rows, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering profiles")
	}
	profs := make([]profile.Profile, 0, len(rows))
	for _, row := range rows {
		profs = append(profs, row.profile())
	}
	return profs, nil
}

func (repo profileRepository) UpdateProfile(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	row := rowFromProfile(prof)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE profile
		SET name = :name, email = :email, role = :role, estado = :estado, school_id = :school_id,
		    course_id = :course_id, company_name = :company_name, phone = :phone, locale = :locale,
		    photo_url = :photo_url, email_verified = :email_verified, password_hash = :password_hash,
		    updated_at = :updated_at
		WHERE id = :id`, row)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return profile.Profile{}, profile.ErrNotFound
	}
	return row.profile(), nil
}

// UpdateProfileEstado is conditional: the row changes only if the stored
// estado still matches expected, so racing approvers cannot overwrite each
// other unnoticed.
func (repo profileRepository) UpdateProfileEstado(ctx context.Context, id, expected, next string) (profile.Profile, error) {
	var row profileRow
	err := repo.db.GetContext(ctx, &row, `
		UPDATE profile
		SET estado = $1, updated_at = $2
		WHERE id = $3 AND estado = $4
		RETURNING *`, next, time.Now().UTC(), id, expected)
	if err != nil {
		if err == sql.ErrNoRows {
			// either the profile is missing or the estado moved under us
			if _, getErr := repo.GetProfileByID(ctx, id); getErr != nil {
				return profile.Profile{}, getErr
			}
			return profile.Profile{}, profile.ErrEstadoConflict
		}
		return profile.Profile{}, errors.Wrap(err, "updating profile estado")
	}
	return row.profile(), nil
}

func (repo profileRepository) SetLastLogin(ctx context.Context, prof profile.Profile) (profile.Profile, error) {
	_, err := repo.db.ExecContext(ctx,
		`UPDATE profile SET last_login = $1 WHERE id = $2`, prof.LastLogin.UTC(), prof.ID)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "setting last login")
	}
	return prof, nil
}

// orderableProfileColumns whitelists the columns client-supplied orderings may
// reference; anything else is silently dropped.
var orderableProfileColumns = map[string]bool{
	"name":       true,
	"email":      true,
	"role":       true,
	"estado":     true,
	"created_at": true,
	"last_login": true,
}

func orderByClause(orderings []core.DBOrdering) string {
	clauses := make([]string, 0, len(orderings))
	for _, ord := range orderings {
		if orderableProfileColumns[ord.Field] {
			clauses = append(clauses, ord.String())
		}
	}
	if len(clauses) == 0 {
		return ` ORDER BY created_at DESC`
	}
	return ` ORDER BY ` + strings.Join(clauses, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
