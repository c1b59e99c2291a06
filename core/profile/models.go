package profile

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/internlink/backend/core"
)

// Roles
const (
	RoleStudent     = "aluno"
	RoleTeacher     = "professor"
	RoleTutor       = "tutor"
	RoleSchoolAdmin = "admin_escolar"
	RoleAdmin       = "admin"
)

// Lifecycle states (estado)
const (
	EstadoPendente  = "pendente"
	EstadoAtivo     = "ativo"
	EstadoRejeitado = "rejeitado"
	EstadoInativo   = "inativo"
)

var (
	AllRoles   = []string{RoleStudent, RoleTeacher, RoleTutor, RoleSchoolAdmin, RoleAdmin}
	AllEstados = []string{EstadoPendente, EstadoAtivo, EstadoRejeitado, EstadoInativo}

	rolePriorities = map[string]int{
		RoleAdmin:       30,
		RoleSchoolAdmin: 21,
		RoleTeacher:     11,
		RoleTutor:       5,
		RoleStudent:     1,
	}

	// defaultEstados are the lifecycle states assigned at registration.
	// Tutors start inativo until a company link activates them; school admins
	// are provisioned pre-approved.
	defaultEstados = map[string]string{
		RoleStudent:     EstadoPendente,
		RoleTeacher:     EstadoPendente,
		RoleTutor:       EstadoInativo,
		RoleSchoolAdmin: EstadoAtivo,
		RoleAdmin:       EstadoAtivo,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Company Tutor", Value: RoleTutor},
		{Name: "School Admin", Value: RoleSchoolAdmin},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

// DefaultEstado returns the registration lifecycle state for a role.
func DefaultEstado(role string) string {
	if estado, ok := defaultEstados[role]; ok {
		return estado
	}
	return EstadoPendente
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Role          string    `json:"role"`
	Estado        string    `json:"estado"`
	SchoolID      string    `json:"school_id,omitempty"`
	CourseID      string    `json:"course_id,omitempty"`
	CompanyName   string    `json:"company_name,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Locale        string    `json:"locale,omitempty"`
	PhotoURL      string    `json:"photo_url,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	PasswordHash  []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
	LastLogin     time.Time `json:"last_login"` // UTC
}

func (p *Profile) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.PasswordHash = hash
	return nil
}

func (p *Profile) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(p.PasswordHash, []byte(pwd))
}

func (p *Profile) IsStudent() bool     { return p.Role == RoleStudent }
func (p *Profile) IsTeacher() bool     { return p.Role == RoleTeacher }
func (p *Profile) IsTutor() bool       { return p.Role == RoleTutor }
func (p *Profile) IsSchoolAdmin() bool { return p.Role == RoleSchoolAdmin }
func (p *Profile) IsAdmin() bool       { return p.Role == RoleAdmin }

func (p *Profile) IsActive() bool { return p.Estado == EstadoAtivo }

// IsApprover reports whether this profile may transition same-school student
// accounts out of pendente.
func (p *Profile) IsApprover() bool {
	return (p.IsTeacher() || p.IsSchoolAdmin()) && p.IsActive()
}

// EmailDomain returns the part after '@', lowered; "" when the email is malformed.
func (p *Profile) EmailDomain() string {
	return emailDomain(p.Email)
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// RegisterStudent contains information needed to register a student account.
type RegisterStudent struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	SchoolID        string `json:"school_id" validate:"required"`
	CourseID        string `json:"course_id" validate:"required"`
	Phone           string `json:"phone"`
}

func (rs *RegisterStudent) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	rs.Name = core.CleanString(rs.Name)
	rs.Email = core.CleanString(rs.Email, true /* lower */)
	rs.SchoolID = core.CleanString(rs.SchoolID)
	rs.CourseID = core.CleanString(rs.CourseID)

	if err := validate.Struct(rs); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, rs.Email)
}

// RegisterTeacher contains information needed to register a teacher account.
type RegisterTeacher struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	SchoolID        string `json:"school_id" validate:"required"`
	Phone           string `json:"phone"`
}

func (rt *RegisterTeacher) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	rt.Name = core.CleanString(rt.Name)
	rt.Email = core.CleanString(rt.Email, true /* lower */)
	rt.SchoolID = core.CleanString(rt.SchoolID)

	if err := validate.Struct(rt); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, rt.Email)
}

// RegisterTutor contains information needed to register a company tutor account.
type RegisterTutor struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	CompanyName     string `json:"company_name" validate:"required"`
	Phone           string `json:"phone"`
}

func (rt *RegisterTutor) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	rt.Name = core.CleanString(rt.Name)
	rt.Email = core.CleanString(rt.Email, true /* lower */)
	rt.CompanyName = core.CleanString(rt.CompanyName)

	if err := validate.Struct(rt); err != nil {
		return err
	}
	return svc.CheckEmailUniqueness(ctx, rt.Email)
}

// UpdateProfile defines the non-privileged fields a profile owner may change.
// Role, estado and school are never self-mutable; they have dedicated
// transitions guarded by the authorization policy.
type UpdateProfile struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Locale   string `json:"locale"`
	PhotoURL string `json:"photo_url" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(orig Profile, validate *validator.Validate) error {
	name := core.CleanString(up.Name)
	if name != "" {
		up.Name = name
	} else {
		up.Name = orig.Name
	}
	up.Phone = core.CleanString(up.Phone)
	up.Locale = core.CleanString(up.Locale, true /* lower */)

	return validate.Struct(up)
}

type ResetProfilePassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetProfilePassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	Estados     []string  `query:"estado"`
	SchoolID    string    `query:"school_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`

	// Ordering is set by the transport layer, not bound from the query string.
	Ordering []core.DBOrdering `query:"-" json:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.Estados == nil && qf.SchoolID == "" &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.SchoolID = core.CleanString(qf.SchoolID)
}
