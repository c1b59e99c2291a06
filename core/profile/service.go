package profile

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/internlink/backend/core"
)

var (
	// errors
	ErrNotFound       = errors.New("profile not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrEstadoConflict = errors.New("profile is not in the expected state")
	ErrSchoolNotFound = errors.New("school not found")

	errEmailDomainNotAllowed = "registration requires your school email address"
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Profile) error
		CreateProfile(ctx context.Context, prof Profile) (Profile, error)
		GetProfileByID(ctx context.Context, id string) (Profile, error)
		GetProfileByEmail(ctx context.Context, email string) (Profile, error)
		// FilterProfiles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Profile.Name or Profile.Email.
		FilterProfiles(ctx context.Context, filter QueryFilter) ([]Profile, error)
		UpdateProfile(ctx context.Context, prof Profile) (Profile, error)
		// UpdateProfileEstado transitions estado only when the stored value still
		// equals expected; returns ErrEstadoConflict otherwise.
		UpdateProfileEstado(ctx context.Context, id, expected, next string) (Profile, error)
		SetLastLogin(ctx context.Context, prof Profile) (Profile, error)
	}

	// SchoolInfo is the slice of the tenant record registration needs.
	SchoolInfo struct {
		ID                        string
		Name                      string
		EmailDomain               string
		RequireInstitutionalEmail bool
	}

	// SchoolDirectory gives this package tenant lookups and the approval audit
	// trail without depending on the school aggregate.
	SchoolDirectory interface {
		GetSchoolInfo(ctx context.Context, id string) (SchoolInfo, error)
		RecordApproval(ctx context.Context, schoolID, profileID, approverID, action string) error
	}

	Service interface {
		CheckEmailUniqueness(ctx context.Context, email string, excluded ...Profile) error
		RegisterStudent(ctx context.Context, rs RegisterStudent) (Profile, error)
		RegisterTeacher(ctx context.Context, rt RegisterTeacher) (Profile, error)
		RegisterTutor(ctx context.Context, rt RegisterTutor) (Profile, error)
		GetByID(ctx context.Context, id string) (Profile, error)
		GetByEmail(ctx context.Context, email string) (Profile, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Profile, error)
		QueryBySchool(ctx context.Context, schoolID string) ([]Profile, error)
		Update(ctx context.Context, id string, up UpdateProfile) (Profile, error)
		Approve(ctx context.Context, approver Profile, id string) (Profile, error)
		Reject(ctx context.Context, approver Profile, id string) (Profile, error)
		SetLastLogin(ctx context.Context, prof Profile) (Profile, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetProfilePassword) error
	}

	service struct {
		repo    Repository
		schools SchoolDirectory
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, schools SchoolDirectory, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{
		repo:    repo,
		schools: schools,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *service) CheckEmailUniqueness(ctx context.Context, email string, excluded ...Profile) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, excluded...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

// checkInstitutionalEmail enforces the school's email-domain policy.
// Runs before any profile is created; a mismatch aborts the whole registration.
func (svc *service) checkInstitutionalEmail(ctx context.Context, schoolID, email string) (SchoolInfo, error) {
	sch, err := svc.schools.GetSchoolInfo(ctx, schoolID)
	if err != nil {
		if errors.Cause(err) == ErrSchoolNotFound {
			return SchoolInfo{}, core.NewValidationError(err, core.FieldError{Field: "school_id", Error: err.Error()})
		}
		return SchoolInfo{}, errors.Wrap(err, "looking up school")
	}
	if sch.RequireInstitutionalEmail && sch.EmailDomain != "" {
		if emailDomain(email) != core.CleanString(sch.EmailDomain, true /* lower */) {
			return SchoolInfo{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: errEmailDomainNotAllowed})
		}
	}
	return sch, nil
}

func (svc *service) create(ctx context.Context, prof Profile, pwd string) (Profile, error) {
	now := time.Now().UTC()
	if prof.ID == "" {
		prof.ID = uuid.New().String()
	}
	prof.Estado = DefaultEstado(prof.Role)
	prof.CreatedAt = now
	prof.UpdatedAt = now
	if err := prof.SetPassword(pwd); err != nil {
		return Profile{}, errors.Wrap(err, "setting password")
	}
	prof, err := svc.repo.CreateProfile(ctx, prof)
	if err != nil {
		return Profile{}, err
	}
	svc.sendWelcomeMail(prof)
	return prof, nil
}

func (svc *service) RegisterStudent(ctx context.Context, rs RegisterStudent) (Profile, error) {
	if _, err := svc.checkInstitutionalEmail(ctx, rs.SchoolID, rs.Email); err != nil {
		return Profile{}, err
	}
	return svc.create(ctx, Profile{
		Name:     rs.Name,
		Email:    rs.Email,
		Role:     RoleStudent,
		SchoolID: rs.SchoolID,
		CourseID: rs.CourseID,
		Phone:    rs.Phone,
	}, rs.Password)
}

func (svc *service) RegisterTeacher(ctx context.Context, rt RegisterTeacher) (Profile, error) {
	if _, err := svc.schools.GetSchoolInfo(ctx, rt.SchoolID); err != nil {
		if errors.Cause(err) == ErrSchoolNotFound {
			return Profile{}, core.NewValidationError(err, core.FieldError{Field: "school_id", Error: err.Error()})
		}
		return Profile{}, errors.Wrap(err, "looking up school")
	}
	return svc.create(ctx, Profile{
		Name:     rt.Name,
		Email:    rt.Email,
		Role:     RoleTeacher,
		SchoolID: rt.SchoolID,
		Phone:    rt.Phone,
	}, rt.Password)
}

func (svc *service) RegisterTutor(ctx context.Context, rt RegisterTutor) (Profile, error) {
	return svc.create(ctx, Profile{
		Name:        rt.Name,
		Email:       rt.Email,
		Role:        RoleTutor,
		CompanyName: rt.CompanyName,
		Phone:       rt.Phone,
	}, rt.Password)
}

func (svc *service) GetByID(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfileByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return svc.repo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Profile, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	return svc.repo.FilterProfiles(ctx, *filter)
}

func (svc *service) QueryBySchool(ctx context.Context, schoolID string) ([]Profile, error) {
	return svc.repo.FilterProfiles(ctx, QueryFilter{SchoolID: schoolID})
}

func (svc *service) Update(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	prof, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	prof.Name = up.Name
	prof.Phone = up.Phone
	prof.Locale = up.Locale
	prof.PhotoURL = up.PhotoURL
	prof.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, prof)
}

// Approve transitions pendente -> ativo. The update is conditional on the
// stored estado so concurrent approvers cannot silently overwrite each other;
// re-approving an already ativo profile is a no-op success.
func (svc *service) Approve(ctx context.Context, approver Profile, id string) (Profile, error) {
	prof, err := svc.repo.UpdateProfileEstado(ctx, id, EstadoPendente, EstadoAtivo)
	if err != nil {
		if errors.Cause(err) != ErrEstadoConflict {
			return Profile{}, err
		}
		prof, err = svc.repo.GetProfileByID(ctx, id)
		if err != nil {
			return Profile{}, err
		}
		if prof.Estado != EstadoAtivo {
			return Profile{}, ErrEstadoConflict
		}
		return prof, nil // already approved
	}

	if prof.SchoolID != "" {
		if err = svc.schools.RecordApproval(ctx, prof.SchoolID, prof.ID, approver.ID, EstadoAtivo); err != nil {
			return Profile{}, errors.Wrap(err, "recording approval")
		}
	}
	svc.sendAccountApprovedMail(prof)
	return prof, nil
}

// Reject transitions pendente -> rejeitado under the same conditional rules.
func (svc *service) Reject(ctx context.Context, approver Profile, id string) (Profile, error) {
	prof, err := svc.repo.UpdateProfileEstado(ctx, id, EstadoPendente, EstadoRejeitado)
	if err != nil {
		if errors.Cause(err) != ErrEstadoConflict {
			return Profile{}, err
		}
		prof, err = svc.repo.GetProfileByID(ctx, id)
		if err != nil {
			return Profile{}, err
		}
		if prof.Estado != EstadoRejeitado {
			return Profile{}, ErrEstadoConflict
		}
		return prof, nil // already rejected
	}

	if prof.SchoolID != "" {
		if err = svc.schools.RecordApproval(ctx, prof.SchoolID, prof.ID, approver.ID, EstadoRejeitado); err != nil {
			return Profile{}, errors.Wrap(err, "recording rejection")
		}
	}
	return prof, nil
}

func (svc *service) SetLastLogin(ctx context.Context, prof Profile) (Profile, error) {
	prof.LastLogin = time.Now().UTC()
	return svc.repo.SetLastLogin(ctx, prof)
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	prof, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	go svc.sendPasswordResetMail(prof)
	return nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetProfilePassword) error {
	id, err := decodeUID(rp.UID)
	if err != nil {
		return core.NewValidationError(errInvalidToken)
	}
	prof, err := svc.repo.GetProfileByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(errInvalidToken)
		}
		return err
	}
	if err = verifyToken(prof, rp.Token); err != nil {
		return core.NewValidationError(err)
	}
	if err = prof.SetPassword(rp.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	prof.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateProfile(ctx, prof)
	return err
}

func (svc *service) sendPasswordResetMail(prof Profile) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject:      "Password reset",
		TemplateName: "password-reset",
		TemplateData: struct {
			Name  string
			UID   string
			Token string
		}{
			Name:  prof.Name,
			UID:   EncodeUID(prof),
			Token: makeToken(prof),
		},
	})
}

func (svc *service) sendWelcomeMail(prof Profile) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject:      "Welcome",
		TemplateName: "welcome",
		TemplateData: struct {
			Name           string
			AwaitingReview bool
		}{
			Name:           prof.Name,
			AwaitingReview: prof.Estado == EstadoPendente,
		},
	})
}

func (svc *service) sendAccountApprovedMail(prof Profile) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: prof.Name, Address: prof.Email}},
		Subject:      "Account approved",
		TemplateName: "account-approved",
		TemplateData: struct{ Name string }{Name: prof.Name},
	})
}
