package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil)

func NewProfileRepository(db *DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) query() []profile.Profile {
	profs := make([]profile.Profile, 0, len(repo.db.profiles))
	for _, prof := range repo.db.profiles {
		profs = append(profs, *prof)
	}
	return profs
}

func (repo *profileRepository) CheckEmailUniqueness(_ context.Context, email string, excluded ...profile.Profile) error {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.query() {
		if prof.Email == email && !isExcluded(prof, excluded) {
			return profile.ErrEmailExists
		}
	}
	return nil
}

func (repo *profileRepository) CreateProfile(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.profiles {
		if existing.Email == prof.Email {
			return profile.Profile{}, profile.ErrEmailExists
		}
	}
	repo.db.profiles[prof.ID] = &prof
	return prof, nil
}

func (repo *profileRepository) GetProfileByID(_ context.Context, id string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if prof, ok := repo.db.profiles[id]; ok {
		return *prof, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) GetProfileByEmail(_ context.Context, email string) (profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, prof := range repo.query() {
		if prof.Email == email {
			return prof, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) FilterProfiles(_ context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var profs []profile.Profile
	for _, prof := range repo.query() {
		if filter.Search != "" {
			search := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(prof.Name), search) &&
				!strings.Contains(strings.ToLower(prof.Email), search) {
				continue
			}
		}
		if len(filter.Roles) > 0 && !contains(filter.Roles, prof.Role) {
			continue
		}
		if len(filter.Estados) > 0 && !contains(filter.Estados, prof.Estado) {
			continue
		}
		if filter.SchoolID != "" && prof.SchoolID != filter.SchoolID {
			continue
		}
		if !filter.CreatedFrom.IsZero() && prof.CreatedAt.Before(filter.CreatedFrom) {
			continue
		}
		if !filter.CreatedTo.IsZero() && prof.CreatedAt.After(filter.CreatedTo) {
			continue
		}
		profs = append(profs, prof)
	}
	sortProfiles(profs, filter.Ordering)
	return profs, nil
}

// sortProfiles honors the first recognized ordering field; default is newest first.
func sortProfiles(profs []profile.Profile, orderings []core.DBOrdering) {
	for _, ord := range orderings {
		var key func(profile.Profile) string
		switch ord.Field {
		case "name":
			key = func(p profile.Profile) string { return strings.ToLower(p.Name) }
		case "email":
			key = func(p profile.Profile) string { return p.Email }
		case "role":
			key = func(p profile.Profile) string { return p.Role }
		case "estado":
			key = func(p profile.Profile) string { return p.Estado }
		default:
			continue
		}
		sort.Slice(profs, func(i, j int) bool {
			if ord.Ascending {
				return key(profs[i]) < key(profs[j])
			}
			return key(profs[i]) > key(profs[j])
		})
		return
	}
	sort.Slice(profs, func(i, j int) bool { return profs[i].CreatedAt.After(profs[j].CreatedAt) })
}

func (repo *profileRepository) UpdateProfile(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.profiles[prof.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	// only save set fields
	if prof.Name != "" {
		orig.Name = prof.Name
	}
	if prof.Email != "" {
		orig.Email = prof.Email
	}
	if prof.PasswordHash != nil {
		orig.PasswordHash = prof.PasswordHash
	}
	orig.Phone = prof.Phone
	orig.Locale = prof.Locale
	orig.PhotoURL = prof.PhotoURL
	orig.EmailVerified = prof.EmailVerified
	orig.UpdatedAt = prof.UpdatedAt

	repo.db.profiles[prof.ID] = orig
	return *orig, nil
}

func (repo *profileRepository) UpdateProfileEstado(_ context.Context, id, expected, next string) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	prof, ok := repo.db.profiles[id]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	if prof.Estado != expected {
		return profile.Profile{}, profile.ErrEstadoConflict
	}
	prof.Estado = next
	prof.UpdatedAt = time.Now().UTC()
	return *prof, nil
}

func (repo *profileRepository) SetLastLogin(_ context.Context, prof profile.Profile) (profile.Profile, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.profiles[prof.ID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	orig.LastLogin = prof.LastLogin
	return *orig, nil
}

func isExcluded(prof profile.Profile, excluded []profile.Profile) bool {
	for _, ex := range excluded {
		if ex.ID == prof.ID {
			return true
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, val := range values {
		if val == v {
			return true
		}
	}
	return false
}
