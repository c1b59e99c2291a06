package inmemdb

import (
	"context"
	"sort"

	"github.com/internlink/backend/core/school"
)

type schoolRepository struct {
	db *DB
}

var _ school.Repository = (*schoolRepository)(nil)

func NewSchoolRepository(db *DB) *schoolRepository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) GetSchoolByID(_ context.Context, id string) (school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schools[id]; ok {
		return *sch, nil
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) GetAllSchools(_ context.Context) ([]school.School, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schools := make([]school.School, 0, len(repo.db.schools))
	for _, sch := range repo.db.schools {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, nil
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schools[sch.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.schools[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) CreateCourse(_ context.Context, crs school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *schoolRepository) GetCourseByID(_ context.Context, id string) (school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return school.Course{}, school.ErrCourseNotFound
}

func (repo *schoolRepository) GetCoursesBySchool(_ context.Context, schoolID string) ([]school.Course, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var courses []school.Course
	for _, crs := range repo.db.courses {
		if crs.SchoolID == schoolID {
			courses = append(courses, *crs)
		}
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Name < courses[j].Name })
	return courses, nil
}

func (repo *schoolRepository) UpdateCourse(_ context.Context, crs school.Course) (school.Course, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.courses[crs.ID]; !ok {
		return school.Course{}, school.ErrCourseNotFound
	}
	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *schoolRepository) DeleteCourse(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.courses, id)
	return nil
}

func (repo *schoolRepository) CreateFolder(_ context.Context, fld school.Folder) (school.Folder, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.folders[fld.ID] = &fld
	return fld, nil
}

func (repo *schoolRepository) GetFoldersBySchool(_ context.Context, schoolID string) ([]school.Folder, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var folders []school.Folder
	for _, fld := range repo.db.folders {
		if fld.SchoolID == schoolID {
			folders = append(folders, *fld)
		}
	}
	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

func (repo *schoolRepository) DeleteFolder(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.folders[id]; !ok {
		return school.ErrFolderNotFound
	}
	delete(repo.db.folders, id)
	return nil
}

func (repo *schoolRepository) CreatePendingTeacher(_ context.Context, pt school.PendingTeacher) (school.PendingTeacher, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, existing := range repo.db.pendingTeachers {
		if existing.SchoolID == pt.SchoolID && existing.Email == pt.Email {
			return *existing, nil
		}
	}
	repo.db.pendingTeachers[pt.ID] = &pt
	return pt, nil
}

func (repo *schoolRepository) GetPendingTeachersBySchool(_ context.Context, schoolID string) ([]school.PendingTeacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var pts []school.PendingTeacher
	for _, pt := range repo.db.pendingTeachers {
		if pt.SchoolID == schoolID {
			pts = append(pts, *pt)
		}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].CreatedAt.After(pts[j].CreatedAt) })
	return pts, nil
}

func (repo *schoolRepository) GetPendingTeacherByEmail(_ context.Context, schoolID, email string) (school.PendingTeacher, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, pt := range repo.db.pendingTeachers {
		if pt.SchoolID == schoolID && pt.Email == email {
			return *pt, nil
		}
	}
	return school.PendingTeacher{}, school.ErrNotFound
}

func (repo *schoolRepository) DeletePendingTeacher(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.pendingTeachers, id)
	return nil
}

func (repo *schoolRepository) CreateApprovalHistory(_ context.Context, ah school.ApprovalHistory) (school.ApprovalHistory, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.approvals[ah.ID] = &ah
	return ah, nil
}

func (repo *schoolRepository) GetApprovalHistoryBySchool(_ context.Context, schoolID string) ([]school.ApprovalHistory, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var entries []school.ApprovalHistory
	for _, ah := range repo.db.approvals {
		if ah.SchoolID == schoolID {
			entries = append(entries, *ah)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })
	return entries, nil
}

func (repo *schoolRepository) CreateSchoolRequest(_ context.Context, sr school.SchoolRequest) (school.SchoolRequest, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	repo.db.schoolRequests[sr.ID] = &sr
	return sr, nil
}

func (repo *schoolRepository) GetAllSchoolRequests(_ context.Context) ([]school.SchoolRequest, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	reqs := make([]school.SchoolRequest, 0, len(repo.db.schoolRequests))
	for _, sr := range repo.db.schoolRequests {
		reqs = append(reqs, *sr)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
	return reqs, nil
}
