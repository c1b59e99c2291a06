package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
)

func CreateProfile(
	t *testing.T,
	repo profile.Repository,
	name, email, pwd, role, estado, schoolID string,
	createdAt ...time.Time,
) profile.Profile {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	prof := profile.Profile{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Role:      role,
		Estado:    estado,
		SchoolID:  schoolID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := prof.SetPassword(pwd); err != nil {
			t.Fatalf("CreateProfile() failed: %v", err)
		}
	}
	prof, err := repo.CreateProfile(context.Background(), prof)
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func CreateSchool(t *testing.T, repo school.Repository, name, domain string) school.School {
	now := time.Now().UTC()
	sch, err := repo.CreateSchool(context.Background(), school.School{
		ID:                        uuid.New().String(),
		Name:                      name,
		EmailDomain:               domain,
		RequireInstitutionalEmail: domain != "",
		CreatedAt:                 now,
		UpdatedAt:                 now,
	})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

func CreateCourse(t *testing.T, repo school.Repository, schoolID, name string, window school.Window) school.Course {
	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), school.Course{
		ID:             uuid.New().String(),
		SchoolID:       schoolID,
		Name:           name,
		Window:         window,
		ReportMinHours: school.DefaultReportMinHours,
		ReportWaitDays: school.DefaultReportWaitDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateInternship(
	t *testing.T,
	repo internship.Repository,
	studentID, schoolID, companyName string,
) internship.Internship {
	now := time.Now().UTC()
	itn, err := repo.CreateInternship(context.Background(), internship.Internship{
		ID:          uuid.New().String(),
		StudentID:   studentID,
		SchoolID:    schoolID,
		CompanyName: companyName,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("CreateInternship() failed: %v", err)
	}
	return itn
}
