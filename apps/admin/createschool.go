package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
)

// createSchool provisions a school and its pre-approved admin_escolar account.
func (cli *commandLine) createSchool(name, domain, adminName, adminEmail, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	domain = core.CleanString(domain, true /* lower */)
	adminName = core.CleanString(adminName)
	adminEmail = core.CleanString(adminEmail, true /* lower */)

	if err := cli.profileRepo.CheckEmailUniqueness(ctx, adminEmail); err != nil {
		return err
	}

	now := time.Now().UTC()
	sch, err := cli.schoolRepo.CreateSchool(ctx, school.School{
		ID:                        uuid.New().String(),
		Name:                      name,
		EmailDomain:               domain,
		RequireInstitutionalEmail: domain != "",
		CreatedAt:                 now,
		UpdatedAt:                 now,
	})
	if err != nil {
		return err
	}

	admin := profile.Profile{
		ID:        uuid.New().String(),
		Name:      adminName,
		Email:     adminEmail,
		Role:      profile.RoleSchoolAdmin,
		Estado:    profile.DefaultEstado(profile.RoleSchoolAdmin),
		SchoolID:  sch.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = admin.SetPassword(pwd); err != nil {
		return err
	}
	if _, err = cli.profileRepo.CreateProfile(ctx, admin); err != nil {
		return err
	}
	return nil
}
