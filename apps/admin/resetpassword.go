package main

import (
	"context"
	"time"

	"github.com/internlink/backend/core"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	prof, err := cli.profileRepo.GetProfileByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		return err
	}
	if err := prof.SetPassword(pwd); err != nil {
		return err
	}
	prof.UpdatedAt = time.Now().UTC()
	if _, err := cli.profileRepo.UpdateProfile(ctx, prof); err != nil {
		return err
	}
	return nil
}
