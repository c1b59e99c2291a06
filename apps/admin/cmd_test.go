package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/internlink/backend/core/profile"
	inmemdb "github.com/internlink/backend/storage/database/inmem"
	testutil "github.com/internlink/backend/tests"
)

var (
	profileRepo profile.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.NewDB()
	profileRepo = inmemdb.NewProfileRepository(db)

	return &commandLine{
		profileRepo: profileRepo,
		schoolRepo:  inmemdb.NewSchoolRepository(db),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_createSchool(t *testing.T) {
	cli := setup(t)

	testutil.CreateProfile(t, profileRepo, "Taken", "taken@ispgaya.pt", "secret",
		profile.RoleSchoolAdmin, profile.EstadoAtivo, "")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"createschool"}, wantErr: errHelp},
		{name: "name but no admin", args: []string{"createschool", "-name", "ISPGAYA"}, wantErr: errHelp},
		{name: "no password", args: []string{"createschool", "-name", "ISPGAYA", "-admin-name", "Ana", "-admin-email", "ana@ispgaya.pt"}, wantErr: errHelp},
		{name: "email taken", args: []string{"createschool", "-name", "ISPGAYA", "-admin-name", "Ana", "-admin-email", "taken@ispgaya.pt"},
			extra: extra{pwd: "secret"}, wantErr: profile.ErrEmailExists},
		{name: "create", args: []string{"createschool", "-name", "ISPGAYA", "-domain", "ispgaya.pt", "-admin-name", "Ana", "-admin-email", "ana@ispgaya.pt"},
			extra: extra{pwd: "secret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				admin, err := profileRepo.GetProfileByEmail(context.Background(), "ana@ispgaya.pt")
				if err != nil {
					t.Fatalf("GetProfileByEmail() failed, %v", err)
				}
				if admin.Role != profile.RoleSchoolAdmin {
					t.Errorf("admin.Role = %s, want %s", admin.Role, profile.RoleSchoolAdmin)
				}
				if admin.Estado != profile.EstadoAtivo {
					t.Errorf("admin.Estado = %s, want %s", admin.Estado, profile.EstadoAtivo)
				}
				if admin.SchoolID == "" {
					t.Error("admin.SchoolID not set")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	prof := testutil.CreateProfile(t, profileRepo, "Rui", "rui@test.pt", "mdr",
		profile.RoleStudent, profile.EstadoAtivo, "")

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.pt"}, wantErr: errHelp},
		{name: "profile not found", args: []string{"resetpassword", "-email", "lol@test.pt"}, extra: extra{pwd: "lol"}, wantErr: profile.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "-email", prof.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshed, err := profileRepo.GetProfileByID(context.Background(), prof.ID)
				if err != nil {
					t.Fatalf("GetProfileByID() failed, %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, prof.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
