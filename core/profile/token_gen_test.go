package profile

import (
	"testing"
	"time"

	"github.com/internlink/backend/core"
)

func TestMakeVerifyToken(t *testing.T) {
	InitTokenGenerator(&core.Config{
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	})

	// a token must not verify under a different signing key
	keyedProf := Profile{ID: "2a2e63db-1b2a-45d4-8a1a-60a6a4a9c85a"}
	_ = keyedProf.SetPassword("pwd")
	keyedToken := makeToken(keyedProf)
	InitTokenGenerator(&core.Config{
		SecretKey:                 "another-secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	})
	if err := verifyToken(keyedProf, keyedToken); err != errInvalidToken {
		t.Errorf("verifyToken() with rotated key error = %v, wantErr %v", err, errInvalidToken)
	}
	InitTokenGenerator(&core.Config{
		SecretKey:                 "secret",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	})

	now := time.Now()
	prof := Profile{
		ID:        "c0e0ae52-e1d1-4a4e-9697-3a746fd0d1fa",
		Name:      "T",
		Email:     "t@test.test",
		Role:      RoleStudent,
		Estado:    EstadoAtivo,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = prof.SetPassword("pwd")

	validToken := makeToken(prof)

	// generate an expired token
	dayLate := passwordResetTimeoutDelta + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken := makeToken(prof)
	nowFunc = time.Now // reset

	tests := []struct {
		name    string
		prof    Profile
		token   string
		wantErr error
	}{
		{name: "no token", prof: prof, wantErr: errInvalidToken},
		{name: "invalid parts len", prof: prof, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", prof: prof, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", prof: prof, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", prof: prof, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", prof: prof, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", prof: prof, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := verifyToken(tt.prof, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
