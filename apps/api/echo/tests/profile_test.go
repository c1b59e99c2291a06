package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	. "github.com/internlink/backend/apps/api/echo"
	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/session"
	emailsvc "github.com/internlink/backend/services/email"
	testutil "github.com/internlink/backend/tests"
)

const testPassword = "LetMeIn#123"

func Test_profileApi_login(t *testing.T) {
	app := setup(t)

	prof := testutil.CreateProfile(t, profileRepo, "Rui Costa", "rui@test.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, "")

	tests := []httpTest{
		{
			name: "empty body", method: http.MethodPost, path: "/v1/auth/login",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":    "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "invalid email", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: "lol", Password: "lol"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "email must be a valid email address"}),
		},
		{
			name: "unknown account", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: "ghost@test.pt", Password: testPassword}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/auth/login",
			body:     marchallObj(t, LoginRequest{Email: prof.Email, Password: "NotIt#1234"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login",
			marchallObj(t, LoginRequest{Email: prof.Email, Password: testPassword}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var res LoginResponse
		decodeBody(t, rec, &res)
		if res.Token == "" {
			t.Error("expected a token")
		}

		refreshed, err := profileRepo.GetProfileByID(context.Background(), prof.ID)
		if err != nil {
			t.Fatalf("GetProfileByID() failed: %v", err)
		}
		if refreshed.LastLogin.IsZero() {
			t.Error("LastLogin not set")
		}
	})

	// any estado may log in; the session resolver routes afterwards
	t.Run("pendente may log in", func(t *testing.T) {
		pending := testutil.CreateProfile(t, profileRepo, "Pendente", "pending@test.pt", testPassword,
			profile.RoleStudent, profile.EstadoPendente, "")

		req, rec := newRequest(http.MethodPost, "/v1/auth/login",
			marchallObj(t, LoginRequest{Email: pending.Email, Password: testPassword}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_profileApi_tokenRefresh(t *testing.T) {
	app := setup(t)

	prof := testutil.CreateProfile(t, profileRepo, "Rui Costa", "rui@test.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, "")

	t.Run("no token", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodPost, "/v1/auth/token-refresh")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", getToken(t, prof))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var res LoginResponse
		decodeBody(t, rec, &res)
		if res.Token == "" {
			t.Error("expected a token")
		}
	})

	t.Run("refresh window expired", func(t *testing.T) {
		oriat := time.Now().Add(-conf.Server.JWTRefreshExpirationDelta - time.Hour).Unix()
		claims := GetProfileClaims(conf, prof, oriat)
		token, err := GenerateToken(claims)
		if err != nil {
			t.Fatalf("GenerateToken() failed: %v", err)
		}

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})}
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/token-refresh", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_profileApi_registerStudent(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "ispgaya.pt")
	open := testutil.CreateSchool(t, schoolRepo, "Aberta", "") // no domain policy
	taken := testutil.CreateProfile(t, profileRepo, "Taken", "taken@ispgaya.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, sch.ID)

	tests := []httpTest{
		{
			name: "unknown school", method: http.MethodPost, path: "/v1/register/student",
			body: marchallObj(t, profile.RegisterStudent{
				Name: "Ana", Email: "ana@ispgaya.pt", Password: testPassword, PasswordConfirm: testPassword,
				SchoolID: "nope", CourseID: "crs",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"school_id": "school not found"}),
		},
		{
			name: "institutional email required", method: http.MethodPost, path: "/v1/register/student",
			body: marchallObj(t, profile.RegisterStudent{
				Name: "Ana", Email: "ana@gmail.com", Password: testPassword, PasswordConfirm: testPassword,
				SchoolID: sch.ID, CourseID: "crs",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "registration requires your school email address"}),
		},
		{
			name: "email taken", method: http.MethodPost, path: "/v1/register/student",
			body: marchallObj(t, profile.RegisterStudent{
				Name: "Ana", Email: taken.Email, Password: testPassword, PasswordConfirm: testPassword,
				SchoolID: sch.ID, CourseID: "crs",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "weak password", method: http.MethodPost, path: "/v1/register/student",
			body: marchallObj(t, profile.RegisterStudent{
				Name: "Ana", Email: "ana@ispgaya.pt", Password: "short", PasswordConfirm: "short",
				SchoolID: sch.ID, CourseID: "crs",
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "password must contain at least 8 characters"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("ok", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/register/student",
			marchallObj(t, profile.RegisterStudent{
				Name: "Ana Silva", Email: "ana@ispgaya.pt", Password: testPassword, PasswordConfirm: testPassword,
				SchoolID: sch.ID, CourseID: "crs-1",
			}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var prof profile.Profile
		decodeBody(t, rec, &prof)
		if prof.Role != profile.RoleStudent {
			t.Errorf("Role = %s, want %s", prof.Role, profile.RoleStudent)
		}
		if prof.Estado != profile.EstadoPendente {
			t.Errorf("Estado = %s, want %s", prof.Estado, profile.EstadoPendente)
		}
		if prof.SchoolID != sch.ID || prof.CourseID != "crs-1" {
			t.Errorf("school/course not stored: %+v", prof)
		}
	})

	t.Run("ok without domain policy", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/register/student",
			marchallObj(t, profile.RegisterStudent{
				Name: "Bruno", Email: "bruno@gmail.com", Password: testPassword, PasswordConfirm: testPassword,
				SchoolID: open.ID, CourseID: "crs-2",
			}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})
}

func Test_profileApi_registerTeacher(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "ispgaya.pt")

	emailsvc.SentMessages = nil // reset
	req, rec := newRequest(http.MethodPost, "/v1/register/teacher",
		marchallObj(t, profile.RegisterTeacher{
			Name: "Carlos", Email: "carlos@gmail.com", Password: testPassword, PasswordConfirm: testPassword,
			SchoolID: sch.ID,
		}))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var prof profile.Profile
	decodeBody(t, rec, &prof)
	if prof.Role != profile.RoleTeacher {
		t.Errorf("Role = %s, want %s", prof.Role, profile.RoleTeacher)
	}
	// teachers wait for their school admin, domain policy does not apply
	if prof.Estado != profile.EstadoPendente {
		t.Errorf("Estado = %s, want %s", prof.Estado, profile.EstadoPendente)
	}

	// registration sends a welcome email
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
	}
	msg := emailsvc.SentMessages[0]
	if msg.To[0].Address != "carlos@gmail.com" {
		t.Errorf("welcome email To = %s, want carlos@gmail.com", msg.To[0].Address)
	}
	if !strings.Contains(msg.TextContent, "awaiting review") {
		t.Errorf("welcome email should mention the pending review, got: %s", msg.TextContent)
	}
}

func Test_profileApi_registerTutor(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	student := testutil.CreateProfile(t, profileRepo, "Ana", "ana@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, sch.ID)

	// a placement already waiting on this tutor's email
	itn, err := internshipSvc.Create(context.Background(), sch.ID, internship.NewInternship{
		StudentID: student.ID, TutorEmail: "tutor@empresa.pt", CompanyName: "Empresa",
	})
	if err != nil {
		t.Fatalf("creating internship: %v", err)
	}

	req, rec := newRequest(http.MethodPost, "/v1/register/tutor",
		marchallObj(t, profile.RegisterTutor{
			Name: "Tiago", Email: "tutor@empresa.pt", Password: testPassword, PasswordConfirm: testPassword,
			CompanyName: "Empresa",
		}))
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
	}
	var prof profile.Profile
	decodeBody(t, rec, &prof)
	if prof.Estado != profile.EstadoInativo {
		t.Errorf("Estado = %s, want %s", prof.Estado, profile.EstadoInativo)
	}

	// the waiting slot was claimed
	claimed, err := internshipRepo.GetInternshipByID(context.Background(), itn.ID)
	if err != nil {
		t.Fatalf("GetInternshipByID() failed: %v", err)
	}
	if claimed.TutorID != prof.ID {
		t.Errorf("TutorID = %q, want %q", claimed.TutorID, prof.ID)
	}
}

func Test_profileApi_sessionRoute(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	pending := testutil.CreateProfile(t, profileRepo, "Pendente", "p@test.pt", "",
		profile.RoleStudent, profile.EstadoPendente, sch.ID)
	rejected := testutil.CreateProfile(t, profileRepo, "Rejeitado", "r@test.pt", "",
		profile.RoleStudent, profile.EstadoRejeitado, sch.ID)
	student := testutil.CreateProfile(t, profileRepo, "Ativo", "a@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, sch.ID)
	tutor := testutil.CreateProfile(t, profileRepo, "Tutor", "t@test.pt", "",
		profile.RoleTutor, profile.EstadoInativo, "")
	schAdmin := testutil.CreateProfile(t, profileRepo, "Admin", "adm@test.pt", "",
		profile.RoleSchoolAdmin, profile.EstadoAtivo, sch.ID)

	path := func(surface string) string {
		if surface == "" {
			return "/v1/session/route"
		}
		return "/v1/session/route?surface=" + url.QueryEscape(surface)
	}

	tests := []httpTest{
		{
			name: "anonymous lands on login", method: http.MethodGet, path: path("aluno"),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestLogin}),
		},
		{
			name: "garbage token lands on login", method: http.MethodGet, path: path("aluno"), token: "lol",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestLogin}),
		},
		{
			name: "pendente student waits", method: http.MethodGet, path: path("aluno"),
			token:    getToken(t, pending),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{
				Destination: session.DestWaiting,
				Message:     "A sua conta aguarda aprovação por um professor ou administrador da sua escola.",
			}),
		},
		{
			name: "rejected student waits with rejection message", method: http.MethodGet, path: path("aluno"),
			token:    getToken(t, rejected),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{
				Destination: session.DestWaiting,
				Message:     "O seu registo foi rejeitado. Contacte a sua instituição para mais informações.",
			}),
		},
		{
			name: "active student gets the surface", method: http.MethodGet, path: path("aluno"),
			token:    getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestSurface, Surface: session.SurfaceStudent}),
		},
		{
			name: "wrong surface shows account status", method: http.MethodGet, path: path("professor"),
			token:    getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestAccountStatus}),
		},
		{
			name: "inactive tutor waits", method: http.MethodGet, path: path("tutor"),
			token:    getToken(t, tutor),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{
				Destination: session.DestWaiting,
				Message:     "A sua conta ainda não está ativa. Contacte o responsável da sua instituição.",
			}),
		},
		{
			name: "school admin always gets their surface", method: http.MethodGet, path: path("aluno"),
			token:    getToken(t, schAdmin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestSurface, Surface: session.SurfaceSchoolAdmin}),
		},
		{
			name: "deleted profile behind a live token lands on login", method: http.MethodGet, path: path("aluno"),
			token: getToken(t, profile.Profile{
				ID: "gone", Name: "Gone", Email: "gone@test.pt", Role: profile.RoleStudent,
			}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, session.Route{Destination: session.DestLogin}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_self(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	prof := testutil.CreateProfile(t, profileRepo, "Rui Costa", "rui@test.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, sch.ID)
	token := getToken(t, prof)

	t.Run("retrieve requires a token", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodGet, "/v1/profiles/me")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("retrieve", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, prof)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/me", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("update", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/profiles/me", token,
			marchallObj(t, profile.UpdateProfile{Name: "Rui M. Costa", Phone: "+351912345678"}))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var updated profile.Profile
		decodeBody(t, rec, &updated)
		if updated.Name != "Rui M. Costa" || updated.Phone != "+351912345678" {
			t.Errorf("update not applied: %+v", updated)
		}
		// role, estado and school survive a self update untouched
		if updated.Role != prof.Role || updated.Estado != prof.Estado || updated.SchoolID != prof.SchoolID {
			t.Errorf("privileged fields changed: %+v", updated)
		}
	})
}

func Test_profileApi_query(t *testing.T) {
	app := setup(t)

	now := time.Now()
	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	other := testutil.CreateSchool(t, schoolRepo, "Lusofona", "")

	schAdmin := testutil.CreateProfile(t, profileRepo, "Admin", "adm@test.pt", "",
		profile.RoleSchoolAdmin, profile.EstadoAtivo, sch.ID, now.Add(1*time.Hour))
	teacher := testutil.CreateProfile(t, profileRepo, "Carlos", "carlos@test.pt", "",
		profile.RoleTeacher, profile.EstadoAtivo, sch.ID, now.Add(2*time.Hour))
	ana := testutil.CreateProfile(t, profileRepo, "Ana", "ana@test.pt", "",
		profile.RoleStudent, profile.EstadoPendente, sch.ID, now.Add(3*time.Hour))
	bruno := testutil.CreateProfile(t, profileRepo, "Bruno", "bruno@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, sch.ID, now.Add(4*time.Hour))
	outsider := testutil.CreateProfile(t, profileRepo, "Fora", "fora@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, other.ID, now.Add(5*time.Hour))

	adminToken := getToken(t, schAdmin)

	tests := []httpTest{
		{
			name: "students may not list profiles", method: http.MethodGet, path: "/v1/profiles",
			token:    getToken(t, bruno),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "school admin sees own school only, newest first", method: http.MethodGet, path: "/v1/profiles",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, bruno, ana, teacher, schAdmin),
		},
		{
			name: "ordering by name", method: http.MethodGet, path: "/v1/profiles?ordering=name",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, schAdmin, ana, bruno, teacher), // Admin, Ana, Bruno, Carlos
		},
		{
			name: "filter by role", method: http.MethodGet, path: "/v1/profiles?role=aluno&ordering=name",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ana, bruno),
		},
		{
			name: "filter by estado", method: http.MethodGet, path: "/v1/profiles?estado=pendente",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ana),
		},
		{
			name: "search", method: http.MethodGet, path: "/v1/profiles?search=bruno",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, bruno),
		},
		{
			name: "teacher sees own school too", method: http.MethodGet, path: "/v1/profiles?role=aluno&ordering=name",
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallList(t, ana, bruno),
		},
		{
			// a non-admin asking for another school is clamped to their own
			name: "cross-school filter is clamped", method: http.MethodGet, path: "/v1/profiles?school_id=" + other.ID + "&role=aluno&ordering=name",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t, ana, bruno),
		},
	}
	_ = outsider
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_retrieve(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	other := testutil.CreateSchool(t, schoolRepo, "Lusofona", "")

	teacher := testutil.CreateProfile(t, profileRepo, "Carlos", "carlos@test.pt", "",
		profile.RoleTeacher, profile.EstadoAtivo, sch.ID)
	ana := testutil.CreateProfile(t, profileRepo, "Ana", "ana@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, sch.ID)
	outsider := testutil.CreateProfile(t, profileRepo, "Fora", "fora@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, other.ID)

	tests := []httpTest{
		{
			name: "same school", method: http.MethodGet, path: "/v1/profiles/" + ana.ID,
			token:    getToken(t, teacher),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, ana),
		},
		{
			name: "cross school denied", method: http.MethodGet, path: "/v1/profiles/" + outsider.ID,
			token:    getToken(t, teacher),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "students may not read colleagues", method: http.MethodGet, path: "/v1/profiles/" + teacher.ID,
			token:    getToken(t, ana),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown id", method: http.MethodGet, path: "/v1/profiles/nope",
			token:    getToken(t, teacher),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_approveReject(t *testing.T) {
	app := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "ISPGAYA", "")
	other := testutil.CreateSchool(t, schoolRepo, "Lusofona", "")

	teacher := testutil.CreateProfile(t, profileRepo, "Carlos", "carlos@test.pt", "",
		profile.RoleTeacher, profile.EstadoAtivo, sch.ID)
	pendingTeacher := testutil.CreateProfile(t, profileRepo, "Novo Prof", "novo@test.pt", "",
		profile.RoleTeacher, profile.EstadoPendente, sch.ID)
	schAdmin := testutil.CreateProfile(t, profileRepo, "Admin", "adm@test.pt", "",
		profile.RoleSchoolAdmin, profile.EstadoAtivo, sch.ID)
	tutor := testutil.CreateProfile(t, profileRepo, "Tutor", "tutor@test.pt", "",
		profile.RoleTutor, profile.EstadoAtivo, "")

	ana := testutil.CreateProfile(t, profileRepo, "Ana", "ana@test.pt", "",
		profile.RoleStudent, profile.EstadoPendente, sch.ID)
	bruno := testutil.CreateProfile(t, profileRepo, "Bruno", "bruno@test.pt", "",
		profile.RoleStudent, profile.EstadoPendente, sch.ID)
	outsider := testutil.CreateProfile(t, profileRepo, "Fora", "fora@test.pt", "",
		profile.RoleStudent, profile.EstadoPendente, other.ID)

	t.Run("teacher approves a pending student", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/"+ana.ID+"/approve", getToken(t, teacher))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var approved profile.Profile
		decodeBody(t, rec, &approved)
		if approved.Estado != profile.EstadoAtivo {
			t.Errorf("Estado = %s, want %s", approved.Estado, profile.EstadoAtivo)
		}

		entries, err := schoolRepo.GetApprovalHistoryBySchool(context.Background(), sch.ID)
		if err != nil {
			t.Fatalf("GetApprovalHistoryBySchool() failed: %v", err)
		}
		if len(entries) != 1 || entries[0].ProfileID != ana.ID || entries[0].ApproverID != teacher.ID {
			t.Errorf("approval not recorded: %+v", entries)
		}
	})

	t.Run("re-approving is a no-op success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/"+ana.ID+"/approve", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejecting an approved profile conflicts", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "profile is not in the expected state"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/"+ana.ID+"/reject", getToken(t, teacher))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reject", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/"+bruno.ID+"/reject", getToken(t, schAdmin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
		var rejected profile.Profile
		decodeBody(t, rec, &rejected)
		if rejected.Estado != profile.EstadoRejeitado {
			t.Errorf("Estado = %s, want %s", rejected.Estado, profile.EstadoRejeitado)
		}
	})

	t.Run("school admin approves a teacher", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/profiles/"+pendingTeacher.ID+"/approve", getToken(t, schAdmin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body = %s", rec.Code, rec.Body.String())
		}
	})

	denied := []httpTest{
		{
			name: "a pending approver may not approve", path: "/v1/profiles/" + outsider.ID + "/approve",
			token: getToken(t, testutil.CreateProfile(t, profileRepo, "Pend", "pend@test.pt", "",
				profile.RoleTeacher, profile.EstadoPendente, other.ID)),
		},
		{name: "cross school approval denied", path: "/v1/profiles/" + outsider.ID + "/approve", token: getToken(t, teacher)},
		{name: "tutors may not approve", path: "/v1/profiles/" + outsider.ID + "/approve", token: getToken(t, tutor)},
	}
	for _, tt := range denied {
		t.Run(tt.name, func(t *testing.T) {
			tt.wantCode = http.StatusForbidden
			tt.wantData = marchallObj(t, errForbidden)
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_profileApi_passwordReset(t *testing.T) {
	app := setup(t)

	testutil.CreateProfile(t, profileRepo, "Rui", "rui@test.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, "")

	successMsg := "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."

	tests := []httpTest{
		{
			name: "known email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     marchallObj(t, map[string]string{"email": "rui@test.pt"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: successMsg}),
		},
		{
			// the response never discloses whether the account exists
			name: "unknown email", method: http.MethodPost, path: "/v1/auth/password-reset",
			body:     marchallObj(t, map[string]string{"email": "ghost@test.pt"}),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, SuccessResponse{Success: successMsg}),
		},
		{
			name: "confirm with a bogus token", method: http.MethodPost, path: "/v1/auth/password-reset-confirm",
			body: marchallObj(t, profile.ResetProfilePassword{
				Token: "bogus", UID: "bogus", Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// Exercises the whole reset flow as wired at startup: the token mailed out by
// the request step must verify on the confirm step and the new password must
// authenticate.
func Test_profileApi_passwordResetRoundTrip(t *testing.T) {
	app := setup(t)

	testutil.CreateProfile(t, profileRepo, "Rui", "rui@test.pt", testPassword,
		profile.RoleStudent, profile.EstadoAtivo, "")

	emailsvc.SentMessages = nil // reset
	req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset",
		marchallObj(t, map[string]string{"email": "rui@test.pt"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("requesting reset failed: code = %v, body = %s", rec.Code, rec.Body.String())
	}
	if len(emailsvc.SentMessages) != 1 {
		t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
	}

	var creds struct {
		UID   string
		Token string
	}
	if err := json.Unmarshal(marchallObj(t, emailsvc.SentMessages[0].TemplateData), &creds); err != nil {
		t.Fatalf("decoding reset email data: %v", err)
	}
	if creds.UID == "" || creds.Token == "" {
		t.Fatalf("reset email is missing credentials: %+v", creds)
	}

	newPassword := "NewPass#456"
	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, SuccessResponse{Success: "Password has been reset with the new password."}),
	}
	req, rec = newRequest(http.MethodPost, "/v1/auth/password-reset-confirm",
		marchallObj(t, profile.ResetProfilePassword{
			Token: creds.Token, UID: creds.UID, Password: newPassword, PasswordConfirm: newPassword,
		}))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)

	t.Run("old password no longer authenticates", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/auth/login",
			marchallObj(t, LoginRequest{Email: "rui@test.pt", Password: testPassword}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("new password authenticates", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/auth/login",
			marchallObj(t, LoginRequest{Email: "rui@test.pt", Password: newPassword}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
		}
		var resp LoginResponse
		decodeBody(t, rec, &resp)
		if resp.Token == "" {
			t.Error("expected a session token after resetting the password")
		}
	})

	t.Run("used token does not verify twice", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		}
		req, rec := newRequest(http.MethodPost, "/v1/auth/password-reset-confirm",
			marchallObj(t, profile.ResetProfilePassword{
				Token: creds.Token, UID: creds.UID, Password: newPassword, PasswordConfirm: newPassword,
			}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_profileApi_queryRoles(t *testing.T) {
	app := setup(t)

	prof := testutil.CreateProfile(t, profileRepo, "Rui", "rui@test.pt", "",
		profile.RoleStudent, profile.EstadoAtivo, "")

	tt := httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, profile.Roles)}
	req, rec := newAuthRequest(http.MethodGet, "/v1/profiles/roles", getToken(t, prof))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
