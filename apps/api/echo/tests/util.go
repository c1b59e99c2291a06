package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/internlink/backend/apps/api/echo"
	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
	emailsvc "github.com/internlink/backend/services/email"
	inmemdb "github.com/internlink/backend/storage/database/inmem"
)

var (
	conf       *core.Config
	logger     core.Logger
	validate   *validator.Validate
	translator ut.Translator

	profileRepo    profile.Repository
	schoolRepo     school.Repository
	internshipRepo internship.Repository

	profileSvc    profile.Service
	schoolSvc     school.Service
	internshipSvc internship.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func newTestConfig() *core.Config {
	return &core.Config{
		AppName:   "InternLink",
		Env:       "TEST",
		TestMode:  true,
		SecretKey: "secret-test-key-not-for-production",

		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
		Captcha: core.CaptchaConfig{
			MinScore: 0.5,
			Timeout:  2 * time.Second,
		},
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	trans, _ := uni.GetTranslator("en")
	return trans
}

// setup rebuilds the whole stack on a fresh in-memory store.
func setup(t *testing.T) *Server {
	t.Helper()

	db := inmemdb.NewDB()
	profileRepo = inmemdb.NewProfileRepository(db)
	schoolRepo = inmemdb.NewSchoolRepository(db)
	internshipRepo = inmemdb.NewInternshipRepository(db)

	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	schoolSvc = school.NewServiceMock(schoolRepo, mailSvc, conf)
	profileSvc = profile.NewServiceMock(profileRepo, school.NewDirectory(schoolRepo), mailSvc, conf)
	internshipSvc = internship.NewService(internshipRepo, school.NewGateSource(schoolRepo, profileSvc))

	return NewServer(
		ServerDeps{
			Conf:          conf,
			Logger:        logger,
			ProfileSvc:    profileSvc,
			SchoolSvc:     schoolSvc,
			InternshipSvc: internshipSvc,
			Validate:      validate,
			Translator:    translator,
		},
	)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, prof profile.Profile) string {
	claims := GetProfileClaims(conf, prof)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response body: %v (body: %s)", err, rec.Body.String())
	}
}
