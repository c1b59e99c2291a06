package tests

import (
	"log"
	"net/http"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/profile"
	logsvc "github.com/internlink/backend/services/logger"
)

func TestMain(m *testing.M) {
	conf = newTestConfig()

	logger = logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	validate = validator.New()
	translator = newTranslator()
	core.InitValidators(validate, translator)
	profile.InitValidators(validate, translator)
	profile.InitTokenGenerator(conf)

	core.ParseEmailTemplates(conf, logger)

	os.Exit(m.Run())
}

func Test_home(t *testing.T) {
	app := setup(t)

	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Welcome to InternLink API!" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
