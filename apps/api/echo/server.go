package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/internlink/backend/core"
	"github.com/internlink/backend/core/internship"
	"github.com/internlink/backend/core/profile"
	"github.com/internlink/backend/core/school"
)

type (
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		ProfileSvc    profile.Service
		SchoolSvc     school.Service
		InternshipSvc internship.Service
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo

		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	appJWTConfig.SigningKey = []byte(conf.SecretKey)

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig)

	registerProfileAPI(v1, jwt, s.deps)
	registerSchoolAPI(v1, jwt, s.deps)
	registerInternshipAPI(v1, jwt, s.deps)
	registerCaptchaAPI(v1, s.deps)
	registerConfigAPI(v1, s.deps)
}

// Start runs the listener and reports its terminal error on Errors().
func (s *Server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.ServerAddress())
}

// Errors receives the server's terminal listen error, if any.
func (s *Server) Errors() <-chan error {
	return s.errs
}

// ShutdownSignal receives OS signals and internally raised shutdown requests.
func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown requests a graceful shutdown, as if SIGTERM was received.
func (s *Server) SignalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to InternLink API!")
}
