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

	"github.com/xmu-se/crms/core"
	"github.com/xmu-se/crms/core/course"
	"github.com/xmu-se/crms/core/fixgroup"
	"github.com/xmu-se/crms/core/school"
	"github.com/xmu-se/crms/core/seminar"
	"github.com/xmu-se/crms/core/seminargroup"
	"github.com/xmu-se/crms/core/user"
)

type (
	ServerDeps struct {
		Conf        *core.Config
		Logger      core.Logger
		Validate    *validator.Validate
		Translator  ut.Translator
		Storage     core.FileStorage
		UserSvc     user.ServiceInterface
		SchoolSvc   school.ServiceInterface
		CourseSvc   course.ServiceInterface
		SeminarSvc  seminar.ServiceInterface
		FixGroupSvc fixgroup.ServiceInterface
		GroupSvc    seminargroup.ServiceInterface
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(s.metrics.middleware())
	if !conf.Server.DisableRequestLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))
	s.app.Static(conf.Upload.URLPrefix, conf.Upload.Dir)

	jwt := middleware.JWTWithConfig(newJWTConfig(conf))

	registerUserAPI(s.app, jwt, s.deps)
	registerSchoolAPI(s.app, jwt, s.deps)
	registerCourseAPI(s.app, jwt, s.deps)
	registerClassAPI(s.app, jwt, s.deps)
	registerSeminarAPI(s.app, jwt, s.deps)
	registerGroupAPI(s.app, jwt, s.deps)
}

// Start listens until the server is shut down; failures are sent to Errors.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	conf := s.deps.Conf
	s.deps.Logger.Info("API listening on " + conf.Server.Address)
	err := s.app.StartServer(&http.Server{
		Addr:         conf.Server.Address,
		ReadTimeout:  conf.Server.ReadTimeout,
		WriteTimeout: conf.Server.WriteTimeout,
	})
	if err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to CRMS API!")
}
