package echoapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/lingora/backend/core"
	"github.com/lingora/backend/core/curriculum"
	"github.com/lingora/backend/core/schedule"
	"github.com/lingora/backend/core/staffing"
	"github.com/lingora/backend/core/user"
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger
		// SignalShutdown is called whenever an unrecoverable error is caught
		// so main can trigger a graceful shutdown.
		SignalShutdown func()

		UserSvc       user.Service
		ScheduleSvc   schedule.Service
		CurriculumSvc curriculum.Service
		StaffingSvc   staffing.Service
	}

	Server interface {
		http.Handler
		Start() error
		Stop(context.Context) error
	}

	server struct {
		opts *Options
		app  *echo.Echo
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.SignalShutdown == nil {
		opts.SignalShutdown = func() {}
	}
	s := &server{
		opts: opts,
		app:  echo.New(),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)
	schedule.RegisterValidators(validate, translator)
	curriculum.RegisterValidators(validate, translator)
	staffing.RegisterValidators(validate, translator)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, translator, s.opts.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := configureAuth(conf)

	registerUserAPI(v1, jwt, s.opts.UserSvc, validate)
	registerScheduleAPI(v1, jwt, s.opts.ScheduleSvc, s.opts.UserSvc, validate)
	registerCurriculumAPI(v1, jwt, s.opts.CurriculumSvc, s.opts.UserSvc, validate)
	registerStaffingAPI(v1, jwt, s.opts.StaffingSvc, validate)
}

func (s *server) Start() error {
	return s.app.Start(s.opts.Address)
}

func (s *server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Lingora API!")
}
