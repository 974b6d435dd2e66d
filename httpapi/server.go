package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/terrascope/authcore"
	"github.com/terrascope/authcore/logging"
	"github.com/terrascope/authcore/metrics/export/prometheus"
	"github.com/terrascope/authcore/middleware"
)

// Options configures [NewApp].
type Options struct {
	Logger logging.Logger

	// ExposeMetrics mounts GET /metrics in Prometheus text format.
	ExposeMetrics bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	BodyLimit    int
}

// Handlers holds the dependencies shared by every route.
type Handlers struct {
	engine *authcore.Engine
	log    logging.Logger
}

// NewApp builds the fiber application serving the auth API.
func NewApp(engine *authcore.Engine, opts Options) *fiber.App {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	if opts.BodyLimit <= 0 {
		opts.BodyLimit = 64 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:               "authcore",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		BodyLimit:             opts.BodyLimit,
	})

	h := &Handlers{engine: engine, log: log}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log))

	app.Get("/health", h.Health)
	if opts.ExposeMetrics {
		exporter := prometheus.NewPrometheusExporter(engine)
		app.Get("/metrics", adaptor.HTTPHandler(exporter.Handler()))
	}

	web := app.Group("", middleware.Visit(engine))
	h.Register(web)

	return app
}

// Register mounts the session-backed routes on r.
func (h *Handlers) Register(r fiber.Router) {
	auth := middleware.RequireAuth(h.engine)

	r.Post("/register", h.SignUp)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", auth, h.Me)

	r.Post("/verify-email/:user_id", h.VerifyEmail)
	r.Post("/resend-code/:user_id", h.ResendCode)

	r.Get("/2fa/setup", auth, h.TwoFactorSetup)
	r.Post("/2fa/setup", auth, h.EnableTwoFactor)
	r.Post("/2fa/verify", h.VerifyTwoFactor)

	r.Post("/password-reset", h.RequestPasswordReset)
	r.Get("/password-reset/:uid/:token", h.CheckPasswordReset)
	r.Post("/password-reset/:uid/:token", h.ConfirmPasswordReset)
}
