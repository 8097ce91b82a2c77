package adapthttp

import (
	"net/http"

	"ahaarwise/internal/app"
	"ahaarwise/internal/domain"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// OIDCConfig enables single sign-on through an OpenID Connect provider.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// Config holds the transport-level settings of the HTTP adapter.
type Config struct {
	WebDir string
	// CookieSecure marks cookies Secure; enable behind TLS.
	CookieSecure bool
	// LoginRatePerMinute caps login requests per remote IP. Zero disables it.
	LoginRatePerMinute int
	OIDC               OIDCConfig
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth      *app.AuthService
	creds     *app.CredentialService
	patients  *app.PatientService
	nutrition *app.NutritionService
	log       *zap.Logger
	cfg       Config
	limiter   *ipLimiter
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, creds *app.CredentialService, patients *app.PatientService, nutrition *app.NutritionService, log *zap.Logger, cfg Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		auth:      auth,
		creds:     creds,
		patients:  patients,
		nutrition: nutrition,
		log:       log.Named("http"),
		cfg:       cfg,
		limiter:   newIPLimiter(cfg.LoginRatePerMinute),
	}
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(withNoCache)
	r.Use(s.clientMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		r.Route("/auth", func(r chi.Router) {
			r.With(s.limiter.middleware).Post("/login", s.handleLogin)
			r.Get("/session", s.handleSession)
			r.Post("/logout", s.handleLogout)
			r.With(s.requireUser).Patch("/profile", s.handleUpdateProfile)
			r.With(s.limiter.middleware).Post("/setup", s.handleSetupUser)
			r.Get("/config", s.handleConfig)
			r.Get("/sso/login", s.handleSSOLogin)
			r.Get("/sso/callback", s.handleSSOCallback)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)

			r.With(requireRole(domain.RoleAdmin)).Post("/users", s.handleCreateUser)

			r.Route("/patients", func(r chi.Router) {
				r.Get("/", s.handleListPatients)
				r.Post("/", s.handleCreatePatient)
				r.Get("/{id}", s.handleGetPatient)
				r.Put("/{id}", s.handleUpdatePatient)
				r.Delete("/{id}", s.handleDeletePatient)
				r.Get("/{id}/nutrition", s.handlePatientNutrition)
			})
		})
	})

	r.Handle("/*", spaFromDisk(s.cfg.WebDir))
	return r
}
