package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/deadline-guardian/guardian/pkg/usecase"
	"github.com/deadline-guardian/guardian/pkg/utils/errutil"
	"github.com/deadline-guardian/guardian/pkg/utils/safe"
)

type AuthUseCase = usecase.AuthUseCaseInterface

// Notifier runs one notification pass
type Notifier interface {
	ProcessNotifications(ctx context.Context) (*usecase.DispatchResult, error)
}

type Server struct {
	router      *chi.Mux
	authUC      AuthUseCase
	obligations *usecase.ObligationUseCase
	notifier    Notifier
	cronSecret  string
	clock       func() time.Time
}

type Options func(*Server)

func WithAuth(authUC AuthUseCase) Options {
	return func(s *Server) {
		s.authUC = authUC
	}
}

// WithObligations enables the obligation REST API
func WithObligations(uc *usecase.ObligationUseCase) Options {
	return func(s *Server) {
		s.obligations = uc
	}
}

// WithNotifier enables the manual notification trigger
func WithNotifier(notifier Notifier) Options {
	return func(s *Server) {
		s.notifier = notifier
	}
}

// WithCronSecret requires "Authorization: Bearer <secret>" on the notification trigger
func WithCronSecret(secret string) Options {
	return func(s *Server) {
		s.cronSecret = secret
	}
}

func WithClock(clock func() time.Time) Options {
	return func(s *Server) {
		s.clock = clock
	}
}

func New(opts ...Options) (*Server, error) {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.obligations != nil && s.authUC == nil {
		return nil, goerr.New("obligation API requires an auth use case")
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)

	if s.notifier != nil {
		r.Route("/api/cron", func(r chi.Router) {
			r.Use(cronAuthMiddleware(s.cronSecret))
			r.Get("/notifications", cronNotificationsHandler(s.notifier, s.clock))
			r.Post("/notifications", cronNotificationsHandler(s.notifier, s.clock))
		})
	}

	if s.obligations != nil {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(s.authUC))

			r.Get("/api/me", meHandler)
			r.Route("/api/obligations", func(r chi.Router) {
				h := &obligationHandler{uc: s.obligations}
				r.Get("/", h.list)
				r.Post("/", h.create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.get)
					r.Put("/", h.update)
					r.Delete("/", h.delete)
					r.Post("/handle", h.markHandled)
					r.Get("/notifications", h.history)
				})
			})
		})
	}

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}
