package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/edvin/apihub/internal/api/handler"
	mw "github.com/edvin/apihub/internal/api/middleware"
	"github.com/edvin/apihub/internal/core"
	"github.com/edvin/apihub/internal/model"
	"github.com/edvin/apihub/internal/token"
)

type Server struct {
	router   chi.Router
	logger   zerolog.Logger
	services *core.Services
	pool     *pgxpool.Pool
}

func NewServer(logger zerolog.Logger, pool *pgxpool.Pool, codec *token.Codec) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger,
		services: core.NewServices(pool, codec, logger),
		pool:     pool,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Token management, authenticated by the gateway-established user.
		r.Group(func(r chi.Router) {
			r.Use(mw.UserAuth)

			tokens := handler.NewAccessToken(s.services.AccessToken)
			r.Post("/access-tokens", tokens.Create)
			r.Get("/access-tokens", tokens.List)
			r.Patch("/access-tokens/{id}", tokens.Rename)
			r.Delete("/access-tokens/{id}", tokens.Revoke)
		})

		// Team resources, authenticated by a presented access token.
		resources := handler.NewTeamResource(s.services.Team)
		r.Route("/teams/{teamID}", func(r chi.Router) {
			r.With(mw.TokenAuth(s.services.AccessToken, model.ResourceKindCollection)).
				Get("/collections/{id}", resources.GetCollection)
			r.With(mw.TokenAuth(s.services.AccessToken, model.ResourceKindEnvironment)).
				Get("/environments/{id}", resources.GetEnvironment)
		})
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close flushes the token service's pending last-used updates. Call after
// the HTTP server has stopped accepting requests.
func (s *Server) Close() {
	s.services.AccessToken.Close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Error().Err(err).Msg("readiness check failed")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
