// Package server holds the process-wide dependencies and the HTTP route table.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/medicuris/service/internal/config"
	"github.com/medicuris/service/internal/db"
	"github.com/medicuris/service/internal/image"
	"github.com/medicuris/service/internal/medicine"
	"github.com/medicuris/service/internal/metrics"
	appMiddleware "github.com/medicuris/service/internal/middleware"
	"github.com/medicuris/service/internal/response"
	"github.com/medicuris/service/internal/storage"
)

const healthTimeout = 3 * time.Second

// Database is the connection pool as seen by the server.
type Database interface {
	db.Querier
	Ping(ctx context.Context) error
}

// Server is built once at startup and shared by every request.
type Server struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      Database
	storage storage.Storage

	medicines *medicine.Handler
	images    *image.Handler
}

// New wires repository -> service -> handler for each resource.
func New(cfg *config.Config, log zerolog.Logger, database Database, store storage.Storage) *Server {
	medicineSvc := medicine.NewService(medicine.NewRepository(database), log)
	imageSvc := image.NewService(image.NewRepository(database), store, cfg.UploadCleanupOrphan, log)

	return &Server{
		cfg:       cfg,
		log:       log,
		db:        database,
		storage:   store,
		medicines: medicine.NewHandler(medicineSvc, log),
		images:    image.NewHandler(imageSvc, cfg.UploadMaxMemory, log),
	}
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(s.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Swagger UI at /swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Route("/images", s.images.Routes)
		r.Route("/medicines", s.medicines.Routes)
	})

	return r
}

// HTTPServer returns an *http.Server serving the router on the configured port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.HTTPReadTimeout,
		WriteTimeout: s.cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
}

// health godoc
//
//	@Summary	Health check
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Failure	503	{object}	response.ErrorBody
//	@Router		/health [get]
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health: database unreachable")
		response.ServiceUnavailable(w, "database unavailable")
		return
	}
	if err := s.storage.Health(ctx); err != nil {
		s.log.Warn().Err(err).Msg("health: object storage unreachable")
		response.ServiceUnavailable(w, "object storage unavailable")
		return
	}
	response.OK(w, map[string]string{"status": "ok"})
}
