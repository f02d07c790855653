package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/moyenne/internal/assistant"
	"github.com/mind-engage/moyenne/internal/catalog"
	"github.com/mind-engage/moyenne/internal/logger"
	"github.com/mind-engage/moyenne/internal/session"
)

type RouterDeps struct {
	Catalog     catalog.Catalog
	Sessions    *session.Store
	Assistant   assistant.Assistant
	Log         *logger.Logger
	CORSOrigins []string
	// Ready reports whether optional backends (reaction cache) are reachable.
	Ready func(ctx context.Context) error
}

func NewRouter(d RouterDeps) chi.Router {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Assistant == nil {
		d.Assistant = assistant.Local{}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, AccessLog(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(200)
	})

	r.Get("/catalog/semesters", CatalogHandler(d.Catalog))
	r.Get("/catalog/semesters/{semesterID}", CatalogSemesterHandler(d.Catalog))

	r.Post("/sessions", CreateSessionHandler(d.Sessions))
	r.Route("/sessions/{sessionID}", func(sr chi.Router) {
		sr.Get("/", GetSessionHandler(d.Sessions))
		sr.Delete("/", DeleteSessionHandler(d.Sessions))
		sr.Route("/semesters/{semesterID}", func(sem chi.Router) {
			sem.Put("/modules/{moduleID}/grades", SetGradeHandler(d.Sessions))
			sem.Post("/requirement", RequirementHandler(d.Sessions))
			sem.Post("/synthesize", SynthesizeHandler(d.Sessions))
			sem.Post("/estimate", EstimateHandler(d.Sessions))
			sem.Post("/reaction", ReactionHandler(d.Sessions, d.Assistant))
			sem.Post("/chat", ChatHandler(d.Sessions, d.Assistant))
		})
	})
	return r
}
