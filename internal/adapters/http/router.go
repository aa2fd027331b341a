package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func NewRouter(handler *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ready", nil) })

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/posts/{post_id}/counters", handler.getPostCounters)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Route("/interactions", func(r chi.Router) {
				r.Post("/likes", handler.publishLike)
				r.Post("/bookmarks", handler.publishBookmark)
				r.Post("/comments", handler.publishComment)
				r.Post("/stats", handler.publishStatsUpdate)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/failures", handler.listFailures)
			r.Post("/failures/{message_id}/replay", handler.replayFailure)
			r.Delete("/failures/{message_id}", handler.discardFailure)
		})
	})
	return r
}
