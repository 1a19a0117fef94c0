package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Options configures NewRouter.
type Options struct {
	// RateLimit caps mutating requests per second across all clients.
	RateLimit float64
	// Assets, when set, serves everything outside /api (the offline web client).
	Assets http.Handler
	// Logging enables chi's request logger.
	Logging bool
}

// NewRouter creates the HTTP router. history may be nil.
func NewRouter(ctrl Controller, bus EventBus, history HistoryReader, opts Options) http.Handler {
	r := chi.NewRouter()

	if opts.Logging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)

	h := &Handlers{ctrl: ctrl, events: bus, history: history}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.getState)
		r.Get("/snapshot", h.getSnapshot)
		r.Get("/history", h.getHistory)
		r.Get("/subscribe", h.sseEvents)

		r.Group(func(r chi.Router) {
			r.Use(rateLimit(opts.RateLimit))

			r.Post("/start", h.start)
			r.Post("/pause", h.pause)
			r.Post("/reset", h.reset)
			r.Post("/mode/{mode}", h.switchMode)
			r.Put("/durations/{mode}", h.updateDuration)
			r.Put("/auto-advance", h.setAutoAdvance)
		})
	})

	if opts.Assets != nil {
		r.Handle("/*", opts.Assets)
	}
	return r
}

// rateLimit rejects requests beyond perSecond with 429.
func rateLimit(perSecond float64) func(http.Handler) http.Handler {
	if perSecond <= 0 {
		perSecond = 5
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				writeError(w, &AppError{Status: http.StatusTooManyRequests, Message: "too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
