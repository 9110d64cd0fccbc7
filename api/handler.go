package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cache "github.com/victorspringer/http-cache"
	"github.com/victorspringer/http-cache/adapter/memory"

	"github.com/gymtrack/occupancy-data/metrics"
	"github.com/gymtrack/occupancy-data/sensor"
	"github.com/gymtrack/occupancy-data/tracker"
)

const dayParam = "day"

var httpCache *cache.Client

func init() {
	memcached, err := memory.NewAdapter(
		memory.AdapterWithAlgorithm(memory.LRU),
		memory.AdapterWithCapacity(64),
	)
	if err != nil {
		panic(err)
	}

	// weekday rollups recompute from raw history on every miss; brief
	// caching keeps repeated dashboard reads cheap
	httpCache, err = cache.NewClient(
		cache.ClientWithAdapter(memcached),
		cache.ClientWithTTL(1*time.Minute),
	)
	if err != nil {
		panic(err)
	}
}

type APIHandlerOptions struct {
	ServerName string
	Prometheus bool
}

type apiHandler struct {
	opts   APIHandlerOptions
	query  *tracker.Reconstructor
	sensor sensor.Reader
	poller *tracker.Poller
}

func NewHandler(opts APIHandlerOptions, query *tracker.Reconstructor, reader sensor.Reader, poller *tracker.Poller) http.Handler {
	handler := &apiHandler{opts, query, reader, poller}

	router := chi.NewRouter()

	// don't use middlewares for the system routes
	router.Get("/_healthz", handler.healthcheck)
	if opts.Prometheus {
		router.Method("GET", "/metrics", promhttp.Handler())
	}

	router.Group(func(router chi.Router) {
		router.Use(chimiddleware.Logger)
		router.Use(chimiddleware.NewCompressor(5, "application/json").Handler)
		router.Use(handler.cors())

		handler.withMetrics(router, "live").
			MethodFunc("GET", "/live", handler.live)
		handler.withMetrics(router, "query_today").
			MethodFunc("GET", "/today", handler.queryToday)
		handler.withMetrics(router, "query_weekday").
			With(handler.cache()).
			MethodFunc("GET", `/{`+dayParam+`}`, handler.queryWeekday)
	})

	return router
}

func (h *apiHandler) withMetrics(router chi.Router, name string) chi.Router {
	if !h.opts.Prometheus {
		return router
	}
	return router.With(func(handler http.Handler) http.Handler {
		return metrics.ObservedHandler(name, handler)
	})
}

func (h *apiHandler) cache() middleware {
	return func(next http.Handler) http.Handler {
		next = httpCache.Middleware(next)

		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Cache-Control", "public, max-age=60")
			next.ServeHTTP(rw, r)
		})
	}
}

func (h *apiHandler) cors() middleware {
	return inlineMiddleware(func(rw http.ResponseWriter, r *http.Request, next http.Handler) {
		if h.opts.ServerName != "" {
			rw.Header().Set("Server", h.opts.ServerName)
		}
		rw.Header().Set("Access-Control-Allow-Origin", "*")
		rw.Header().Set("Access-Control-Allow-Headers", "*")
		next.ServeHTTP(rw, r)
	})
}

func (h *apiHandler) healthcheck(rw http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if !h.poller.IsHealthy() {
		status = http.StatusServiceUnavailable
	}
	rw.WriteHeader(status)
}

// queryWeekday serves GET /{day}. Unknown selectors get an empty sequence,
// not an error.
func (h *apiHandler) queryWeekday(rw http.ResponseWriter, r *http.Request) {
	selector := chi.URLParam(r, dayParam)
	points, err := h.query.Query(r.Context(), selector)
	if err != nil {
		respondInternalError(rw, err)
		return
	}
	respondJson(rw, http.StatusOK, points)
}

func (h *apiHandler) queryToday(rw http.ResponseWriter, r *http.Request) {
	points, err := h.query.Today(r.Context())
	if err != nil {
		respondInternalError(rw, err)
		return
	}
	respondJson(rw, http.StatusOK, points)
}

// live proxies the current upstream value without persisting anything.
// Upstream failures collapse to a generic 500, never the raw upstream
// payload.
func (h *apiHandler) live(rw http.ResponseWriter, r *http.Request) {
	body, err := h.sensor.FetchRaw(r.Context())
	if err != nil {
		respondInternalError(rw, err)
		return
	}
	rw.Header().Set("Content-Type", "application/json; charset=utf-8")
	rw.WriteHeader(http.StatusOK)
	rw.Write(body)
}
