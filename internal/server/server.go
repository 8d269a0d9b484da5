package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eneskucukk/ParkingLotApp/internal/logging"
	"github.com/eneskucukk/ParkingLotApp/internal/parking"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	registry   *prometheus.Registry
}

type Options struct {
	Port        string
	ServiceName string
	Currency    string
}

func NewServer(ledger parking.Ledger, opts Options) *Server {
	handler := NewHandler(ledger, opts.ServiceName, opts.Currency)
	registry := newRegistry(ledger)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(TracingMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Get("/status", handler.GetStatus)
		r.Post("/spots/{index}/park", handler.Park)
		r.Post("/spots/{index}/release", handler.Release)
		r.Get("/find/{plate}", handler.FindByPlate)
	})

	httpServer := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		registry:   registry,
	}
}

// newRegistry exposes Go runtime metrics and live occupancy read from the
// ledger at scrape time.
func newRegistry(ledger parking.Ledger) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_spots_capacity",
			Help: "Number of spots in the lot.",
		}, func() float64 {
			return float64(ledger.Snapshot(context.Background()).Capacity)
		}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "parking_spots_occupied",
			Help: "Number of spots currently occupied.",
		}, func() float64 {
			return float64(ledger.Snapshot(context.Background()).OccupiedCount)
		}),
	)
	return registry
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	logging.Info(context.Background(), "starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx, "shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
