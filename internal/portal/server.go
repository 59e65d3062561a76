// Package portal is the HTTP API consumed by the captive-portal web page:
// plan catalog, payment submission, session status and phone prefill.
package portal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/sokonet/hotspot-portal/internal/billing"
	"github.com/sokonet/hotspot-portal/internal/config"
	"github.com/sokonet/hotspot-portal/internal/notify"
	"github.com/sokonet/hotspot-portal/internal/payment"
	"github.com/sokonet/hotspot-portal/internal/router"
	"github.com/sokonet/hotspot-portal/internal/storage"
)

// Server serves the portal API.
type Server struct {
	cfg       *config.Config
	billing   *billing.Client
	initiator *payment.Initiator
	sessions  *payment.Sessions
	resolver  *router.Resolver
	storage   *storage.Storage
	alerts    *notify.Telegram
	log       *slog.Logger

	server *http.Server
}

// NewServer creates the portal server. alerts may be nil.
func NewServer(cfg *config.Config, billingClient *billing.Client, initiator *payment.Initiator,
	sessions *payment.Sessions, resolver *router.Resolver, store *storage.Storage,
	alerts *notify.Telegram, log *slog.Logger) *Server {
	return &Server{
		cfg:       cfg,
		billing:   billingClient,
		initiator: initiator,
		sessions:  sessions,
		resolver:  resolver,
		storage:   store,
		alerts:    alerts,
		log:       log,
	}
}

// Start starts the portal server and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	r := mux.NewRouter()
	r.HandleFunc("/api/plans", s.handlePlans).Methods(http.MethodGet)
	r.HandleFunc("/api/pay", s.handlePay).Methods(http.MethodPost)
	r.HandleFunc("/api/pay/{id}", s.handleSession).Methods(http.MethodGet)
	r.HandleFunc("/api/pay/{id}", s.handleCancel).Methods(http.MethodDelete)
	r.HandleFunc("/api/phone", s.handlePhone).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// The portal page is served by the router, the API by this agent, so
	// every browser call is cross-origin.
	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Accept"},
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      c.Handler(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second, // submission can hold for the 60s charge window
	}

	s.log.Info("starting portal server", "port", port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	return s.server.ListenAndServe()
}
