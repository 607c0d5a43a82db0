package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"restaurant-chatbot/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Server wraps the HTTP server with sensible timeouts.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

func New(port int, handler http.Handler, logger *zap.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// NewRouter wires the chat API, payment endpoints, the websocket chat channel
// and static assets.
func NewRouter(chat *services.Chat, orders services.OrderStore, menu services.MenuStore, gateway services.PaymentGateway, staticDir string, logger *zap.Logger) http.Handler {
	h := &handlers{
		chat:    chat,
		orders:  orders,
		menu:    menu,
		gateway: gateway,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/api/chat", h.handleChat)
	r.Post("/api/payment/initialize", h.handlePaymentInitialize)
	r.Post("/api/payment/verify", h.handlePaymentVerify)
	r.Get("/api/payment/callback", h.handlePaymentCallback)
	r.Post("/api/seed-menu", h.handleSeedMenu)

	r.Get("/ws", h.handleWebsocket)

	if staticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(staticDir)))
	}

	return r
}
