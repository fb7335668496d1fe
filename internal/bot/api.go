package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"group-trade-bot/internal/models"
)

// APIServer provides a small HTTP status interface for the running bot.
type APIServer struct {
	server *http.Server
	bot    *Bot
	db     *gorm.DB
	logger *zap.Logger
}

// NewAPIServer creates a new APIServer listening on port.
func NewAPIServer(bot *Bot, db *gorm.DB, port int, logger *zap.Logger) *APIServer {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	s := &APIServer{
		server: server,
		bot:    bot,
		db:     db,
		logger: logger.Named("api-server"),
	}

	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/health", s.healthHandler)

	return s
}

// Start runs the HTTP server in a new goroutine.
func (s *APIServer) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *APIServer) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}

func (s *APIServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int64)
	for _, state := range []string{models.StatusPending, models.StatusAgreed, models.StatusCancelled, models.StatusDone} {
		var n int64
		if err := s.db.Model(&models.Trade{}).Where("status = ?", state).Count(&n).Error; err != nil {
			s.logger.Error("Failed to count trades", zap.String("status", state), zap.Error(err))
			http.Error(w, "Failed to read trade counts", http.StatusInternalServerError)
			return
		}
		counts[state] = n
	}

	status := struct {
		Username  string           `json:"username"`
		StartTime string           `json:"start_time"`
		Uptime    string           `json:"uptime"`
		Trades    map[string]int64 `json:"trades"`
	}{
		Username:  s.bot.Username,
		StartTime: s.bot.StartTime.Format(time.RFC3339),
		Uptime:    time.Since(s.bot.StartTime).String(),
		Trades:    counts,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Failed to write status response", zap.Error(err))
		http.Error(w, "Failed to encode status", http.StatusInternalServerError)
	}
}

func (s *APIServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}
