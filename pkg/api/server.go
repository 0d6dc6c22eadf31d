// Package api exposes the service boundary over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonasrmichel/solcascade/pkg/cascade"
	"github.com/jonasrmichel/solcascade/pkg/events"
	"github.com/jonasrmichel/solcascade/pkg/logger"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/ranking"
	"github.com/jonasrmichel/solcascade/pkg/risk"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// TradeHistory lists recently executed trades from the journal.
type TradeHistory interface {
	RecentTrades(ctx context.Context, limit int) ([]types.TradeRecord, error)
}

// Server wires the HTTP routes to the engine and its collaborators.
type Server struct {
	router   *mux.Router
	engine   *cascade.Engine
	registry *pairs.Registry
	ranker   *ranking.Ranker
	risk     *risk.Manager
	hub      *events.Hub  // Optional
	trades   TradeHistory // Optional
	log      *logger.Logger
}

// NewServer creates the HTTP server surface.
func NewServer(engine *cascade.Engine, registry *pairs.Registry, ranker *ranking.Ranker, riskMgr *risk.Manager, hub *events.Hub, log *logger.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		engine:   engine,
		registry: registry,
		ranker:   ranker,
		risk:     riskMgr,
		hub:      hub,
		log:      log,
	}
	s.routes()
	return s
}

// SetTradeHistory attaches the journal's read side.
func (s *Server) SetTradeHistory(trades TradeHistory) {
	s.trades = trades
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	v1 := s.router.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/cascade", s.handleExecuteCascade).Methods(http.MethodPost)
	v1.HandleFunc("/trades", s.handleExecuteTrade).Methods(http.MethodPost)
	v1.HandleFunc("/trades/recent", s.handleRecentTrades).Methods(http.MethodGet)

	v1.HandleFunc("/pairs", s.handleListPairs).Methods(http.MethodGet)
	v1.HandleFunc("/pairs", s.handleAddPair).Methods(http.MethodPost)
	v1.HandleFunc("/pairs/refresh-scores", s.handleRefreshScores).Methods(http.MethodPost)
	v1.HandleFunc("/pairs/{id}/rank", s.handleUpdateRank).Methods(http.MethodPatch)
	v1.HandleFunc("/pairs/{id}/enable", s.handleSetEnabled(true)).Methods(http.MethodPost)
	v1.HandleFunc("/pairs/{id}/disable", s.handleSetEnabled(false)).Methods(http.MethodPost)

	v1.HandleFunc("/risk", s.handleRiskStatus).Methods(http.MethodGet)
	v1.HandleFunc("/risk/reset", s.handleRiskReset).Methods(http.MethodPost)

	s.router.Handle("/metrics", promhttp.Handler())
	if s.hub != nil {
		s.router.HandleFunc("/ws", s.hub.ServeWS)
	}
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
