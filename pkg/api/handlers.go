package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/jonasrmichel/solcascade/pkg/cascade"
	"github.com/jonasrmichel/solcascade/pkg/pairs"
	"github.com/jonasrmichel/solcascade/pkg/solana"
	"github.com/jonasrmichel/solcascade/pkg/types"
)

// errorResponse is the caller-visible error shape: structured reasons only,
// never internal stack detail.
type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

// cascadeRequest is the public cascade invocation payload.
type cascadeRequest struct {
	InitialAmountSOL string   `json:"initial_amount_sol"`
	MaxDepth         int      `json:"max_depth"`
	StopOnFailure    bool     `json:"stop_on_failure"`
	PairIDs          []string `json:"pair_ids,omitempty"`
}

func (s *Server) handleExecuteCascade(w http.ResponseWriter, r *http.Request) {
	var req cascadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := solana.ParseSOL(req.InitialAmountSOL)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid initial_amount_sol: "+err.Error())
		return
	}
	if amount == 0 {
		respondError(w, http.StatusBadRequest, "initial_amount_sol must be positive")
		return
	}

	result := s.engine.ExecuteCascade(r.Context(), &cascade.Request{
		InitialLamports: amount,
		MaxDepth:        req.MaxDepth,
		StopOnFailure:   req.StopOnFailure,
		PairIDs:         req.PairIDs,
	})

	// A cascade that ran is a 200 regardless of business outcome; the result
	// carries success and per-step reasons.
	respondJSON(w, http.StatusOK, result)
}

// tradeRequest is the single-trade execution payload.
type tradeRequest struct {
	PairID    string `json:"pair_id"`
	AmountSOL string `json:"amount_sol"`
}

func (s *Server) handleExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := solana.ParseSOL(req.AmountSOL)
	if err != nil || amount == 0 {
		respondError(w, http.StatusBadRequest, "invalid amount_sol")
		return
	}

	step, err := s.engine.ExecuteTrade(r.Context(), req.PairID, amount)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, step)
}

func (s *Server) handleRecentTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		respondError(w, http.StatusNotFound, "trade journal not enabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	trades, err := s.trades.RecentTrades(r.Context(), limit)
	if err != nil {
		s.log.Error("failed to list trades: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list trades")
		return
	}
	if trades == nil {
		trades = []types.TradeRecord{}
	}
	respondJSON(w, http.StatusOK, trades)
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.registry.All())
}

// addPairRequest mirrors PairSettings in the configuration file.
type addPairRequest struct {
	ID           string `json:"id"`
	StableMint   string `json:"stable_mint"`
	TargetMint   string `json:"target_mint"`
	Rank         int    `json:"rank"`
	Enabled      bool   `json:"enabled"`
	MaxTradeSOL  string `json:"max_trade_sol,omitempty"`
	SlippageBps  int    `json:"slippage_bps,omitempty"`
	MinWalletSOL string `json:"min_wallet_sol,omitempty"`
}

func (s *Server) handleAddPair(w http.ResponseWriter, r *http.Request) {
	var req addPairRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair := types.TradingPair{
		ID:                req.ID,
		StableMint:        req.StableMint,
		TargetMint:        req.TargetMint,
		ProfitabilityRank: req.Rank,
		Enabled:           req.Enabled,
		LastUpdated:       time.Now(),
		Risk:              types.PairRiskConfig{SlippageBps: req.SlippageBps},
	}
	if req.MaxTradeSOL != "" {
		v, err := solana.ParseSOL(req.MaxTradeSOL)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid max_trade_sol: "+err.Error())
			return
		}
		pair.Risk.MaxTradeLamports = v
	}
	if req.MinWalletSOL != "" {
		v, err := solana.ParseSOL(req.MinWalletSOL)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid min_wallet_sol: "+err.Error())
			return
		}
		pair.Risk.MinWalletLamports = v
	}

	if err := s.registry.Add(pair); err != nil {
		if errors.Is(err, pairs.ErrDuplicate) {
			respondError(w, http.StatusConflict, err.Error())
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, pair)
}

func (s *Server) handleUpdateRank(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		Rank int `json:"rank"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.registry.SetRank(id, req.Rank); err != nil {
		s.respondRegistryError(w, err)
		return
	}

	pair, _ := s.registry.Get(id)
	respondJSON(w, http.StatusOK, pair)
}

func (s *Server) handleSetEnabled(enabled bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		if err := s.registry.SetEnabled(id, enabled); err != nil {
			s.respondRegistryError(w, err)
			return
		}

		pair, _ := s.registry.Get(id)
		respondJSON(w, http.StatusOK, pair)
	}
}

func (s *Server) handleRefreshScores(w http.ResponseWriter, r *http.Request) {
	s.ranker.RefreshAllScores(r.Context())
	respondJSON(w, http.StatusOK, s.registry.All())
}

// riskStatus is the read-only view of the daily counter.
type riskStatus struct {
	DailyVolumeSOL       string `json:"daily_volume_sol"`
	RemainingCapacitySOL string `json:"remaining_capacity_sol"`
	TradesToday          int    `json:"trades_today"`
	MaxTradeSOL          string `json:"max_trade_sol"`
	MaxDailySOL          string `json:"max_daily_sol"`
	MinTradeSOL          string `json:"min_trade_sol"`
}

func (s *Server) handleRiskStatus(w http.ResponseWriter, r *http.Request) {
	limits := s.risk.Limits()
	volume := s.risk.GetDailyVolume()

	remaining := uint64(0)
	if limits.MaxDailyLamports > volume {
		remaining = limits.MaxDailyLamports - volume
	}

	respondJSON(w, http.StatusOK, riskStatus{
		DailyVolumeSOL:       solana.FormatSOL(volume),
		RemainingCapacitySOL: solana.FormatSOL(remaining),
		TradesToday:          s.risk.TradesToday(),
		MaxTradeSOL:          solana.FormatSOL(limits.MaxTradeLamports),
		MaxDailySOL:          solana.FormatSOL(limits.MaxDailyLamports),
		MinTradeSOL:          solana.FormatSOL(limits.MinTradeLamports),
	})
}

func (s *Server) handleRiskReset(w http.ResponseWriter, r *http.Request) {
	s.risk.ResetDailyCounters()
	s.log.Info("daily risk counters reset via API")
	respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) respondRegistryError(w http.ResponseWriter, err error) {
	if errors.Is(err, pairs.ErrNotFound) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	// Keep caller-visible messages to the first line of the reason.
	respondError(w, http.StatusBadRequest, strings.SplitN(err.Error(), "\n", 2)[0])
}
