package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbid/flashbid/internal/domain/auction"
)

// AuctionService defines the core operations the transport layer consumes
type AuctionService interface {
	Init(ctx context.Context, itemID, startPrice int64) (bool, error)
	PlaceBid(ctx context.Context, cmd auction.PlaceBidCommand) (bool, error)
	CurrentInfo(ctx context.Context, itemID int64) (*auction.CurrentInfo, error)
	BidHistory(ctx context.Context, itemID int64) ([]*auction.BidRecord, error)
}

// ScriptReloader re-registers the arbitration routine on demand
type ScriptReloader interface {
	ReloadScript(ctx context.Context) error
}

// Handler exposes the auction core over JSON/HTTP
type Handler struct {
	service  AuctionService
	reloader ScriptReloader
	logger   *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service AuctionService, reloader ScriptReloader, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		reloader: reloader,
		logger:   logger,
	}
}

// Register mounts the routes on the mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /init", h.handleInit)
	mux.HandleFunc("POST /bid", h.handleBid)
	mux.HandleFunc("GET /items/{id}", h.handleCurrentInfo)
	mux.HandleFunc("GET /items/{id}/bids", h.handleBidHistory)
	mux.HandleFunc("POST /admin/script/reload", h.handleScriptReload)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

type initRequest struct {
	ItemID     int64 `json:"item_id"`
	StartPrice int64 `json:"start_price"` // in cents
}

type initResponse struct {
	Initialized bool `json:"initialized"`
}

func (h *Handler) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	initialized, err := h.service.Init(r.Context(), req.ItemID, req.StartPrice)
	if err != nil {
		if errors.Is(err, auction.ErrInvalidStartPrice) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("init failed", "item_id", req.ItemID, "error", err)
		writeError(w, http.StatusInternalServerError, "initialization failed")
		return
	}

	writeJSON(w, http.StatusOK, initResponse{Initialized: initialized})
}

type bidRequest struct {
	ItemID   int64  `json:"item_id"`
	BidderID string `json:"bidder_id"`
	Amount   int64  `json:"amount"` // in cents
}

type bidResponse struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) handleBid(w http.ResponseWriter, r *http.Request) {
	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BidderID == "" {
		writeError(w, http.StatusBadRequest, "bidder_id is required")
		return
	}

	accepted, err := h.service.PlaceBid(r.Context(), auction.PlaceBidCommand{
		ItemID:   req.ItemID,
		BidderID: req.BidderID,
		Amount:   req.Amount,
	})
	if err != nil {
		if errors.Is(err, auction.ErrInvalidBidAmount) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// Store unavailability reads the same as a losing bid from the
		// bidder's side: the price did not become current.
		h.logger.Error("arbitration failed", "item_id", req.ItemID, "bidder_id", req.BidderID, "error", err)
		writeJSON(w, http.StatusOK, bidResponse{Accepted: false})
		return
	}

	writeJSON(w, http.StatusOK, bidResponse{Accepted: accepted})
}

type currentInfoResponse struct {
	ItemID int64  `json:"item_id"`
	Price  int64  `json:"price"` // in cents
	Bidder string `json:"bidder"`
}

func (h *Handler) handleCurrentInfo(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	info, err := h.service.CurrentInfo(r.Context(), itemID)
	if err != nil {
		if errors.Is(err, auction.ErrNotInitialized) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.Error("current info read failed", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "read failed")
		return
	}

	writeJSON(w, http.StatusOK, currentInfoResponse{
		ItemID: info.ItemID,
		Price:  info.Price,
		Bidder: info.Bidder,
	})
}

type bidRecordResponse struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"` // in cents
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) handleBidHistory(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	records, err := h.service.BidHistory(r.Context(), itemID)
	if err != nil {
		h.logger.Error("bid history read failed", "item_id", itemID, "error", err)
		writeError(w, http.StatusInternalServerError, "read failed")
		return
	}

	out := make([]bidRecordResponse, len(records))
	for i, rec := range records {
		out[i] = bidRecordResponse{
			ID:        rec.ID,
			ItemID:    rec.ItemID,
			BidderID:  rec.BidderID,
			Amount:    rec.Amount,
			CreatedAt: rec.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleScriptReload(w http.ResponseWriter, r *http.Request) {
	if err := h.reloader.ReloadScript(r.Context()); err != nil {
		h.logger.Error("script reload failed", "error", err)
		writeError(w, http.StatusBadGateway, "script reload failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
