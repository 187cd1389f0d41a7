package handler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/trades"
)

// TradeService is the pipeline surface the handler needs.
type TradeService interface {
	LookupAccounts(ctx context.Context, l1Address string) (string, []int64, error)
	FetchForAccounts(ctx context.Context, reqs []trades.AccountRequest) map[int64]domain.AccountResult
}

// TradesHandler serves account lookup and batch trade retrieval.
type TradesHandler struct {
	service TradeService
	logger  *slog.Logger
}

// NewTradesHandler creates a TradesHandler.
func NewTradesHandler(service TradeService, logger *slog.Logger) *TradesHandler {
	return &TradesHandler{service: service, logger: logger}
}

// lookupRequest is the body of POST /api/lookup-accounts.
type lookupRequest struct {
	L1Address string `json:"l1_address"`
}

// fetchRequest is the body of POST /api/fetch-trades.
type fetchRequest struct {
	Accounts []trades.AccountRequest `json:"accounts"`
}

// LookupAccounts returns the sub-account indexes registered for an L1
// address.
func (h *TradesHandler) LookupAccounts(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.L1Address == "" {
		writeError(w, http.StatusBadRequest, "l1_address is required")
		return
	}

	address, indexes, err := h.service.LookupAccounts(r.Context(), req.L1Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"l1_address":      address,
		"account_indexes": indexes,
	})
}

// FetchTrades retrieves and classifies trade history for each requested
// account. Per-account failures are reported inside the response rather
// than failing the request.
func (h *TradesHandler) FetchTrades(w http.ResponseWriter, r *http.Request) {
	reqs, ok := h.decodeAccounts(w, r)
	if !ok {
		return
	}

	results := h.service.FetchForAccounts(r.Context(), reqs)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accounts": results,
	})
}

// ExportTrades runs the same pipeline as FetchTrades but streams the
// classified trades of all accounts as a CSV download.
func (h *TradesHandler) ExportTrades(w http.ResponseWriter, r *http.Request) {
	reqs, ok := h.decodeAccounts(w, r)
	if !ok {
		return
	}

	results := h.service.FetchForAccounts(r.Context(), reqs)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="trades.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{
		"account_index", "trade_id", "market", "market_type", "side",
		"datetime_utc", "trade_value_usd", "size", "price_usd", "fee_usd",
		"role", "trade_type", "pnl_usd", "tx_hash",
	})

	// Preserve the request's account order in the export.
	for _, req := range reqs {
		result, found := results[req.AccountIndex]
		if !found {
			continue
		}
		for _, t := range result.Trades {
			pnl := ""
			if t.PnLUSD != nil {
				pnl = t.PnLUSD.String()
			}
			_ = cw.Write([]string{
				strconv.FormatInt(req.AccountIndex, 10),
				strconv.FormatInt(t.TradeID, 10),
				t.Market,
				string(t.MarketType),
				string(t.Side),
				t.DatetimeUTC,
				t.TradeValueUSD.String(),
				t.Size.String(),
				t.PriceUSD.String(),
				t.FeeUSD.String(),
				string(t.Role),
				t.TradeType,
				pnl,
				t.TxHash,
			})
		}
	}
	cw.Flush()

	if err := cw.Error(); err != nil {
		h.logger.WarnContext(r.Context(), "handler: csv export write failed",
			slog.String("error", err.Error()),
		)
	}
}

// decodeAccounts parses and validates the batch request body shared by
// FetchTrades and ExportTrades.
func (h *TradesHandler) decodeAccounts(w http.ResponseWriter, r *http.Request) ([]trades.AccountRequest, bool) {
	var req fetchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if len(req.Accounts) == 0 {
		writeError(w, http.StatusBadRequest, "no accounts provided")
		return nil, false
	}
	return req.Accounts, true
}
