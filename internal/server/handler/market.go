package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/avolkov/fillscope/internal/domain"
)

// Catalog is the market catalog surface the handler needs.
type Catalog interface {
	RefreshIfStale(ctx context.Context) error
	Snapshot() map[int64]domain.MarketEntry
}

// MarketHandler serves the cached market listing.
type MarketHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(catalog Catalog, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{catalog: catalog, logger: logger}
}

// marketView is one listing entry in the response.
type marketView struct {
	MarketID int64              `json:"market_id"`
	Symbol   string             `json:"symbol"`
	Class    domain.MarketClass `json:"class"`
}

// ListMarkets returns the catalog contents, refreshing first when stale. A
// failed refresh still serves the cached snapshot.
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.RefreshIfStale(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "handler: market refresh failed",
			slog.String("error", err.Error()),
		)
	}

	snapshot := h.catalog.Snapshot()
	markets := make([]marketView, 0, len(snapshot))
	for _, e := range snapshot {
		markets = append(markets, marketView{
			MarketID: e.MarketID,
			Symbol:   e.Symbol,
			Class:    e.Class,
		})
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].MarketID < markets[j].MarketID })

	writeJSON(w, http.StatusOK, map[string]any{"markets": markets})
}
