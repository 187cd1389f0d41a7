// Package market maintains the TTL-cached mapping from numeric market
// identifiers to human-readable symbols.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/metrics"
)

// DefaultTTL is how long a catalog snapshot is considered fresh.
const DefaultTTL = time.Hour

// Lister fetches the current market listing from the exchange: perpetual and
// spot books as separate entry slices.
type Lister interface {
	OrderBookDetails(ctx context.Context) (perps, spots []domain.MarketEntry, err error)
}

// Catalog is a process-lifetime cache of market metadata. It is lazily
// populated on first use and refreshed wholesale once the TTL elapses. A
// failed or empty refresh keeps the previous snapshot; stale-but-present
// beats empty.
type Catalog struct {
	lister Lister
	ttl    time.Duration
	logger *slog.Logger

	mu            sync.RWMutex
	entries       map[int64]domain.MarketEntry
	lastRefreshed time.Time
}

// NewCatalog creates a Catalog backed by the given listing source. A
// non-positive ttl falls back to DefaultTTL.
func NewCatalog(lister Lister, ttl time.Duration, logger *slog.Logger) *Catalog {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Catalog{
		lister:  lister,
		ttl:     ttl,
		logger:  logger,
		entries: make(map[int64]domain.MarketEntry),
	}
}

// RefreshIfStale fetches the listing and atomically replaces the mapping when
// the cached snapshot is older than the TTL (or was never populated). On any
// fetch failure, or on an empty listing, the existing mapping and refresh
// timestamp are left untouched so the next call retries immediately.
func (c *Catalog) RefreshIfStale(ctx context.Context) error {
	c.mu.RLock()
	fresh := len(c.entries) > 0 && time.Since(c.lastRefreshed) < c.ttl
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	perps, spots, err := c.lister.OrderBookDetails(ctx)
	if err != nil {
		return fmt.Errorf("market: refresh listing: %w", err)
	}
	if len(perps) == 0 && len(spots) == 0 {
		return fmt.Errorf("market: refresh listing: %w", domain.ErrEmptyListing)
	}

	next := make(map[int64]domain.MarketEntry, len(perps)+len(spots))
	for _, e := range perps {
		next[e.MarketID] = e
	}
	for _, e := range spots {
		next[e.MarketID] = e
	}

	c.mu.Lock()
	c.entries = next
	c.lastRefreshed = time.Now()
	c.mu.Unlock()

	metrics.CatalogRefreshes.Inc()
	c.logger.InfoContext(ctx, "market: catalog refreshed",
		slog.Int("perp_markets", len(perps)),
		slog.Int("spot_markets", len(spots)),
	)
	return nil
}

// Resolve returns the display symbol and market class for a market id. An
// unknown id yields the synthetic label "ID:<id>"; the class is derived from
// the numeric threshold alone, so it never depends on lookup success.
func (c *Catalog) Resolve(marketID int64) (string, domain.MarketClass) {
	class := domain.ClassForMarketID(marketID)

	c.mu.RLock()
	entry, ok := c.entries[marketID]
	c.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("ID:%d", marketID), class
	}

	symbol := entry.Symbol
	// Spot symbols may arrive in "BASE/QUOTE" compound form; only the base
	// asset is shown.
	if entry.Class == domain.MarketClassSpot {
		if base, _, found := strings.Cut(symbol, "/"); found {
			symbol = base
		}
	}
	return symbol, class
}

// Snapshot returns a copy of the current mapping, for the markets endpoint.
func (c *Catalog) Snapshot() map[int64]domain.MarketEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[int64]domain.MarketEntry, len(c.entries))
	for id, e := range c.entries {
		out[id] = e
	}
	return out
}
