package market

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/fillscope/internal/domain"
)

// fakeLister serves a fixed listing and counts calls; err, when set, fails
// every fetch.
type fakeLister struct {
	perps []domain.MarketEntry
	spots []domain.MarketEntry
	err   error
	calls int
}

func (l *fakeLister) OrderBookDetails(context.Context) (perps, spots []domain.MarketEntry, err error) {
	l.calls++
	if l.err != nil {
		return nil, nil, l.err
	}
	return l.perps, l.spots, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func defaultListing() *fakeLister {
	return &fakeLister{
		perps: []domain.MarketEntry{
			{MarketID: 0, Symbol: "ETH", Class: domain.MarketClassPerp},
			{MarketID: 1, Symbol: "BTC", Class: domain.MarketClassPerp},
		},
		spots: []domain.MarketEntry{
			{MarketID: 2048, Symbol: "SOL/USDC", Class: domain.MarketClassSpot},
		},
	}
}

func TestRefreshIfStaleCachesWithinTTL(t *testing.T) {
	lister := defaultListing()
	catalog := NewCatalog(lister, time.Hour, testLogger())

	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	assert.Equal(t, 1, lister.calls, "fresh snapshot must not refetch")
}

func TestRefreshIfStaleRefetchesAfterTTL(t *testing.T) {
	lister := defaultListing()
	catalog := NewCatalog(lister, time.Millisecond, testLogger())

	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	assert.Equal(t, 2, lister.calls)
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	lister := defaultListing()
	catalog := NewCatalog(lister, time.Millisecond, testLogger())

	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	time.Sleep(5 * time.Millisecond)

	lister.err = errors.New("listing unavailable")
	err := catalog.RefreshIfStale(context.Background())
	require.Error(t, err)

	// Stale beats empty: the previous snapshot still resolves.
	symbol, class := catalog.Resolve(0)
	assert.Equal(t, "ETH", symbol)
	assert.Equal(t, domain.MarketClassPerp, class)

	// The refresh timestamp was not advanced, so the next call retries
	// immediately.
	lister.err = nil
	require.NoError(t, catalog.RefreshIfStale(context.Background()))
	assert.Equal(t, 3, lister.calls)
}

func TestRefreshRejectsEmptyListing(t *testing.T) {
	lister := &fakeLister{}
	catalog := NewCatalog(lister, time.Hour, testLogger())

	err := catalog.RefreshIfStale(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyListing)
}

func TestResolve(t *testing.T) {
	catalog := NewCatalog(defaultListing(), time.Hour, testLogger())
	require.NoError(t, catalog.RefreshIfStale(context.Background()))

	tests := []struct {
		name       string
		marketID   int64
		wantSymbol string
		wantClass  domain.MarketClass
	}{
		{"known perp", 1, "BTC", domain.MarketClassPerp},
		{"spot symbol keeps base asset only", 2048, "SOL", domain.MarketClassSpot},
		{"unknown perp id", 9, "ID:9", domain.MarketClassPerp},
		{"unknown spot id", 3000, "ID:3000", domain.MarketClassSpot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbol, class := catalog.Resolve(tt.marketID)
			assert.Equal(t, tt.wantSymbol, symbol)
			assert.Equal(t, tt.wantClass, class)
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	catalog := NewCatalog(defaultListing(), time.Hour, testLogger())
	require.NoError(t, catalog.RefreshIfStale(context.Background()))

	snap := catalog.Snapshot()
	require.Len(t, snap, 3)

	delete(snap, 0)
	symbol, _ := catalog.Resolve(0)
	assert.Equal(t, "ETH", symbol, "mutating the snapshot must not touch the catalog")
}
