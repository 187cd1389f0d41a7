package trades

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
	"github.com/avolkov/fillscope/internal/platform/lighter"
)

// scriptPager returns one scripted response per call and records the queries
// it received.
type scriptPager struct {
	responses []func() (lighter.TradesPage, error)
	queries   []lighter.TradesQuery
}

func (p *scriptPager) Trades(_ context.Context, q lighter.TradesQuery) (lighter.TradesPage, error) {
	p.queries = append(p.queries, q)
	if len(p.responses) == 0 {
		return lighter.TradesPage{}, errors.New("no scripted response")
	}
	next := p.responses[0]
	p.responses = p.responses[1:]
	return next()
}

func pageOf(nextCursor string, tradeIDs ...int64) func() (lighter.TradesPage, error) {
	return func() (lighter.TradesPage, error) {
		page := lighter.TradesPage{NextCursor: nextCursor}
		for _, id := range tradeIDs {
			page.Trades = append(page.Trades, domain.RawFill{TradeID: id})
		}
		return page, nil
	}
}

func pageErr(err error) func() (lighter.TradesPage, error) {
	return func() (lighter.TradesPage, error) { return lighter.TradesPage{}, err }
}

func fastRetriever(pager Pager, maxRetries int, onPage ProgressFunc) *Retriever {
	return NewRetriever(pager, RetrieverConfig{
		PageLimit:          2,
		PagePause:          time.Millisecond,
		ThrottleBackoff:    time.Millisecond,
		MaxThrottleRetries: maxRetries,
		OnPage:             onPage,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchAllFollowsCursors(t *testing.T) {
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1, 2),
		pageOf("c2", 3, 4),
		pageOf("", 5),
	}}

	fills, err := fastRetriever(pager, 5, nil).FetchAll(context.Background(), 7, "token")
	require.NoError(t, err)
	require.Len(t, fills, 5)

	require.Len(t, pager.queries, 3)
	assert.Equal(t, "", pager.queries[0].Cursor)
	assert.Equal(t, "c1", pager.queries[1].Cursor)
	assert.Equal(t, "c2", pager.queries[2].Cursor)
	for _, q := range pager.queries {
		assert.Equal(t, int64(7), q.AccountIndex)
		assert.Equal(t, 2, q.Limit)
		assert.Equal(t, "token", q.Auth)
	}
}

func TestFetchAllStopsOnEmptyPage(t *testing.T) {
	// A page with a cursor but no fills still terminates retrieval.
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1),
		pageOf("c2"),
	}}

	fills, err := fastRetriever(pager, 5, nil).FetchAll(context.Background(), 7, "token")
	require.NoError(t, err)
	assert.Len(t, fills, 1)
	assert.Len(t, pager.queries, 2)
}

func TestFetchAllRetriesThrottledPage(t *testing.T) {
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1),
		pageErr(domain.ErrRateLimited),
		pageErr(domain.ErrRateLimited),
		pageOf("", 2),
	}}

	fills, err := fastRetriever(pager, 5, nil).FetchAll(context.Background(), 7, "token")
	require.NoError(t, err)
	assert.Len(t, fills, 2)

	// The retried requests re-send the same cursor.
	require.Len(t, pager.queries, 4)
	assert.Equal(t, "c1", pager.queries[1].Cursor)
	assert.Equal(t, "c1", pager.queries[2].Cursor)
	assert.Equal(t, "c1", pager.queries[3].Cursor)
}

func TestFetchAllRetryBudgetExhausted(t *testing.T) {
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1, 2),
		pageErr(domain.ErrRateLimited),
		pageErr(domain.ErrRateLimited),
		pageErr(domain.ErrRateLimited),
	}}

	fills, err := fastRetriever(pager, 2, nil).FetchAll(context.Background(), 7, "token")
	require.ErrorIs(t, err, domain.ErrRetryBudget)
	// Fills from pages retrieved before the failure are preserved.
	assert.Len(t, fills, 2)
	// First page + budget(2) retries + the attempt that spent the budget.
	assert.Len(t, pager.queries, 4)
}

func TestFetchAllBudgetResetsPerPage(t *testing.T) {
	// One throttle per page never exhausts a budget of 2.
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageErr(domain.ErrRateLimited),
		pageOf("c1", 1),
		pageErr(domain.ErrRateLimited),
		pageOf("c2", 2),
		pageErr(domain.ErrRateLimited),
		pageOf("", 3),
	}}

	fills, err := fastRetriever(pager, 2, nil).FetchAll(context.Background(), 7, "token")
	require.NoError(t, err)
	assert.Len(t, fills, 3)
}

func TestFetchAllReturnsPartialOnFatalError(t *testing.T) {
	fatal := errors.New("boom")
	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1),
		pageErr(fatal),
	}}

	fills, err := fastRetriever(pager, 5, nil).FetchAll(context.Background(), 7, "token")
	require.ErrorIs(t, err, fatal)
	assert.Len(t, fills, 1)
}

func TestFetchAllReportsProgress(t *testing.T) {
	type event struct {
		account     int64
		page, fills int
	}
	var events []event

	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		pageOf("c1", 1, 2),
		pageOf("", 3),
	}}

	onPage := func(accountIndex int64, page, fills int) {
		events = append(events, event{accountIndex, page, fills})
	}

	_, err := fastRetriever(pager, 5, onPage).FetchAll(context.Background(), 7, "token")
	require.NoError(t, err)
	assert.Equal(t, []event{{7, 1, 2}, {7, 2, 1}}, events)
}

func TestFetchAllHonoursContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	pager := &scriptPager{responses: []func() (lighter.TradesPage, error){
		func() (lighter.TradesPage, error) {
			cancel()
			return lighter.TradesPage{
				Trades:     []domain.RawFill{{TradeID: 1}},
				NextCursor: "c1",
			}, nil
		},
	}}

	fills, err := fastRetriever(pager, 5, nil).FetchAll(ctx, 7, "token")
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, fills, 1)
}
