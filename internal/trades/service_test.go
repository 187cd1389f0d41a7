package trades

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avolkov/fillscope/internal/domain"
)

type fakeCatalog struct {
	stubResolver
	refreshErr error
	refreshes  int
}

func (c *fakeCatalog) RefreshIfStale(context.Context) error {
	c.refreshes++
	return c.refreshErr
}

// fakeFetcher returns per-account fills and errors.
type fakeFetcher struct {
	fills map[int64][]domain.RawFill
	errs  map[int64]error
	auths []string
}

func (f *fakeFetcher) FetchAll(_ context.Context, accountIndex int64, auth string) ([]domain.RawFill, error) {
	f.auths = append(f.auths, auth)
	return f.fills[accountIndex], f.errs[accountIndex]
}

type fakeIssuer struct {
	err    error
	issued int
}

func (i *fakeIssuer) IssueToken(domain.Credentials) (string, error) {
	i.issued++
	if i.err != nil {
		return "", i.err
	}
	return "token", nil
}

type fakeAccounts struct {
	indexes []int64
	err     error
	queried string
}

func (a *fakeAccounts) AccountsByL1Address(_ context.Context, l1Address string) ([]int64, error) {
	a.queried = l1Address
	return a.indexes, a.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(catalog *fakeCatalog, fetcher *fakeFetcher, issuer *fakeIssuer, accounts *fakeAccounts) *Service {
	if catalog == nil {
		catalog = &fakeCatalog{stubResolver: stubResolver{}}
	}
	if fetcher == nil {
		fetcher = &fakeFetcher{}
	}
	if issuer == nil {
		issuer = &fakeIssuer{}
	}
	if accounts == nil {
		accounts = &fakeAccounts{}
	}
	return NewService(catalog, fetcher, issuer, accounts, testLogger())
}

func validFill(tradeID, ts int64) domain.RawFill {
	f := baseFill()
	f.TradeID = tradeID
	f.Timestamp = ts
	return f
}

func TestLookupAccounts(t *testing.T) {
	accounts := &fakeAccounts{indexes: []int64{3, 7}}
	svc := newTestService(nil, nil, nil, accounts)

	address, indexes, err := svc.LookupAccounts(context.Background(), "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed")
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", address)
	assert.Equal(t, address, accounts.queried, "lookup queries the checksummed form")
	assert.Equal(t, []int64{3, 7}, indexes)
}

func TestLookupAccountsRejectsInvalidAddress(t *testing.T) {
	svc := newTestService(nil, nil, nil, nil)

	_, _, err := svc.LookupAccounts(context.Background(), "not-an-address")
	require.Error(t, err)
}

func TestLookupAccountsPropagatesNotFound(t *testing.T) {
	accounts := &fakeAccounts{err: domain.ErrNotFound}
	svc := newTestService(nil, nil, nil, accounts)

	_, _, err := svc.LookupAccounts(context.Background(), "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchForAccountsIsolatesFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		fills: map[int64][]domain.RawFill{
			7: {validFill(1, 1000)},
			8: {validFill(2, 2000)},
		},
		errs: map[int64]error{8: domain.ErrRetryBudget},
	}
	catalog := &fakeCatalog{stubResolver: stubResolver{}}
	svc := newTestService(catalog, fetcher, nil, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{Credentials: domain.Credentials{AccountIndex: 7, PrivateKey: "aa"}},
		{Credentials: domain.Credentials{AccountIndex: 8, PrivateKey: "bb"}},
	})

	require.Len(t, results, 2)
	assert.True(t, results[7].Success)
	assert.Equal(t, 1, results[7].TotalTrades)

	// The failed account still reports the trades classified before the
	// failure.
	assert.False(t, results[8].Success)
	assert.Equal(t, 1, results[8].TotalTrades)
	assert.Contains(t, results[8].Error, domain.ErrRetryBudget.Error())

	assert.Equal(t, 1, catalog.refreshes, "one catalog refresh per batch")
}

func TestFetchForAccountsSurvivesCatalogRefreshFailure(t *testing.T) {
	fetcher := &fakeFetcher{fills: map[int64][]domain.RawFill{7: {validFill(1, 1000)}}}
	catalog := &fakeCatalog{
		stubResolver: stubResolver{1: "ETH"},
		refreshErr:   errors.New("listing unavailable"),
	}
	svc := newTestService(catalog, fetcher, nil, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{Credentials: domain.Credentials{AccountIndex: 7, PrivateKey: "aa"}},
	})

	require.True(t, results[7].Success)
	require.Equal(t, 1, results[7].TotalTrades)
	assert.Equal(t, "ETH", results[7].Trades[0].Market, "cached symbols still resolve")
}

func TestFetchForAccountsSkipsMalformedFills(t *testing.T) {
	bad := validFill(0, 1000) // missing trade id
	fetcher := &fakeFetcher{fills: map[int64][]domain.RawFill{
		7: {validFill(1, 1000), bad, validFill(2, 2000)},
	}}
	svc := newTestService(nil, fetcher, nil, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{Credentials: domain.Credentials{AccountIndex: 7, PrivateKey: "aa"}},
	})

	require.True(t, results[7].Success)
	assert.Equal(t, 2, results[7].TotalTrades)
}

func TestFetchForAccountsSortsNewestFirst(t *testing.T) {
	// Same timestamp for 4 and 5: the higher trade id wins the tie.
	fetcher := &fakeFetcher{fills: map[int64][]domain.RawFill{
		7: {validFill(4, 5000), validFill(9, 1000), validFill(5, 5000)},
	}}
	svc := newTestService(nil, fetcher, nil, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{Credentials: domain.Credentials{AccountIndex: 7, PrivateKey: "aa"}},
	})

	trades := results[7].Trades
	require.Len(t, trades, 3)
	assert.Equal(t, int64(5), trades[0].TradeID)
	assert.Equal(t, int64(4), trades[1].TradeID)
	assert.Equal(t, int64(9), trades[2].TradeID)
}

func TestFetchForAccountsCredentialFailure(t *testing.T) {
	issuer := &fakeIssuer{err: domain.ErrBadCredential}
	fetcher := &fakeFetcher{}
	svc := newTestService(nil, fetcher, issuer, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{Credentials: domain.Credentials{AccountIndex: 7, PrivateKey: "zz"}},
	})

	result := results[7]
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "authentication error")
	assert.NotNil(t, result.Trades)
	assert.Empty(t, fetcher.auths, "no retrieval is attempted without a token")
}

func TestFetchForAccountsRawFillsBypassRetrieval(t *testing.T) {
	fill := validFill(11, 3000)
	raw, err := json.Marshal(fill)
	require.NoError(t, err)

	issuer := &fakeIssuer{}
	fetcher := &fakeFetcher{}
	svc := newTestService(nil, fetcher, issuer, nil)

	results := svc.FetchForAccounts(context.Background(), []AccountRequest{
		{
			Credentials: domain.Credentials{AccountIndex: 7},
			RawFills:    []json.RawMessage{raw, json.RawMessage(`{"trade_id": "bogus"}`)},
		},
	})

	result := results[7]
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TotalTrades, "undecodable raw fill is skipped")
	assert.Equal(t, 0, issuer.issued)
	assert.Empty(t, fetcher.auths)
}
