// Package lighter implements the REST client for the Lighter exchange API.
package lighter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avolkov/fillscope/internal/domain"
)

// Client is the REST client for the Lighter public and authenticated
// endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Lighter REST client.
//
// baseURL is the API root, e.g. "https://mainnet.zklighter.elliot.ai".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// OrderBookDetails returns the current market listing: perpetual and spot
// books as separate entry slices, each carrying the numeric market id and
// its symbol.
func (c *Client) OrderBookDetails(ctx context.Context) (perps, spots []domain.MarketEntry, err error) {
	body, err := c.doGet(ctx, "/api/v1/orderBookDetails")
	if err != nil {
		return nil, nil, fmt.Errorf("lighter: get order book details: %w", err)
	}

	var resp listingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("lighter: decode order book details: %w", err)
	}
	if resp.Code != apiStatusOK {
		return nil, nil, fmt.Errorf("lighter: order book details: code %d: %w", resp.Code, domain.ErrAPIStatus)
	}

	perps = make([]domain.MarketEntry, 0, len(resp.OrderBookDetails))
	for _, b := range resp.OrderBookDetails {
		perps = append(perps, domain.MarketEntry{
			MarketID: b.MarketID,
			Symbol:   b.Symbol,
			Class:    domain.MarketClassPerp,
		})
	}
	spots = make([]domain.MarketEntry, 0, len(resp.SpotBookDetails))
	for _, b := range resp.SpotBookDetails {
		spots = append(spots, domain.MarketEntry{
			MarketID: b.MarketID,
			Symbol:   b.Symbol,
			Class:    domain.MarketClassSpot,
		})
	}

	return perps, spots, nil
}

// AccountsByL1Address returns the sub-account indexes registered for an L1
// address. It returns domain.ErrNotFound when the address has none.
func (c *Client) AccountsByL1Address(ctx context.Context, l1Address string) ([]int64, error) {
	params := url.Values{}
	params.Set("l1_address", l1Address)

	body, err := c.doGet(ctx, "/api/v1/accountsByL1Address?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("lighter: get accounts for %s: %w", l1Address, err)
	}

	var resp accountsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("lighter: decode accounts: %w", err)
	}
	if resp.Code != apiStatusOK {
		return nil, fmt.Errorf("lighter: accounts for %s: code %d: %w", l1Address, resp.Code, domain.ErrAPIStatus)
	}

	if len(resp.SubAccounts) == 0 {
		return nil, fmt.Errorf("lighter: accounts for %s: %w", l1Address, domain.ErrNotFound)
	}

	indexes := make([]int64, 0, len(resp.SubAccounts))
	for _, acc := range resp.SubAccounts {
		indexes = append(indexes, acc.Index)
	}
	return indexes, nil
}

// Trades fetches one page of an account's trade history, sorted by
// timestamp. Individual records that fail to decode are dropped and counted
// in TradesPage.Skipped; a throttled request surfaces domain.ErrRateLimited.
func (c *Client) Trades(ctx context.Context, q TradesQuery) (TradesPage, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(q.AccountIndex, 10))
	params.Set("sort_by", "timestamp")
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("auth", q.Auth)
	if q.Cursor != "" {
		params.Set("cursor", q.Cursor)
	}

	body, err := c.doGet(ctx, "/api/v1/trades?"+params.Encode())
	if err != nil {
		return TradesPage{}, fmt.Errorf("lighter: get trades account %d: %w", q.AccountIndex, err)
	}

	var resp struct {
		Code       int               `json:"code"`
		Trades     []json.RawMessage `json:"trades"`
		NextCursor string            `json:"next_cursor"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return TradesPage{}, fmt.Errorf("lighter: decode trades page: %w", err)
	}
	if resp.Code != apiStatusOK {
		return TradesPage{}, fmt.Errorf("lighter: trades account %d: code %d: %w", q.AccountIndex, resp.Code, domain.ErrAPIStatus)
	}

	page := TradesPage{
		Trades:     make([]domain.RawFill, 0, len(resp.Trades)),
		NextCursor: resp.NextCursor,
	}
	for _, raw := range resp.Trades {
		var fill domain.RawFill
		if err := json.Unmarshal(raw, &fill); err != nil {
			page.Skipped++
			continue
		}
		page.Trades = append(page.Trades, fill)
	}

	return page, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a GET request and returns the response body. Non-2xx statuses
// are mapped to errors by checkStatus.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkStatus maps non-2xx HTTP status codes to appropriate errors. 429 is
// surfaced as domain.ErrRateLimited so callers can distinguish throttling
// from fatal transport failures.
func checkStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &apiErr)

	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("HTTP 429: %w", domain.ErrRateLimited)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("HTTP %d: %s: %w", statusCode, apiErr.Message, domain.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("HTTP 404: %s: %w", apiErr.Message, domain.ErrNotFound)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, apiErr.Message)
	}
}
