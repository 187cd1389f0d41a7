package trades

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/metrics"
)

// Fetcher retrieves an account's full trade history. A partial result may
// accompany a non-nil error.
type Fetcher interface {
	FetchAll(ctx context.Context, accountIndex int64, auth string) ([]domain.RawFill, error)
}

// CatalogSource is the market catalog as seen by the pipeline: refreshable,
// and read-only at classification time.
type CatalogSource interface {
	Resolver
	RefreshIfStale(ctx context.Context) error
}

// AccountSource resolves L1 addresses to sub-account indexes.
type AccountSource interface {
	AccountsByL1Address(ctx context.Context, l1Address string) ([]int64, error)
}

// AccountRequest is one account in a batch fetch. When RawFills is non-empty
// the fills are classified directly and no credential is needed; otherwise a
// bearer token is issued from the credentials and the history is retrieved
// from the exchange.
type AccountRequest struct {
	domain.Credentials
	RawFills []json.RawMessage `json:"raw_fills,omitempty"`
}

// Service sequences the ingestion pipeline: catalog refresh, per-account
// retrieval, per-fill classification, and sorting. Accounts are processed
// strictly sequentially because retrieval for each consumes the same
// externally-enforced rate budget.
type Service struct {
	catalog  CatalogSource
	fetcher  Fetcher
	issuer   domain.TokenIssuer
	accounts AccountSource
	logger   *slog.Logger
}

// NewService creates a Service with all pipeline dependencies.
func NewService(catalog CatalogSource, fetcher Fetcher, issuer domain.TokenIssuer, accounts AccountSource, logger *slog.Logger) *Service {
	return &Service{
		catalog:  catalog,
		fetcher:  fetcher,
		issuer:   issuer,
		accounts: accounts,
		logger:   logger,
	}
}

// LookupAccounts validates and checksums an L1 address, then returns it
// together with its registered sub-account indexes.
func (s *Service) LookupAccounts(ctx context.Context, l1Address string) (string, []int64, error) {
	if !common.IsHexAddress(l1Address) {
		return "", nil, fmt.Errorf("trades: %q is not a valid L1 address", l1Address)
	}
	checksummed := common.HexToAddress(l1Address).Hex()

	indexes, err := s.accounts.AccountsByL1Address(ctx, checksummed)
	if err != nil {
		return "", nil, fmt.Errorf("trades: lookup accounts: %w", err)
	}
	return checksummed, indexes, nil
}

// FetchForAccounts runs the pipeline for each requested account and returns
// results keyed by account index. One account's failure never affects
// another's result; a failed account still reports the trades classified
// before the failure.
func (s *Service) FetchForAccounts(ctx context.Context, reqs []AccountRequest) map[int64]domain.AccountResult {
	// One catalog refresh per batch. A failed refresh is not fatal: stale
	// symbols beat no symbols, and unknown ids degrade to synthetic labels.
	if err := s.catalog.RefreshIfStale(ctx); err != nil {
		s.logger.WarnContext(ctx, "trades: catalog refresh failed, using cached symbols",
			slog.String("error", err.Error()),
		)
	}

	results := make(map[int64]domain.AccountResult, len(reqs))
	for _, req := range reqs {
		results[req.AccountIndex] = s.fetchOne(ctx, req)
	}
	return results
}

// fetchOne obtains and classifies fills for a single account.
func (s *Service) fetchOne(ctx context.Context, req AccountRequest) domain.AccountResult {
	var (
		fills    []domain.RawFill
		fetchErr error
	)

	if len(req.RawFills) > 0 {
		fills = s.decodeRawFills(ctx, req)
	} else {
		token, err := s.issuer.IssueToken(req.Credentials)
		if err != nil {
			// Credential failures abort before any page is fetched.
			s.logger.WarnContext(ctx, "trades: token issuance failed",
				slog.Int64("account_index", req.AccountIndex),
				slog.String("error", err.Error()),
			)
			return domain.AccountResult{
				Success: false,
				Trades:  []domain.ClassifiedTrade{},
				Error:   fmt.Sprintf("authentication error: %v", err),
			}
		}

		fills, fetchErr = s.fetcher.FetchAll(ctx, req.AccountIndex, token)
	}

	classified := make([]domain.ClassifiedTrade, 0, len(fills))
	for _, fill := range fills {
		if err := fill.Validate(); err != nil {
			metrics.FillsSkipped.Inc()
			s.logger.DebugContext(ctx, "trades: skipping malformed fill",
				slog.Int64("account_index", req.AccountIndex),
				slog.Int64("trade_id", fill.TradeID),
				slog.String("error", err.Error()),
			)
			continue
		}
		classified = append(classified, Classify(fill, req.AccountIndex, s.catalog))
		metrics.FillsClassified.Inc()
	}

	// Newest first. The datetime format sorts like the timestamp; trade id
	// breaks ties deterministically.
	sort.Slice(classified, func(i, j int) bool {
		if classified[i].DatetimeUTC != classified[j].DatetimeUTC {
			return classified[i].DatetimeUTC > classified[j].DatetimeUTC
		}
		return classified[i].TradeID > classified[j].TradeID
	})

	result := domain.AccountResult{
		Success:     fetchErr == nil,
		TotalTrades: len(classified),
		Trades:      classified,
	}
	if fetchErr != nil {
		result.Error = fetchErr.Error()
	}

	s.logger.InfoContext(ctx, "trades: account processed",
		slog.Int64("account_index", req.AccountIndex),
		slog.Int("trades", len(classified)),
		slog.Bool("success", result.Success),
	)
	return result
}

// decodeRawFills parses a caller-supplied raw fill list, skipping entries
// that do not decode.
func (s *Service) decodeRawFills(ctx context.Context, req AccountRequest) []domain.RawFill {
	fills := make([]domain.RawFill, 0, len(req.RawFills))
	for _, raw := range req.RawFills {
		var fill domain.RawFill
		if err := json.Unmarshal(raw, &fill); err != nil {
			metrics.FillsSkipped.Inc()
			s.logger.DebugContext(ctx, "trades: skipping undecodable fill",
				slog.Int64("account_index", req.AccountIndex),
				slog.String("error", err.Error()),
			)
			continue
		}
		fills = append(fills, fill)
	}
	return fills
}
