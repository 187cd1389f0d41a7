package trades

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/metrics"
	"github.com/avolkov/fillscope/internal/platform/lighter"
)

// Pager fetches one page of trade history from the exchange.
type Pager interface {
	Trades(ctx context.Context, q lighter.TradesQuery) (lighter.TradesPage, error)
}

// ProgressFunc is invoked after each successfully retrieved page.
type ProgressFunc func(accountIndex int64, page, fills int)

// RetrieverConfig holds the pagination and pacing parameters. The exchange
// enforces a request-rate ceiling; PagePause is chosen conservatively below
// it, and the throttle path is a safety net for transient ceiling violations
// (clock skew, concurrent callers sharing the credential).
type RetrieverConfig struct {
	PageLimit          int           // fills requested per page
	PagePause          time.Duration // wait between consecutive pages
	ThrottleBackoff    time.Duration // initial wait after an HTTP 429, doubled per retry
	MaxThrottleRetries int           // retry budget per page before giving up
	OnPage             ProgressFunc  // optional progress callback
}

// Retriever drives cursor-based pagination against the trade-history
// endpoint for one account at a time. Pages are strictly sequential: each
// request's cursor comes from the prior response.
type Retriever struct {
	pager  Pager
	cfg    RetrieverConfig
	logger *slog.Logger
}

// NewRetriever creates a Retriever. Zero config fields fall back to the
// exchange defaults (100 fills/page, 3.5s pacing, 15s throttle backoff,
// 5 retries).
func NewRetriever(pager Pager, cfg RetrieverConfig, logger *slog.Logger) *Retriever {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 100
	}
	if cfg.PagePause <= 0 {
		cfg.PagePause = 3500 * time.Millisecond
	}
	if cfg.ThrottleBackoff <= 0 {
		cfg.ThrottleBackoff = 15 * time.Second
	}
	if cfg.MaxThrottleRetries <= 0 {
		cfg.MaxThrottleRetries = 5
	}
	return &Retriever{pager: pager, cfg: cfg, logger: logger}
}

// FetchAll retrieves the account's complete trade history in arrival order.
// Retrieval terminates normally when a page carries no continuation cursor
// or returns zero fills. On error the fills retrieved so far are returned
// alongside it; a throttled page is retried with exponential backoff until
// the retry budget is spent, which surfaces domain.ErrRetryBudget.
func (r *Retriever) FetchAll(ctx context.Context, accountIndex int64, auth string) ([]domain.RawFill, error) {
	var fills []domain.RawFill
	cursor := ""
	pageNum := 0
	throttled := 0

	for {
		pageNum++
		backoff := r.cfg.ThrottleBackoff

		var page lighter.TradesPage
		for {
			var err error
			page, err = r.pager.Trades(ctx, lighter.TradesQuery{
				AccountIndex: accountIndex,
				Limit:        r.cfg.PageLimit,
				Auth:         auth,
				Cursor:       cursor,
			})
			if err == nil {
				break
			}
			if !errors.Is(err, domain.ErrRateLimited) {
				return fills, fmt.Errorf("trades: account %d page %d: %w", accountIndex, pageNum, err)
			}

			throttled++
			if throttled > r.cfg.MaxThrottleRetries {
				return fills, fmt.Errorf("trades: account %d page %d: %w", accountIndex, pageNum, domain.ErrRetryBudget)
			}
			metrics.ThrottleRetries.Inc()
			r.logger.WarnContext(ctx, "trades: throttled, backing off",
				slog.Int64("account_index", accountIndex),
				slog.Int("page", pageNum),
				slog.Duration("backoff", backoff),
				slog.Int("attempt", throttled),
			)
			if werr := wait(ctx, backoff); werr != nil {
				return fills, werr
			}
			// Same page request next time round: the cursor does not advance
			// on a retry.
			backoff *= 2
		}

		throttled = 0
		fills = append(fills, page.Trades...)
		metrics.PagesFetched.Inc()
		if page.Skipped > 0 {
			metrics.FillsSkipped.Add(float64(page.Skipped))
		}

		r.logger.DebugContext(ctx, "trades: page retrieved",
			slog.Int64("account_index", accountIndex),
			slog.Int("page", pageNum),
			slog.Int("fills", len(page.Trades)),
			slog.Int("skipped", page.Skipped),
		)
		if r.cfg.OnPage != nil {
			r.cfg.OnPage(accountIndex, pageNum, len(page.Trades))
		}

		// End of history: no continuation cursor, or an empty page.
		if page.NextCursor == "" || len(page.Trades) == 0 {
			return fills, nil
		}
		cursor = page.NextCursor

		if err := wait(ctx, r.cfg.PagePause); err != nil {
			return fills, err
		}
	}
}

// wait sleeps for d, honouring context cancellation.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
