package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RawFill is one matched trade execution as reported by the Lighter
// trade-history API. Monetary fields arrive as JSON strings and are decoded
// into decimals at the boundary. The taker_* / maker_* position snapshots
// describe each side's net position immediately before this fill, per the
// exchange's own accounting.
type RawFill struct {
	TradeID   int64           `json:"trade_id"`
	MarketID  int64           `json:"market_id"`
	Price     decimal.Decimal `json:"price"`
	Size      decimal.Decimal `json:"size"`
	USDAmount decimal.Decimal `json:"usd_amount"`
	Timestamp int64           `json:"timestamp"` // milliseconds since epoch, UTC

	BidAccountID int64 `json:"bid_account_id"`
	AskAccountID int64 `json:"ask_account_id"`
	IsMakerAsk   bool  `json:"is_maker_ask"`

	// Fee rates in micro-basis-points: rate = fee / 1_000_000.
	TakerFee int64 `json:"taker_fee"`
	MakerFee int64 `json:"maker_fee"`

	TakerPositionSizeBefore  decimal.Decimal `json:"taker_position_size_before"`
	MakerPositionSizeBefore  decimal.Decimal `json:"maker_position_size_before"`
	TakerEntryQuoteBefore    decimal.Decimal `json:"taker_entry_quote_before"`
	MakerEntryQuoteBefore    decimal.Decimal `json:"maker_entry_quote_before"`
	TakerPositionSignChanged bool            `json:"taker_position_sign_changed"`
	MakerPositionSignChanged bool            `json:"maker_position_sign_changed"`

	Type   string `json:"type"`
	TxHash string `json:"tx_hash,omitempty"`
}

// Validate checks the fields the classifier cannot work without. A fill that
// fails validation is skipped by the pipeline rather than aborting the batch.
func (f *RawFill) Validate() error {
	if f.TradeID <= 0 {
		return fmt.Errorf("%w: missing trade_id", ErrMalformedFill)
	}
	if f.MarketID < 0 {
		return fmt.Errorf("%w: negative market_id %d", ErrMalformedFill, f.MarketID)
	}
	if f.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedFill)
	}
	if f.Price.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive price", ErrMalformedFill)
	}
	if f.Size.Sign() < 0 {
		return fmt.Errorf("%w: negative size", ErrMalformedFill)
	}
	return nil
}
