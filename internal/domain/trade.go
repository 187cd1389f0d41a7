package domain

import "github.com/shopspring/decimal"

// SideLabel is the position-state transition a fill produced for the
// querying account.
type SideLabel string

const (
	SideOpenLong      SideLabel = "Open Long"
	SideOpenShort     SideLabel = "Open Short"
	SideIncreaseLong  SideLabel = "Increase Long"
	SideIncreaseShort SideLabel = "Increase Short"
	SideReduceLong    SideLabel = "Reduce Long"
	SideReduceShort   SideLabel = "Reduce Short"
	SideCloseLong     SideLabel = "Close Long"
	SideCloseShort    SideLabel = "Close Short"
	SideShortToLong   SideLabel = "Short → Long"
	SideLongToShort   SideLabel = "Long → Short"
)

// Role identifies which side of the match the querying account supplied.
type Role string

const (
	RoleMaker Role = "Maker"
	RoleTaker Role = "Taker"
)

// ClassifiedTrade is the display-ready record derived from one RawFill plus
// the market catalog. PnL is nil unless the fill reduced an existing position
// and the exchange supplied a usable cost-basis snapshot.
type ClassifiedTrade struct {
	TradeID       int64            `json:"trade_id"`
	TxHash        string           `json:"tx_hash,omitempty"`
	Market        string           `json:"market"`
	MarketType    MarketClass      `json:"market_type"`
	Side          SideLabel        `json:"side"`
	DatetimeUTC   string           `json:"datetime_utc"`
	TradeValueUSD decimal.Decimal  `json:"trade_value_usd"`
	Size          decimal.Decimal  `json:"size"`
	PriceUSD      decimal.Decimal  `json:"price_usd"`
	FeeUSD        decimal.Decimal  `json:"fee_usd"`
	Role          Role             `json:"role"`
	TradeType     string           `json:"trade_type"`
	PnLUSD        *decimal.Decimal `json:"pnl_usd,omitempty"`
}

// AccountResult is the per-account outcome of a batch fetch. A failed account
// still reports the trades retrieved before the failure.
type AccountResult struct {
	Success     bool              `json:"success"`
	TotalTrades int               `json:"total_trades"`
	Trades      []ClassifiedTrade `json:"trades"`
	Error       string            `json:"error,omitempty"`
}
