// Package trades implements the trade-ingestion pipeline: paginated
// retrieval of raw fills, position-state classification, and per-account
// batch orchestration.
package trades

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avolkov/fillscope/internal/domain"
)

// Resolver maps a numeric market id to its display symbol and class.
type Resolver interface {
	Resolve(marketID int64) (string, domain.MarketClass)
}

// datetimeLayout is the display format for fill timestamps. It sorts
// lexicographically in timestamp order.
const datetimeLayout = "2006-01-02 15:04:05"

// Classify derives the display-ready trade record for one raw fill as seen
// by the given account. It is pure: the only external state consulted is the
// read-only market resolver.
func Classify(fill domain.RawFill, accountIndex int64, markets Resolver) domain.ClassifiedTrade {
	// The exchange orients the match around the maker: when is_maker_ask is
	// unset the bid side took, when set the ask side took. The taker_* and
	// maker_* snapshots follow the same orientation.
	isTaker := (fill.BidAccountID == accountIndex && !fill.IsMakerAsk) ||
		(fill.AskAccountID == accountIndex && fill.IsMakerAsk)
	isBuyer := fill.BidAccountID == accountIndex

	role := domain.RoleMaker
	feeBP := fill.MakerFee
	positionBefore := fill.MakerPositionSizeBefore
	entryQuoteBefore := fill.MakerEntryQuoteBefore
	signChanged := fill.MakerPositionSignChanged
	if isTaker {
		role = domain.RoleTaker
		feeBP = fill.TakerFee
		positionBefore = fill.TakerPositionSizeBefore
		entryQuoteBefore = fill.TakerEntryQuoteBefore
		signChanged = fill.TakerPositionSignChanged
	}

	side, reducing := classifySide(fill.Size, positionBefore, signChanged, isBuyer)

	// Fee rate arrives in micro-basis-points: rate = fee_bp / 1_000_000.
	feeRate := decimal.New(feeBP, -6)
	fee := fill.Price.Mul(fill.Size).Mul(feeRate)

	var pnl *decimal.Decimal
	if reducing {
		if p, ok := realizedPnL(fill.Price, fill.Size, positionBefore, entryQuoteBefore); ok {
			rounded := p.Round(4)
			pnl = &rounded
		}
	}

	symbol, class := markets.Resolve(fill.MarketID)

	return domain.ClassifiedTrade{
		TradeID:       fill.TradeID,
		TxHash:        fill.TxHash,
		Market:        symbol,
		MarketType:    class,
		Side:          side,
		DatetimeUTC:   time.UnixMilli(fill.Timestamp).UTC().Format(datetimeLayout) + " UTC",
		TradeValueUSD: fill.USDAmount.Round(2),
		Size:          fill.Size,
		PriceUSD:      fill.Price.Round(6),
		FeeUSD:        fee.Round(6),
		Role:          role,
		TradeType:     tradeType(fill.Type),
		PnLUSD:        pnl,
	}
}

// classifySide maps the account's pre-fill position state and the fill
// direction to a side label. reducing reports whether the fill reduced
// existing exposure (including full closes and flips), which gates the PnL
// computation.
func classifySide(size, positionBefore decimal.Decimal, signChanged, isBuyer bool) (domain.SideLabel, bool) {
	wasLong := positionBefore.Sign() > 0
	wasShort := positionBefore.Sign() < 0
	hadPosition := wasLong || wasShort

	switch {
	case signChanged && hadPosition:
		// The fill crossed through zero: either a full close or, when the
		// incoming size exceeds the prior position, a flip into the opposite
		// direction.
		if size.GreaterThan(positionBefore.Abs()) {
			if isBuyer {
				return domain.SideShortToLong, true
			}
			return domain.SideLongToShort, true
		}
		if isBuyer {
			return domain.SideCloseShort, true
		}
		return domain.SideCloseLong, true

	case hadPosition:
		reducing := (wasLong && !isBuyer) || (wasShort && isBuyer)
		switch {
		case reducing && wasLong:
			return domain.SideReduceLong, true
		case reducing:
			return domain.SideReduceShort, true
		case wasLong:
			return domain.SideIncreaseLong, false
		default:
			return domain.SideIncreaseShort, false
		}

	default:
		if isBuyer {
			return domain.SideOpenLong, false
		}
		return domain.SideOpenShort, false
	}
}

// realizedPnL estimates the PnL realized by a reducing fill from the
// exchange's own before-snapshot. The contribution is capped at the portion
// of the fill that closes existing exposure; the remainder of a flip opens
// new exposure with no realized PnL attributed here. It reports ok=false
// when the snapshot lacks a usable cost basis.
func realizedPnL(price, size, positionBefore, entryQuoteBefore decimal.Decimal) (decimal.Decimal, bool) {
	if positionBefore.IsZero() || entryQuoteBefore.IsZero() {
		return decimal.Decimal{}, false
	}

	entryPrice := entryQuoteBefore.Abs().Div(positionBefore.Abs())
	closedSize := decimal.Min(size, positionBefore.Abs())

	if positionBefore.Sign() > 0 {
		return price.Sub(entryPrice).Mul(closedSize), true
	}
	return entryPrice.Sub(price).Mul(closedSize), true
}

// tradeType normalizes the exchange-supplied fill type for display.
func tradeType(t string) string {
	if t == "" {
		return "trade"
	}
	return t
}
