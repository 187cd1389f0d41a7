package domain

// MarketClass distinguishes perpetual from spot order books.
type MarketClass string

const (
	MarketClassPerp MarketClass = "Perp"
	MarketClassSpot MarketClass = "Spot"
)

// SpotMarketIDFloor is the first market id assigned to spot order books.
// Identifiers at or above this threshold always classify as spot, whether or
// not the catalog knows the symbol.
const SpotMarketIDFloor = 2048

// ClassForMarketID classifies a market by its numeric id alone.
func ClassForMarketID(marketID int64) MarketClass {
	if marketID >= SpotMarketIDFloor {
		return MarketClassSpot
	}
	return MarketClassPerp
}

// MarketEntry is one resolved market from the exchange listing.
type MarketEntry struct {
	MarketID int64
	Symbol   string
	Class    MarketClass
}
