package lighter

import "github.com/avolkov/fillscope/internal/domain"

// apiStatusOK is the application-level success code carried inside HTTP 200
// responses. Anything else signals an API error even when the transport
// status is 200.
const apiStatusOK = 200

// bookDetail is one order book entry from the listing endpoint.
type bookDetail struct {
	MarketID int64  `json:"market_id"`
	Symbol   string `json:"symbol"`
}

// listingResponse is the body of GET /api/v1/orderBookDetails. Perpetual and
// spot books arrive in separate arrays.
type listingResponse struct {
	Code             int          `json:"code"`
	OrderBookDetails []bookDetail `json:"order_book_details"`
	SpotBookDetails  []bookDetail `json:"spot_order_book_details"`
}

// accountsResponse is the body of GET /api/v1/accountsByL1Address.
type accountsResponse struct {
	Code        int `json:"code"`
	SubAccounts []struct {
		Index int64 `json:"index"`
	} `json:"sub_accounts"`
}

// TradesPage is one decoded page of trade history. Skipped counts records
// that could not be decoded into a RawFill; the rest of the page is kept.
type TradesPage struct {
	Trades     []domain.RawFill
	NextCursor string
	Skipped    int
}

// TradesQuery carries the parameters of one trade-history page request.
// Cursor is empty on the first page.
type TradesQuery struct {
	AccountIndex int64
	Limit        int
	Auth         string
	Cursor       string
}
