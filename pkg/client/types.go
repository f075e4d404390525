package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product is one tradable currency pair.
type Product struct {
	ID             string          `json:"id"`
	DisplayName    string          `json:"display_name"`
	BaseCurrency   string          `json:"base_currency"`
	QuoteCurrency  string          `json:"quote_currency"`
	BaseMinSize    decimal.Decimal `json:"base_min_size"`
	BaseMaxSize    decimal.Decimal `json:"base_max_size"`
	QuoteIncrement decimal.Decimal `json:"quote_increment"`
	Status         string          `json:"status"`
}

// OrderBook is a snapshot of open orders for a product. The amount of
// detail depends on the requested level.
type OrderBook struct {
	Sequence int64       `json:"sequence"`
	Bids     []BookEntry `json:"bids"`
	Asks     []BookEntry `json:"asks"`
}

// BookEntry is one side entry of an order book. The exchange encodes it as
// a three-element array whose last element is an order count on levels 1
// and 2 and an order id on level 3.
type BookEntry struct {
	Price     decimal.Decimal
	Size      decimal.Decimal
	NumOrders int64
	OrderID   string
}

// UnmarshalJSON decodes the [price, size, num-orders|order_id] array form.
func (e *BookEntry) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("book entry has %d fields, want 3", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Price); err != nil {
		return fmt.Errorf("book entry price: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Size); err != nil {
		return fmt.Errorf("book entry size: %w", err)
	}
	if err := json.Unmarshal(raw[2], &e.NumOrders); err != nil {
		if err := json.Unmarshal(raw[2], &e.OrderID); err != nil {
			return fmt.Errorf("book entry order field: %w", err)
		}
	}
	return nil
}

// Ticker is a snapshot of the last trade, best bid/ask and 24h volume.
type Ticker struct {
	TradeID int64           `json:"trade_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Bid     decimal.Decimal `json:"bid"`
	Ask     decimal.Decimal `json:"ask"`
	Volume  decimal.Decimal `json:"volume"`
	Time    time.Time       `json:"time"`
}

// Trade is one fill from the trade history of a product.
type Trade struct {
	Time    time.Time       `json:"time"`
	TradeID int64           `json:"trade_id"`
	Price   decimal.Decimal `json:"price"`
	Size    decimal.Decimal `json:"size"`
	Side    string          `json:"side"`
}

// Candle is one historic rate bucket. The exchange encodes it as the array
// [time, low, high, open, close, volume].
type Candle struct {
	Time   time.Time
	Low    float64
	High   float64
	Open   float64
	Close  float64
	Volume float64
}

// UnmarshalJSON decodes the array form of a candle.
func (c *Candle) UnmarshalJSON(data []byte) error {
	var raw [6]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("candle: %w", err)
	}
	c.Time = time.Unix(int64(raw[0]), 0).UTC()
	c.Low = raw[1]
	c.High = raw[2]
	c.Open = raw[3]
	c.Close = raw[4]
	c.Volume = raw[5]
	return nil
}

// Stats are 24 hour stats for a product. Volume is in base currency units;
// open, high and low are in quote currency units.
type Stats struct {
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Last        decimal.Decimal `json:"last"`
	Volume      decimal.Decimal `json:"volume"`
	Volume30Day decimal.Decimal `json:"volume_30day"`
}

// Currency is one currency known to the exchange.
type Currency struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	MinSize decimal.Decimal `json:"min_size"`
}

// ServerTime is the exchange server time in ISO and epoch form.
type ServerTime struct {
	ISO   time.Time `json:"iso"`
	Epoch float64   `json:"epoch"`
}
