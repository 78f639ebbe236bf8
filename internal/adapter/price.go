package adapter

// UnknownInstrument stands in for an instrument the feed did not name.
const UnknownInstrument = "UNKNOWN"

// PriceUpdate is a top-of-book quote decoded from the market data feed.
// Every field is always set; absent wire fields carry their defaults.
type PriceUpdate struct {
	Instrument string
	Bid        float64
	Ask        float64
	Timestamp  int64
}

// Spread returns ask minus bid.
func (p PriceUpdate) Spread() float64 {
	return p.Ask - p.Bid
}
