package pricestream

import (
	"bytes"

	"github.com/JFForsythe/kalshitest/internal/adapter"
	"github.com/JFForsythe/kalshitest/pkg/exception"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// DecodeError reports an inbound payload that is not a price envelope.
// It matches exception.ErrMarketDataDecode and its cause.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err == nil {
		return exception.ErrMarketDataDecode.Error()
	}
	return exception.ErrMarketDataDecode.Error() + ": " + e.Err.Error()
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{exception.ErrMarketDataDecode}
	}
	return []error{exception.ErrMarketDataDecode, e.Err}
}

// Keys of a price envelope. They match exactly; "Market" or "BID" are unknown fields.
const (
	keyMarket = "market"
	keyBid    = "bid"
	keyAsk    = "ask"
	keyTs     = "ts"
)

// DecodeUpdate parses a price envelope. Every field is optional; absent or null fields take
// their defaults (instrument "UNKNOWN", numbers 0). Payloads that are not a JSON object fail,
// as do known fields holding the wrong type.
func DecodeUpdate(raw []byte) (adapter.PriceUpdate, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return adapter.PriceUpdate{}, &DecodeError{Err: errors.New("payload is not a json object")}
	}

	var fields map[string]sonic.NoCopyRawMessage
	if err := sonic.ConfigFastest.Unmarshal(trimmed, &fields); err != nil {
		return adapter.PriceUpdate{}, &DecodeError{Err: err}
	}

	var (
		update adapter.PriceUpdate
		err    error
	)
	if update.Instrument, err = envelopeField(fields, keyMarket, adapter.UnknownInstrument); err != nil {
		return adapter.PriceUpdate{}, &DecodeError{Err: err}
	}
	if update.Bid, err = envelopeField(fields, keyBid, 0.0); err != nil {
		return adapter.PriceUpdate{}, &DecodeError{Err: err}
	}
	if update.Ask, err = envelopeField(fields, keyAsk, 0.0); err != nil {
		return adapter.PriceUpdate{}, &DecodeError{Err: err}
	}
	if update.Timestamp, err = envelopeField(fields, keyTs, int64(0)); err != nil {
		return adapter.PriceUpdate{}, &DecodeError{Err: err}
	}
	return update, nil
}

func envelopeField[T any](fields map[string]sonic.NoCopyRawMessage, key string, fallback T) (T, error) {
	raw, ok := fields[key]
	if !ok {
		return fallback, nil
	}
	var v *T
	if err := sonic.ConfigFastest.Unmarshal(raw, &v); err != nil {
		return fallback, errors.Wrapf(err, "field %s", key)
	}
	if v == nil {
		return fallback, nil
	}
	return *v, nil
}

type subscribeChannel struct {
	Name   string `json:"name"`
	Market string `json:"market"`
}

type subscribeRequest struct {
	Action   string             `json:"action"`
	Channels []subscribeChannel `json:"channels"`
}

// EncodeSubscribe builds the request subscribing to the markets channel of market.
func EncodeSubscribe(market string) ([]byte, error) {
	if market == "" {
		return nil, exception.ErrPriceStreamEmptyMarket
	}
	payload, err := sonic.ConfigFastest.Marshal(subscribeRequest{
		Action:   "subscribe",
		Channels: []subscribeChannel{{Name: "markets", Market: market}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal subscribe request")
	}
	return payload, nil
}
