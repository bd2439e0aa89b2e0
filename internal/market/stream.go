package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"trade-guard/internal/core"
)

// TickerUpdate is one ticker tick from the exchange stream.
type TickerUpdate struct {
	Pair string
	Last decimal.Decimal
	Bid  decimal.Decimal
	Ask  decimal.Decimal
	Time time.Time
}

// TickerStream holds a websocket subscription to the public ticker channel.
type TickerStream struct {
	conn  *websocket.Conn
	pairs []string
}

type wsEvent struct {
	Event        string `json:"event"`
	Status       string `json:"status"`
	Pair         string `json:"pair,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type wsSubscribe struct {
	Event        string         `json:"event"`
	Pair         []string       `json:"pair"`
	Subscription wsSubscription `json:"subscription"`
}

type wsSubscription struct {
	Name string `json:"name"`
}

type tickerPayload struct {
	Last []string `json:"c"`
	Bid  []string `json:"b"`
	Ask  []string `json:"a"`
}

// NewTickerStream dials the stream endpoint and subscribes to the ticker
// channel for the given pairs (any notation).
func NewTickerStream(ctx context.Context, url string, pairs []string) (*TickerStream, error) {
	if url == "" {
		return nil, errors.New("stream url required")
	}
	if len(pairs) == 0 {
		return nil, errors.New("at least one pair required")
	}
	wsPairs := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		name, err := streamPairName(pair)
		if err != nil {
			return nil, err
		}
		wsPairs = append(wsPairs, name)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	sub := wsSubscribe{
		Event:        "subscribe",
		Pair:         wsPairs,
		Subscription: wsSubscription{Name: "ticker"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := awaitSubscribed(ctx, conn, len(wsPairs)); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &TickerStream{conn: conn, pairs: wsPairs}, nil
}

// streamPairName maps any accepted pair notation to the slash form the
// websocket API expects, e.g. "XBT/USD".
func streamPairName(pair string) (string, error) {
	exchange := core.ToExchangeNotation(pair)
	if !strings.HasSuffix(exchange, "USD") {
		return "", fmt.Errorf("unsupported stream pair: %s", pair)
	}
	return strings.TrimSuffix(exchange, "USD") + "/USD", nil
}

func awaitSubscribed(ctx context.Context, conn *websocket.Conn, want int) error {
	deadline := time.Now().Add(10 * time.Second)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetReadDeadline(deadline)
	defer conn.SetReadDeadline(time.Time{})

	confirmed := 0
	for confirmed < want {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var event wsEvent
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		switch event.Event {
		case "subscriptionStatus":
			if event.Status == "error" {
				return fmt.Errorf("ticker subscription failed: %s", event.ErrorMessage)
			}
			if event.Status == "subscribed" {
				confirmed++
			}
		default:
		}
	}
	return nil
}

// Updates reads ticker ticks until the context is cancelled or the
// connection drops. The error channel is buffered and never blocks.
func (s *TickerStream) Updates(ctx context.Context) (<-chan TickerUpdate, <-chan error) {
	updates := make(chan TickerUpdate)
	errCh := make(chan error, 4)

	reportErr := func(err error) {
		if err == nil {
			return
		}
		select {
		case errCh <- err:
		default:
		}
	}

	const readTimeout = 90 * time.Second
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(updates)
		defer s.conn.Close()

		for {
			_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, data, err := s.conn.ReadMessage()
			if err != nil {
				reportErr(err)
				return
			}
			update, ok := parseTickerMessage(data)
			if !ok {
				continue
			}
			select {
			case updates <- update:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					reportErr(err)
					_ = s.conn.Close()
					return
				}
			case <-ctx.Done():
				_ = s.conn.Close()
				return
			}
		}
	}()

	return updates, errCh
}

func (s *TickerStream) Close() error {
	return s.conn.Close()
}

// parseTickerMessage decodes channel frames, which arrive as arrays of
// [channelID, payload, channelName, pair]. Event objects and heartbeats
// are skipped.
func parseTickerMessage(data []byte) (TickerUpdate, bool) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return TickerUpdate{}, false
	}
	if len(frame) < 4 {
		return TickerUpdate{}, false
	}
	var channel string
	if err := json.Unmarshal(frame[2], &channel); err != nil || channel != "ticker" {
		return TickerUpdate{}, false
	}
	var pair string
	if err := json.Unmarshal(frame[len(frame)-1], &pair); err != nil {
		return TickerUpdate{}, false
	}
	var payload tickerPayload
	if err := json.Unmarshal(frame[1], &payload); err != nil {
		return TickerUpdate{}, false
	}

	last, ok := firstDecimal(payload.Last)
	if !ok {
		return TickerUpdate{}, false
	}
	bid, _ := firstDecimal(payload.Bid)
	ask, _ := firstDecimal(payload.Ask)

	return TickerUpdate{
		Pair: core.CanonicalPairName(pair),
		Last: last,
		Bid:  bid,
		Ask:  ask,
		Time: time.Now(),
	}, true
}

func firstDecimal(values []string) (decimal.Decimal, bool) {
	if len(values) == 0 {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(values[0])
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}
