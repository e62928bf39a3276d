package marketdata

import (
	"context"
	"encoding/json"
	"fmt"

	"T0Pilot/internal/domain/models"

	"github.com/gorilla/websocket"
)

// WSFeed implements MarketFeed over a vendor quote WebSocket. The cache
// worker is the only goroutine that touches it after Connect.
type WSFeed struct {
	url   string
	token string

	conn      *websocket.Conn
	connected bool
}

func NewWSFeed(url, token string) *WSFeed {
	return &WSFeed{url: url, token: token}
}

// Connect dials the vendor WebSocket.
func (f *WSFeed) Connect(ctx context.Context) error {
	u := f.url
	if f.token != "" {
		u = fmt.Sprintf("%s?token=%s", f.url, f.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("feed connect: %w", err)
	}
	f.conn = conn
	f.connected = true
	return nil
}

// Subscribe asks the vendor to start streaming quotes for symbol.
func (f *WSFeed) Subscribe(symbol string) error {
	if f.conn == nil || !f.connected {
		return fmt.Errorf("feed not connected")
	}
	msg := map[string]string{"type": "subscribe", "symbol": symbol}
	if err := f.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}
	return nil
}

// Unsubscribe stops the vendor stream for symbol.
func (f *WSFeed) Unsubscribe(symbol string) error {
	if f.conn == nil || !f.connected {
		return fmt.Errorf("feed not connected")
	}
	msg := map[string]string{"type": "unsubscribe", "symbol": symbol}
	if err := f.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	return nil
}

// wsQuote is the vendor wire format. Absent fields stay nil so a partial
// update never clobbers known values downstream.
type wsQuote struct {
	Type      string   `json:"type"`
	Symbol    string   `json:"symbol"`
	Price     *float64 `json:"price"`
	Bid       *float64 `json:"bid"`
	Ask       *float64 `json:"ask"`
	High      *float64 `json:"high"`
	Low       *float64 `json:"low"`
	Open      *float64 `json:"open"`
	PrevClose *float64 `json:"prev_close"`
	VWAP      *float64 `json:"vwap"`
	Volume    *int64   `json:"volume"`
	BidSize   *int64   `json:"bid_size"`
	AskSize   *int64   `json:"ask_size"`
}

// ReadTick blocks until the next quote frame. Non-quote frames (pings,
// subscription acks) are skipped.
func (f *WSFeed) ReadTick() (*models.Tick, error) {
	for {
		if f.conn == nil {
			return nil, fmt.Errorf("feed conn nil")
		}
		_, b, err := f.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("feed read: %w", err)
		}
		var q wsQuote
		if err := json.Unmarshal(b, &q); err != nil {
			continue
		}
		if q.Type != "quote" || q.Symbol == "" {
			continue
		}
		return &models.Tick{
			Symbol:    q.Symbol,
			Price:     q.Price,
			Bid:       q.Bid,
			Ask:       q.Ask,
			High:      q.High,
			Low:       q.Low,
			Open:      q.Open,
			PrevClose: q.PrevClose,
			VWAP:      q.VWAP,
			Volume:    q.Volume,
			BidSize:   q.BidSize,
			AskSize:   q.AskSize,
		}, nil
	}
}

// Close tears down the connection.
func (f *WSFeed) Close() error {
	f.connected = false
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}
