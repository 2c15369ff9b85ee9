package marketdata

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	tradeBufferSize   = 1000
	reconnectDelay    = 5 * time.Second
	streamPingPeriod  = 20 * time.Second
	streamReadTimeout = 60 * time.Second
)

// TradeStream consumes the exchange's public trade feed for a set of
// symbols, maintaining a signed delta-volume counter and a bounded buffer
// of recent trades per symbol.
type TradeStream struct {
	wsURL string

	mu       sync.RWMutex
	symbols  []string
	trades   map[string][]PublicTrade
	delta    map[string]float64
	running  bool
	stopChan chan struct{}
}

// NewTradeStream creates a trade stream against the given websocket URL
func NewTradeStream(wsURL string) *TradeStream {
	return &TradeStream{
		wsURL:  wsURL,
		trades: make(map[string][]PublicTrade),
		delta:  make(map[string]float64),
	}
}

// Start connects and begins consuming in the background. Reconnects
// automatically until Stop is called.
func (ts *TradeStream) Start(symbols []string) {
	ts.mu.Lock()
	if ts.running {
		ts.symbols = symbols
		ts.mu.Unlock()
		return
	}
	ts.symbols = symbols
	ts.running = true
	ts.stopChan = make(chan struct{})
	ts.mu.Unlock()

	go ts.run()
	log.Printf("[stream] trade stream started for %d symbols", len(symbols))
}

// Stop terminates the stream
func (ts *TradeStream) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !ts.running {
		return
	}
	ts.running = false
	close(ts.stopChan)
	log.Println("[stream] trade stream stopped")
}

// SetSymbols replaces the subscription list; applied on next reconnect
func (ts *TradeStream) SetSymbols(symbols []string) {
	ts.mu.Lock()
	ts.symbols = symbols
	ts.mu.Unlock()
}

func (ts *TradeStream) run() {
	for {
		ts.mu.RLock()
		running := ts.running
		stop := ts.stopChan
		ts.mu.RUnlock()
		if !running {
			return
		}

		if err := ts.consume(stop); err != nil {
			log.Printf("[stream] connection error: %v", err)
		}

		select {
		case <-stop:
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (ts *TradeStream) consume(stop chan struct{}) error {
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	ts.mu.RLock()
	args := make([]string, 0, len(ts.symbols))
	for _, s := range ts.symbols {
		args = append(args, "publicTrade."+s)
	}
	ts.mu.RUnlock()

	sub := map[string]interface{}{"op": "subscribe", "args": args}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	// Keepalive per exchange protocol
	pingTicker := time.NewTicker(streamPingPeriod)
	defer pingTicker.Stop()
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-pingTicker.C:
				_ = conn.WriteJSON(map[string]string{"op": "ping"})
			case <-stop:
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg struct {
			Topic string `json:"topic"`
			Data  []struct {
				Symbol    string `json:"s"`
				Price     string `json:"p"`
				Size      string `json:"v"`
				Side      string `json:"S"`
				Timestamp int64  `json:"T"`
			} `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if len(msg.Data) == 0 {
			continue
		}

		ts.mu.Lock()
		for _, t := range msg.Data {
			price, _ := strconv.ParseFloat(t.Price, 64)
			size, _ := strconv.ParseFloat(t.Size, 64)
			trade := PublicTrade{
				Symbol:    t.Symbol,
				Price:     price,
				Size:      size,
				Side:      t.Side,
				Timestamp: time.UnixMilli(t.Timestamp).UTC(),
			}

			buf := append(ts.trades[t.Symbol], trade)
			if len(buf) > tradeBufferSize {
				buf = buf[len(buf)-tradeBufferSize:]
			}
			ts.trades[t.Symbol] = buf

			if t.Side == "Buy" {
				ts.delta[t.Symbol] += size
			} else {
				ts.delta[t.Symbol] -= size
			}
		}
		ts.mu.Unlock()
	}
}

// RecentTrades returns up to limit most recent trades for a symbol
func (ts *TradeStream) RecentTrades(symbol string, limit int) []PublicTrade {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	buf := ts.trades[symbol]
	if limit <= 0 || limit > len(buf) {
		limit = len(buf)
	}
	out := make([]PublicTrade, limit)
	copy(out, buf[len(buf)-limit:])
	return out
}

// DeltaVolume returns the accumulated signed volume for a symbol
func (ts *TradeStream) DeltaVolume(symbol string) float64 {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.delta[symbol]
}

// ResetDelta clears the delta counter for a symbol
func (ts *TradeStream) ResetDelta(symbol string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.delta[symbol] = 0
}
