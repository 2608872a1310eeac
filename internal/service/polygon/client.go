package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"SpikeWatch/internal/domain/models"
	drepo "SpikeWatch/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Client implements a MarketStream backed by the Polygon stocks WebSocket.
// It subscribes to per-minute aggregates (AM) and, optionally, quotes (Q).
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	subscribeAll   bool
	wantQuotes     bool
	reconnectDelay time.Duration
	pingInterval   time.Duration

	// Event timestamps arrive as epoch millis; session windows are
	// exchange-local, so every timestamp is rebased into loc on ingest.
	loc *time.Location

	conn      *websocket.Conn
	connected bool
}

// New creates a new Polygon MarketStream.
func New(apiKey, websocketURL string, symbols []string, subscribeAll, quotes bool, reconnectDelay, pingInterval time.Duration) drepo.MarketStream {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		subscribeAll:   subscribeAll,
		wantQuotes:     quotes,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		loc:            loc,
	}
}

// Connect establishes the WebSocket connection and authenticates.
func (c *Client) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("polygon connect: %w", err)
	}
	c.conn = conn

	auth := map[string]string{"action": "auth", "params": c.apiKey}
	if err := conn.WriteJSON(auth); err != nil {
		_ = conn.Close()
		return fmt.Errorf("polygon auth: %w", err)
	}
	c.connected = true
	log.Printf("polygon: connected")
	return nil
}

// Subscribe subscribes to aggregate (and optionally quote) channels.
func (c *Client) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("polygon not connected")
	}
	var channels []string
	if c.subscribeAll {
		channels = append(channels, "AM.*")
	} else {
		for _, s := range c.symbols {
			channels = append(channels, "AM."+strings.ToUpper(s))
			if c.wantQuotes {
				channels = append(channels, "Q."+strings.ToUpper(s))
			}
		}
	}
	msg := map[string]string{"action": "subscribe", "params": strings.Join(channels, ",")}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("polygon subscribe: %w", err)
	}
	log.Printf("polygon: subscribed %d channels", len(channels))
	return nil
}

// Wire events. Trade count is reconstructed from volume over average
// trade size since the aggregate channel carries only the latter.
type pgEvent struct {
	Ev     string  `json:"ev"`
	Sym    string  `json:"sym"`
	Open   float64 `json:"o"`
	High   float64 `json:"h"`
	Low    float64 `json:"l"`
	Close  float64 `json:"c"`
	Volume float64 `json:"v"`
	AvgSz  float64 `json:"z"`
	Start  int64   `json:"s"` // bar start, ms
	Bid    float64 `json:"bp"`
	Ask    float64 `json:"ap"`
	QuoteT int64   `json:"t"` // quote time, ms
}

// Read streams finalized bars, quotes, and errors. A read error ends both
// data channels; the caller decides whether to Reconnect.
func (c *Client) Read(ctx context.Context) (<-chan *models.MinuteBar, <-chan *models.Quote, <-chan error) {
	bars := make(chan *models.MinuteBar, 4096)
	quotes := make(chan *models.Quote, 4096)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(bars)
		defer close(quotes)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("polygon conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("polygon read: %w", err)
					return
				}
				var events []pgEvent
				if err := json.Unmarshal(b, &events); err != nil {
					// status and auth frames are not event arrays
					continue
				}
				for _, ev := range events {
					switch ev.Ev {
					case "AM":
						bar := barFromEvent(ev, c.loc)
						select {
						case bars <- bar:
						default:
							// drop on backpressure
						}
					case "Q":
						if !c.wantQuotes {
							continue
						}
						q := &models.Quote{
							Symbol:    ev.Sym,
							Bid:       ev.Bid,
							Ask:       ev.Ask,
							Timestamp: time.UnixMilli(ev.QuoteT).In(c.loc),
						}
						select {
						case quotes <- q:
						default:
						}
					}
				}
			}
		}
	}()

	return bars, quotes, errs
}

func barFromEvent(ev pgEvent, loc *time.Location) *models.MinuteBar {
	var trades int64
	if ev.AvgSz > 0 {
		trades = int64(ev.Volume/ev.AvgSz + 0.5)
	}
	return &models.MinuteBar{
		Symbol:     ev.Sym,
		Timestamp:  time.UnixMilli(ev.Start).In(loc),
		Open:       ev.Open,
		High:       ev.High,
		Low:        ev.Low,
		Close:      ev.Close,
		Volume:     int64(ev.Volume),
		TradeCount: trades,
	}
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
