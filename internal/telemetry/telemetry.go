// Package telemetry subscribes to the thermostat bridge's WebSocket feed
// and keeps the most recent live readings for answer assembly. The feed is
// advisory: the agent degrades gracefully when the bridge is offline.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// LiveData is one snapshot from the bridge. Optional sensors are pointers
// so the assembler can distinguish "reads zero" from "not installed".
type LiveData struct {
	IndoorTemp  *float64 `json:"indoorTemp,omitempty"`
	OutdoorTemp *float64 `json:"outdoorTemp,omitempty"`
	HumidityPct *float64 `json:"humidity,omitempty"`
	PowerWatts  *float64 `json:"powerWatts,omitempty"`
	FanCFM      *float64 `json:"cfm,omitempty"`
	SupplyTemp  *float64 `json:"supplyTemp,omitempty"`
	ReturnTemp  *float64 `json:"returnTemp,omitempty"`
	AuxActive   *bool    `json:"auxActive,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

// Subscriber maintains a WebSocket connection to the bridge feed.
type Subscriber struct {
	url string
	log *slog.Logger

	mu         sync.RWMutex
	latest     *LiveData
	receivedAt time.Time
}

// NewSubscriber creates a subscriber for the bridge at rawURL. The URL may
// use an http(s) scheme; it is converted to ws(s).
func NewSubscriber(rawURL string, log *slog.Logger) (*Subscriber, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry: parse url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Subscriber{url: u.String(), log: log}, nil
}

// Snapshot returns the latest readings and their age. ok is false when no
// reading has arrived yet.
func (s *Subscriber) Snapshot() (data *LiveData, age time.Duration, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, 0, false
	}
	return s.latest, time.Since(s.receivedAt), true
}

// Run connects and reads until ctx is cancelled, reconnecting with backoff
// after any failure.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if err := s.readLoop(ctx); err != nil {
			s.log.Warn("telemetry feed disconnected", "url", s.url, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (s *Subscriber) readLoop(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	s.log.Info("telemetry feed connected", "url", s.url)

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var d LiveData
		if err := conn.ReadJSON(&d); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		s.mu.Lock()
		s.latest = &d
		s.receivedAt = time.Now()
		s.mu.Unlock()
	}
}
