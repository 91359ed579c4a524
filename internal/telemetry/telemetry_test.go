package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestSnapshotBeforeFirstReading(t *testing.T) {
	s, err := NewSubscriber("http://127.0.0.1:1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, ok := s.Snapshot(); ok {
		t.Error("Snapshot reported ok with no data")
	}
}

func TestReceivesSnapshots(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteJSON(map[string]any{"indoorTemp": 69.5, "outdoorTemp": 28.0, "mode": "heating"})
		conn.WriteJSON(map[string]any{"indoorTemp": 69.8, "outdoorTemp": 27.5, "mode": "heating", "powerWatts": 3200})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	s, err := NewSubscriber(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.After(5 * time.Second)
	for {
		data, age, ok := s.Snapshot()
		if ok && data.PowerWatts != nil {
			if *data.IndoorTemp != 69.8 || *data.PowerWatts != 3200 || data.Mode != "heating" {
				t.Errorf("snapshot = %+v", data)
			}
			if data.FanCFM != nil {
				t.Error("absent sensor decoded as present")
			}
			if age < 0 || age > time.Minute {
				t.Errorf("age = %v", age)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatal("no snapshot received")
		case <-time.After(10 * time.Millisecond):
		}
	}
}
