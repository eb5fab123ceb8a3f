package endpoint

import (
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/macrat/scout/internal/journal"
)

const (
	streamBuffer = 64
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

type streamEntry struct {
	Time    string  `json:"time"`
	Status  string  `json:"status"`
	Latency float64 `json:"latency"`
	Scope   string  `json:"scope"`
	Message string  `json:"message"`
}

func newStreamEntry(e journal.Entry) streamEntry {
	return streamEntry{
		Time:    e.Time.Format(time.RFC3339),
		Status:  e.Status,
		Latency: float64(e.Latency.Microseconds()) / 1000,
		Scope:   e.Scope,
		Message: e.Message,
	}
}

// checkOrigin allows non-browser clients, the same host, and localhost.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}

	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// StreamEndpoint delivers journal entries to a websocket client as JSON messages.
// Entries are dropped if the client can not keep up.
func StreamEndpoint(j *journal.Journal) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		entries, cancel := j.Subscribe(streamBuffer)
		defer cancel()

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case e := <-entries:
				msg, err := json.Marshal(newStreamEntry(e))
				if err != nil {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-closed:
				return
			case <-r.Context().Done():
				return
			}
		}
	}
}
