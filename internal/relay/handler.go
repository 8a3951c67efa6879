package relay

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func parseFeedFilter(r *http.Request) map[string]bool {
	q := r.URL.Query().Get("feeds")
	if q == "" {
		return nil
	}
	filter := make(map[string]bool)
	for _, f := range strings.Split(q, ",") {
		if f = strings.TrimSpace(f); f != "" {
			filter[f] = true
		}
	}
	return filter
}

// SSEHandler returns an http.HandlerFunc that streams events as SSE.
// Clients may filter feeds via ?feeds=name1,name2 query parameter.
func SSEHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming not supported", http.StatusInternalServerError)
			return
		}

		feedFilter := parseFeedFilter(r)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if feedFilter != nil && !feedFilter[evt.Feed] {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Feed, evt.Payload)
				flusher.Flush()
			}
		}
	}
}

// WSHandler upgrades the connection and streams events as JSON text frames
// of the form {"feed":...,"data":...}. Same ?feeds= filter as SSE.
func WSHandler(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		feedFilter := parseFeedFilter(r)

		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		id, ch := broker.Subscribe()
		defer broker.Unsubscribe(id)

		// Drain client frames so control messages are answered and a closed
		// peer unblocks the writer below.
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, err := wsutil.ReadClientText(conn); err != nil {
					if err != io.EOF {
						slog.Debug("websocket read ended", "error", err)
					}
					return
				}
			}
		}()

		for {
			select {
			case <-closed:
				return
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if feedFilter != nil && !feedFilter[evt.Feed] {
					continue
				}
				frame := fmt.Sprintf(`{"feed":%q,"data":%s}`, evt.Feed, evt.Payload)
				if err := wsutil.WriteServerText(conn, []byte(frame)); err != nil {
					slog.Debug("websocket write failed", "error", err)
					return
				}
			}
		}
	}
}
