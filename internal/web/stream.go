package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// streamHandler serves decoded records as server-sent events. Each event is
// named after the record header; ?header= limits the stream to one type.
func streamHandler(records Records, keepAlive time.Duration) http.Handler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if records == nil {
			http.Error(w, "records unavailable", http.StatusServiceUnavailable)
			return
		}
		header, err := headerParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		rc := http.NewResponseController(w)
		// Streams outlive the server write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		id, ch := records.Subscribe()
		defer records.Unsubscribe(id)

		if _, err := w.Write([]byte(": ping\n\n")); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case env, ok := <-ch:
				if !ok {
					return
				}
				if header != "" && env.Header != header {
					continue
				}
				b, err := json.Marshal(env)
				if err != nil {
					continue
				}
				if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", env.Header, b); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-ticker.C:
				if _, err := w.Write([]byte(": ping\n\n")); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	})
}
