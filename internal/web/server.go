package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/fpa"
	"fpa-bridge/internal/sink"
)

// Records is the read side of the bridge used by the API.
type Records interface {
	Latest() []bridge.Envelope
	LatestFor(header string) (bridge.Envelope, bool)
	Subscribe() (string, <-chan bridge.Envelope)
	Unsubscribe(id string)
}

// RecordStore serves stored history. It is optional.
type RecordStore interface {
	Recent(header string, limit int) ([]sink.StoredRecord, error)
}

type Deps struct {
	Status  *Status
	Records Records
	Store   RecordStore
	Logs    *LogBuffer

	// KeepAlive is the comment interval on idle streams.
	KeepAlive time.Duration
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, "marshal failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(b)
	_, _ = w.Write([]byte("\n"))
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// headerParam returns the upper-cased header query value, or an error for an
// unknown message type.
func headerParam(r *http.Request) (string, error) {
	h := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("header")))
	if h == "" {
		return "", nil
	}
	if !fpa.Known(h) {
		return "", fmt.Errorf("unknown header %q", h)
	}
	return h, nil
}

func Handler(d Deps) http.Handler {
	if d.Status == nil {
		d.Status = NewStatus()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		writeJSON(w, d.Status.Snapshot(time.Now().UTC()))
	})

	mux.HandleFunc("/api/records/latest", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if d.Records == nil {
			http.Error(w, "records unavailable", http.StatusServiceUnavailable)
			return
		}
		header, err := headerParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if header == "" {
			writeJSON(w, d.Records.Latest())
			return
		}
		env, ok := d.Records.LatestFor(header)
		if !ok {
			http.Error(w, "no "+header+" record received yet", http.StatusNotFound)
			return
		}
		writeJSON(w, env)
	})

	mux.HandleFunc("/api/records", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if d.Store == nil {
			http.Error(w, "record store disabled", http.StatusNotFound)
			return
		}
		header, err := headerParam(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		limit := 100
		if s := strings.TrimSpace(r.URL.Query().Get("limit")); s != "" {
			v, err := strconv.Atoi(s)
			if err != nil || v < 1 || v > 1000 {
				http.Error(w, "limit must be an integer in [1,1000]", http.StatusBadRequest)
				return
			}
			limit = v
		}
		rows, err := d.Store.Recent(header, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, storedViews(rows))
	})

	mux.Handle("/api/stream", streamHandler(d.Records, d.KeepAlive))

	if d.Logs != nil {
		mux.Handle("/api/logs", d.Logs.Handler())
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if !allowGet(w, r) {
			return
		}
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		snap := d.Status.Snapshot(time.Now().UTC())
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, "<!doctype html><html><head><meta charset=\"utf-8\"><title>fpa-bridge</title></head><body>")
		_, _ = fmt.Fprintf(w, "<h1>fpa-bridge</h1>")
		_, _ = fmt.Fprintf(w, "<p><a href=\"/api/status\">status</a> | <a href=\"/api/records/latest\">latest</a> | <a href=\"/api/stream\">stream</a> | <a href=\"/api/logs?format=text\">logs</a></p>")
		if snap.Input != nil {
			_, _ = fmt.Fprintf(w, "<pre>input=%s state=%s lines=%d</pre>",
				html.EscapeString(snap.Input.Kind), html.EscapeString(snap.Input.State), snap.Input.Lines,
			)
		}
		_, _ = fmt.Fprintf(w, "</body></html>")
	})

	return mux
}

type storedView struct {
	ID          int64           `json:"id"`
	Header      string          `json:"header"`
	Version     int             `json:"version"`
	GPSWeek     *int64          `json:"gps_week,omitempty"`
	GPSTow      *float64        `json:"gps_tow,omitempty"`
	ReceivedUTC string          `json:"received_utc"`
	Data        json.RawMessage `json:"data"`
}

func storedViews(rows []sink.StoredRecord) []storedView {
	out := make([]storedView, 0, len(rows))
	for _, r := range rows {
		v := storedView{
			ID:          r.ID,
			Header:      r.Header,
			Version:     r.Version,
			ReceivedUTC: r.ReceivedUTC,
			Data:        json.RawMessage(r.Payload),
		}
		if r.GPSWeek.Valid {
			w := r.GPSWeek.Int64
			v.GPSWeek = &w
		}
		if r.GPSTow.Valid {
			t := r.GPSTow.Float64
			v.GPSTow = &t
		}
		out = append(out, v)
	}
	return out
}

func Serve(ctx context.Context, listenAddr string, d Deps) error {
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           Handler(d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
