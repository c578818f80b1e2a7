package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/config"
	"fpa-bridge/internal/indicator"
	"fpa-bridge/internal/replay"
	"fpa-bridge/internal/sink"
	"fpa-bridge/internal/source"
	"fpa-bridge/internal/web"
)

// app owns every long-lived component of the process.
type app struct {
	cfg     config.Config
	outputs []string

	bridge *bridge.Bridge
	src    *source.Service
	rec    *replay.Writer
	ind    *indicator.Indicator
	store  *sink.SQLite
	status *web.Status
	logs   *web.LogBuffer
}

// buildSinks opens every enabled output. On error the sinks opened so far are
// closed.
func buildSinks(cfg config.Config) (sinks []bridge.Sink, store *sink.SQLite, err error) {
	defer func() {
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			sinks, store = nil, nil
		}
	}()

	if c := cfg.Output.JSONL; c.Enable {
		sinks = append(sinks, sink.NewJSONL(sink.JSONLConfig{Path: c.Path, MaxSizeMB: c.MaxSizeMB, MaxBackups: c.MaxBackups}))
	}
	if c := cfg.Output.UDP; c.Enable {
		u, err := sink.NewUDP(c.Dest)
		if err != nil {
			return sinks, nil, fmt.Errorf("udp output: %w", err)
		}
		sinks = append(sinks, u)
	}
	if c := cfg.Output.SQLite; c.Enable {
		s, err := sink.NewSQLite(c.Path)
		if err != nil {
			return sinks, nil, fmt.Errorf("sqlite output: %w", err)
		}
		sinks = append(sinks, s)
		store = s
	}
	return sinks, store, nil
}

func sourceConfig(in config.InputConfig) source.Config {
	return source.Config{
		Kind:           in.Source,
		Device:         in.Device,
		Baud:           in.Baud,
		Addr:           in.Addr,
		ReplayPath:     in.Replay.Path,
		ReplaySpeed:    in.Replay.Speed,
		ReplayLoop:     in.Replay.Loop,
		ReconnectDelay: in.ReconnectDelay,
	}
}

func newApp(cfg config.Config, logs *web.LogBuffer) (*app, error) {
	sinks, store, err := buildSinks(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: store, logs: logs, status: web.NewStatus()}

	if cfg.Indicator.Enable {
		a.ind = indicator.New(indicator.Config{Pin: cfg.Indicator.GPIOPin})
		sinks = append(sinks, a.ind)
		a.status.SetIndicator(func() any { return a.ind.Snapshot() })
	}

	if cfg.Record.Enable {
		w, err := replay.CreateWriter(cfg.Record.Path)
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, fmt.Errorf("record: %w", err)
		}
		a.rec = w
	}

	for _, s := range sinks {
		a.outputs = append(a.outputs, s.Name())
	}
	leap := cfg.Time.Leap()
	a.bridge = bridge.New(bridge.Options{LeapSeconds: &leap}, sinks...)
	a.src = source.New(sourceConfig(cfg.Input))

	a.status.SetOutputs(a.outputs)
	a.status.SetInput(a.src.Snapshot)
	a.status.SetDecode(a.bridge.Stats)
	return a, nil
}

// handleLine records the raw line when capture is on, then decodes it.
func (a *app) handleLine(now time.Time, line string) {
	if a.rec != nil {
		if err := a.rec.WriteLine(now, line); err != nil {
			log.Printf("record write failed: %v", err)
		}
	}
	a.bridge.HandleLine(now, line)
}

func (a *app) webDeps() web.Deps {
	d := web.Deps{Status: a.status, Records: a.bridge, Logs: a.logs}
	// A nil *sink.SQLite must not become a non-nil interface.
	if a.store != nil {
		d.Store = a.store
	}
	return d
}

// run starts the source and web server and blocks until ctx is done or the
// web server fails. Everything is closed before it returns.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.close()

	if a.ind != nil {
		a.ind.Start(ctx)
	}
	if err := a.src.Start(ctx, a.handleLine); err != nil {
		return fmt.Errorf("source start: %w", err)
	}

	webErr := make(chan error, 1)
	go func() {
		webErr <- web.Serve(ctx, a.cfg.Web.Listen, a.webDeps())
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-webErr:
		if err == nil || errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("web: %w", err)
	}
}

func (a *app) close() {
	a.src.Close()
	if a.rec != nil {
		if err := a.rec.Close(); err != nil {
			log.Printf("record close failed: %v", err)
		}
	}
	// Closes the indicator too; it is one of the sinks.
	if err := a.bridge.Close(); err != nil {
		log.Printf("output close failed: %v", err)
	}
}
