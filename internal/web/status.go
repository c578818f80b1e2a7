package web

import (
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/source"
)

type Status struct {
	startUnixNano int64
	outputs       atomic.Value // []string

	mu        sync.Mutex
	input     func() source.Snapshot
	decode    func() bridge.Stats
	indicator func() any
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.outputs.Store([]string{})
	return s
}

// SetOutputs records the names of the enabled sinks.
func (s *Status) SetOutputs(names []string) {
	if names == nil {
		names = []string{}
	}
	s.outputs.Store(append([]string(nil), names...))
}

func (s *Status) SetInput(fn func() source.Snapshot) {
	s.mu.Lock()
	s.input = fn
	s.mu.Unlock()
}

func (s *Status) SetDecode(fn func() bridge.Stats) {
	s.mu.Lock()
	s.decode = fn
	s.mu.Unlock()
}

func (s *Status) SetIndicator(fn func() any) {
	s.mu.Lock()
	s.indicator = fn
	s.mu.Unlock()
}

type BuildInfo struct {
	GoVersion string `json:"go_version"`
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	Dirty     bool   `json:"dirty,omitempty"`
}

type StatusSnapshot struct {
	Service   string           `json:"service"`
	NowUTC    string           `json:"now_utc"`
	UptimeSec int64            `json:"uptime_sec"`
	Build     BuildInfo        `json:"build"`
	Outputs   []string         `json:"outputs"`
	Input     *source.Snapshot `json:"input,omitempty"`
	Decode    *bridge.Stats    `json:"decode,omitempty"`
	Indicator any              `json:"indicator,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	snap := StatusSnapshot{
		Service:   "fpa-bridge",
		NowUTC:    nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec: int64(nowUTC.Sub(start).Seconds()),
		Build:     buildInfo(),
		Outputs:   s.outputs.Load().([]string),
	}

	s.mu.Lock()
	input, decode, indicator := s.input, s.decode, s.indicator
	s.mu.Unlock()

	if input != nil {
		in := input()
		snap.Input = &in
	}
	if decode != nil {
		st := decode()
		snap.Decode = &st
	}
	if indicator != nil {
		snap.Indicator = indicator()
	}
	return snap
}

func buildInfo() BuildInfo {
	out := BuildInfo{GoVersion: runtime.Version()}
	bi, ok := debug.ReadBuildInfo()
	if !ok || bi == nil {
		return out
	}
	out.Version = bi.Main.Version
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			out.Commit = s.Value
		case "vcs.modified":
			out.Dirty = s.Value == "true"
		}
	}
	return out
}
