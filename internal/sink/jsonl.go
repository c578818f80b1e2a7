package sink

import (
	"encoding/json"
	"io"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"fpa-bridge/internal/bridge"
)

type JSONLConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// JSONL writes one JSON object per line. The file is rotated by size.
type JSONL struct {
	mu  sync.Mutex
	w   io.WriteCloser
	enc *json.Encoder
}

func NewJSONL(cfg JSONLConfig) *JSONL {
	return newJSONL(&lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	})
}

func newJSONL(w io.WriteCloser) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{w: w, enc: enc}
}

func (j *JSONL) Name() string { return "jsonl" }

func (j *JSONL) Write(env bridge.Envelope) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(env)
}

func (j *JSONL) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.w.Close()
}
