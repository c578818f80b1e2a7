package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"fpa-bridge/internal/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup points the standard logger at stderr, the rotating file named in cfg
// (if any) and every extra writer. The returned closer releases the file.
func Setup(cfg config.LogConfig, extra ...io.Writer) (io.Closer, error) {
	writers := []io.Writer{os.Stderr}
	var closer io.Closer = nopCloser{}

	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxAge:     cfg.MaxAgeDays,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		writers = append(writers, rotator)
		closer = rotator
	}
	for _, w := range extra {
		if w != nil {
			writers = append(writers, w)
		}
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	return closer, nil
}
