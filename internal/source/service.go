package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"fpa-bridge/internal/replay"
)

const (
	KindSerial = "serial"
	KindTCP    = "tcp"
	KindReplay = "replay"
)

// Config selects and parameterizes one line source.
//
// Device may be empty to auto-detect. ReconnectDelay applies to both serial
// (re-open after unplug) and TCP (re-dial after disconnect).
type Config struct {
	Kind string

	Device string
	Baud   int

	Addr        string
	DialTimeout time.Duration

	ReplayPath  string
	ReplaySpeed float64
	ReplayLoop  bool

	ReconnectDelay time.Duration
	MaxLineBytes   int
}

// Handler receives one raw line, terminator stripped, still framed. It runs on
// the source goroutine and should return quickly.
type Handler func(now time.Time, line string)

type Snapshot struct {
	Kind        string `json:"kind"`
	Device      string `json:"device,omitempty"`
	Baud        int    `json:"baud,omitempty"`
	Addr        string `json:"addr,omitempty"`
	Path        string `json:"path,omitempty"`
	State       string `json:"state"`
	LastError   string `json:"last_error,omitempty"`
	LastSeenUTC string `json:"last_seen_utc,omitempty"`
	Lines       uint64 `json:"lines"`
	Skipped     uint64 `json:"skipped"`
}

type Service struct {
	cfg Config

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closer   io.Closer
	state    string
	lastErr  string
	device   string
	lastSeen time.Time
	lines    uint64
	skipped  uint64
}

func New(cfg Config) *Service {
	if cfg.Kind == "" {
		cfg.Kind = KindSerial
	}
	if cfg.Baud <= 0 {
		cfg.Baud = 115200
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1 * time.Second
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 2 * time.Second
	}
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = 64 * 1024
	}
	if cfg.ReplaySpeed <= 0 {
		cfg.ReplaySpeed = 1
	}
	return &Service{cfg: cfg, state: "stopped", device: cfg.Device}
}

func (s *Service) Start(ctx context.Context, h Handler) error {
	if s == nil {
		return fmt.Errorf("source service is nil")
	}
	if ctx == nil {
		return fmt.Errorf("ctx is nil")
	}
	if h == nil {
		return fmt.Errorf("source handler is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	var run func(context.Context, Handler)
	switch s.cfg.Kind {
	case KindSerial:
		run = s.runSerial
	case KindTCP:
		if s.cfg.Addr == "" {
			return fmt.Errorf("tcp source addr is required")
		}
		run = s.runTCP
	case KindReplay:
		if s.cfg.ReplayPath == "" {
			return fmt.Errorf("replay source path is required")
		}
		run = s.runReplay
	default:
		return fmt.Errorf("unknown source kind %q", s.cfg.Kind)
	}

	childCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = "starting"

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		run(childCtx, h)
		if childCtx.Err() != nil {
			s.setState("stopped", "")
		}
	}()
	return nil
}

func (s *Service) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	cancel := s.cancel
	closer := s.closer
	s.cancel = nil
	s.closer = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	s.wg.Wait()
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := Snapshot{
		Kind:      s.cfg.Kind,
		State:     s.state,
		LastError: s.lastErr,
		Lines:     s.lines,
		Skipped:   s.skipped,
	}
	switch s.cfg.Kind {
	case KindSerial:
		out.Device = s.device
		out.Baud = s.cfg.Baud
	case KindTCP:
		out.Addr = s.cfg.Addr
	case KindReplay:
		out.Path = s.cfg.ReplayPath
	}
	if !s.lastSeen.IsZero() {
		out.LastSeenUTC = s.lastSeen.UTC().Format(time.RFC3339Nano)
	}
	return out
}

func (s *Service) setState(state, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	if lastErr != "" {
		s.lastErr = lastErr
	} else if state == "connected" || state == "playing" {
		s.lastErr = ""
	}
}

// setCloser registers c so Close can interrupt a blocking read. It reports
// false when the service is already closing; the caller then owns c.
func (s *Service) setCloser(c io.Closer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.closer = c
	return true
}

func (s *Service) clearCloser() {
	s.mu.Lock()
	s.closer = nil
	s.mu.Unlock()
}

// isFPA is the cheap prefix filter run before a line is handed on.
func isFPA(line string) bool {
	return strings.HasPrefix(line, "$FP,") || strings.HasPrefix(line, "FP,")
}

func (s *Service) deliver(now time.Time, line string, h Handler) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	if !isFPA(line) {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		return
	}
	s.mu.Lock()
	s.lastSeen = now
	s.lines++
	s.mu.Unlock()
	h(now, line)
}

// readLines scans r until it fails or ctx ends. Lines longer than
// MaxLineBytes abort the scan like any other read error.
func (s *Service) readLines(ctx context.Context, r io.Reader, h Handler) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), s.cfg.MaxLineBytes)
	for sc.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.deliver(time.Now().UTC(), sc.Text(), h)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func (s *Service) runSerial(ctx context.Context, h Handler) {
	for ctx.Err() == nil {
		device := s.cfg.Device
		if device == "" {
			d, err := autoDetectDevice()
			if err != nil || d == "" {
				if err == nil {
					err = errors.New("no USB serial port found")
				}
				s.setState("error", fmt.Sprintf("serial auto-detect failed: %v", err))
				if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
					return
				}
				continue
			}
			device = d
		}
		s.mu.Lock()
		s.device = device
		s.mu.Unlock()

		port, err := openSerial(device, s.cfg.Baud)
		if err != nil {
			s.setState("error", fmt.Sprintf("serial open failed device=%s baud=%d: %v", device, s.cfg.Baud, err))
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return
			}
			continue
		}
		if !s.setCloser(port) {
			_ = port.Close()
			return
		}

		log.Printf("source serial opened device=%s baud=%d", device, s.cfg.Baud)
		s.setState("connected", "")
		err = s.readLines(ctx, port, h)
		_ = port.Close()
		s.clearCloser()
		if ctx.Err() != nil {
			return
		}
		s.setState("disconnected", fmt.Sprintf("serial read stopped: %v", err))
		log.Printf("source serial read stopped device=%s err=%v", device, err)
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Service) runTCP(ctx context.Context, h Handler) {
	dialer := &net.Dialer{Timeout: s.cfg.DialTimeout}
	for ctx.Err() == nil {
		s.setState("connecting", "")
		conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.setState("error", err.Error())
			if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
				return
			}
			continue
		}
		if !s.setCloser(conn) {
			_ = conn.Close()
			return
		}

		log.Printf("source tcp connected addr=%s", s.cfg.Addr)
		s.setState("connected", "")
		err = s.readLines(ctx, conn, h)
		_ = conn.Close()
		s.clearCloser()
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, net.ErrClosed) {
			s.setState("disconnected", "")
		} else {
			s.setState("disconnected", err.Error())
		}
		if !sleepCtx(ctx, s.cfg.ReconnectDelay) {
			return
		}
	}
}

func (s *Service) runReplay(ctx context.Context, h Handler) {
	recs, err := replay.ReadFile(s.cfg.ReplayPath)
	if err != nil {
		s.setState("error", fmt.Sprintf("replay load failed path=%s: %v", s.cfg.ReplayPath, err))
		return
	}
	log.Printf("source replay path=%s records=%d speed=%.2f loop=%t", s.cfg.ReplayPath, len(recs), s.cfg.ReplaySpeed, s.cfg.ReplayLoop)
	s.setState("playing", "")

	err = replay.Play(recs, s.cfg.ReplaySpeed, s.cfg.ReplayLoop, ctxSleeper{ctx}, func(line string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.deliver(time.Now().UTC(), line, h)
		return nil
	})
	switch {
	case err == nil:
		s.setState("finished", "")
	case ctx.Err() != nil:
	default:
		s.setState("error", fmt.Sprintf("replay failed: %v", err))
	}
}

// ctxSleeper returns early when ctx ends; the next callback then sees the
// cancellation.
type ctxSleeper struct{ ctx context.Context }

func (c ctxSleeper) Sleep(d time.Duration) { sleepCtx(c.ctx, d) }

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
