// Package indicator drives a status LED from the fusion state reported in
// odometry messages. The LED is lit while fusion is GNSS-aided and goes dark
// when odometry stops arriving.
package indicator

import (
	"context"
	"log"
	"sync"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/fpa"
)

type outputLine interface {
	SetValue(v int) error
	Close() error
}

var openLineFn = openLine

type Config struct {
	// Pin is BCM GPIO numbering.
	Pin int
	// StaleAfter turns the LED off when no odometry arrives for this long.
	StaleAfter time.Duration
	// CheckInterval is how often staleness is evaluated.
	CheckInterval time.Duration
}

type Snapshot struct {
	Available     bool   `json:"available"`
	Pin           int    `json:"pin"`
	On            bool   `json:"on"`
	Fusion        string `json:"fusion,omitempty"`
	LastUpdateUTC string `json:"last_update_utc,omitempty"`
	LastError     string `json:"last_error,omitempty"`
}

// Indicator is a bridge sink. Records other than odometry are ignored.
type Indicator struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	line    outputLine
	on      bool
	fusion  fpa.FusionStatus
	haveFix bool
	lastAt  time.Time
	lastErr string

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

// New opens the GPIO line. A line that cannot be opened is reported in the
// snapshot and the indicator keeps running as a no-op.
func New(cfg Config) *Indicator {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * time.Second
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 500 * time.Millisecond
	}
	ind := &Indicator{cfg: cfg, now: time.Now, stopCh: make(chan struct{})}

	line, err := openLineFn(cfg.Pin)
	if err != nil {
		ind.lastErr = err.Error()
		log.Printf("indicator unavailable pin=%d err=%v", cfg.Pin, err)
		return ind
	}
	ind.line = line
	log.Printf("indicator ready pin=%d", cfg.Pin)
	return ind
}

func (i *Indicator) Name() string { return "indicator" }

func (i *Indicator) Write(env bridge.Envelope) error {
	var fusion fpa.FusionStatus
	switch r := env.Record.(type) {
	case *fpa.Odometry:
		fusion = r.FusionStatus
	case *fpa.OdomENU:
		fusion = r.FusionStatus
	case *fpa.OdomSH:
		fusion = r.FusionStatus
	default:
		return nil
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.fusion = fusion
	i.haveFix = true
	i.lastAt = i.now()
	return i.setLocked(fusion.GNSSAided())
}

func (i *Indicator) setLocked(on bool) error {
	if on == i.on {
		return nil
	}
	if i.line != nil {
		v := 0
		if on {
			v = 1
		}
		if err := i.line.SetValue(v); err != nil {
			i.lastErr = err.Error()
			return err
		}
		i.lastErr = ""
	}
	i.on = on
	return nil
}

// Start runs the staleness check until ctx is done or Close is called.
func (i *Indicator) Start(ctx context.Context) {
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		t := time.NewTicker(i.cfg.CheckInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-i.stopCh:
				return
			case <-t.C:
				i.checkStale()
			}
		}
	}()
}

func (i *Indicator) checkStale() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.on || i.now().Sub(i.lastAt) < i.cfg.StaleAfter {
		return
	}
	if err := i.setLocked(false); err != nil {
		log.Printf("indicator set failed err=%v", err)
	}
}

func (i *Indicator) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	s := Snapshot{
		Available: i.line != nil,
		Pin:       i.cfg.Pin,
		On:        i.on,
		LastError: i.lastErr,
	}
	if i.haveFix {
		s.Fusion = i.fusion.String()
		s.LastUpdateUTC = i.lastAt.UTC().Format(time.RFC3339Nano)
	}
	return s
}

// Close stops the staleness check and releases the line with the LED off.
func (i *Indicator) Close() error {
	i.stopOnce.Do(func() { close(i.stopCh) })
	i.wg.Wait()

	i.mu.Lock()
	defer i.mu.Unlock()
	i.on = false
	if i.line == nil {
		return nil
	}
	err := i.line.Close()
	i.line = nil
	return err
}
