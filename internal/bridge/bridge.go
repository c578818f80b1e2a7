package bridge

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"fpa-bridge/internal/fpa"
	"fpa-bridge/internal/gpstime"
	"fpa-bridge/internal/source"
)

// Sink receives every decoded record. Write runs on the source goroutine, so
// slow sinks should buffer internally.
type Sink interface {
	Name() string
	Write(env Envelope) error
	Close() error
}

// Options configures a Bridge.
type Options struct {
	// LeapSeconds converts sensor time to UTC; zero value means the default.
	LeapSeconds *int
	// ErrorLogInterval bounds how often one error kind is logged.
	ErrorLogInterval time.Duration
	// SubscriberBuffer is the channel size handed to each subscriber.
	SubscriberBuffer int
}

// Stats is a point-in-time copy of the bridge counters.
type Stats struct {
	Lines        uint64            `json:"lines"`
	Decoded      uint64            `json:"decoded"`
	Failed       uint64            `json:"failed"`
	PerHeader    map[string]uint64 `json:"per_header"`
	Errors       map[string]uint64 `json:"errors"`
	SinkErrors   map[string]uint64 `json:"sink_errors,omitempty"`
	Dropped      uint64            `json:"dropped"`
	Subscribers  int               `json:"subscribers"`
	LastError    string            `json:"last_error,omitempty"`
	LastErrorUTC string            `json:"last_error_utc,omitempty"`
	LastStamp    string            `json:"last_stamp,omitempty"`
}

// Bridge turns raw lines into decoded records and fans them out. Decode
// failures are counted and logged, never fatal.
type Bridge struct {
	leap        int
	logInterval time.Duration
	subBuf      int

	mu         sync.Mutex
	lines      uint64
	decoded    uint64
	failed     uint64
	perHeader  map[string]uint64
	errs       map[string]uint64
	sinkErrs   map[string]uint64
	lastErr    string
	lastErrAt  time.Time
	lastStamp  gpstime.Time
	latest     map[string]Envelope
	lastLogged map[string]time.Time
	suppressed map[string]uint64

	sinks []Sink

	subMu   sync.Mutex
	subs    map[string]chan Envelope
	dropped uint64
	closed  bool
}

func New(opts Options, sinks ...Sink) *Bridge {
	b := &Bridge{
		leap:        gpstime.LeapSeconds,
		logInterval: opts.ErrorLogInterval,
		subBuf:      opts.SubscriberBuffer,
		perHeader:   map[string]uint64{},
		errs:        map[string]uint64{},
		sinkErrs:    map[string]uint64{},
		latest:      map[string]Envelope{},
		lastLogged:  map[string]time.Time{},
		suppressed:  map[string]uint64{},
		sinks:       sinks,
		subs:        map[string]chan Envelope{},
	}
	if opts.LeapSeconds != nil {
		b.leap = *opts.LeapSeconds
	}
	if b.logInterval <= 0 {
		b.logInterval = 10 * time.Second
	}
	if b.subBuf <= 0 {
		b.subBuf = 64
	}
	return b
}

// HandleLine unframes and decodes one raw line and publishes the result. It
// matches source.Handler.
func (b *Bridge) HandleLine(now time.Time, line string) {
	b.mu.Lock()
	b.lines++
	b.mu.Unlock()

	payload, err := source.Unframe(line)
	if err != nil {
		b.fail(now, ErrorKind(err), err)
		return
	}
	rec, err := fpa.DecodeLine(payload)
	if err != nil {
		b.fail(now, ErrorKind(err), err)
		return
	}
	env, err := NewEnvelope(rec, now, b.leap)
	if err != nil {
		b.fail(now, "other", err)
		return
	}
	b.publish(now, env)
}

// ErrorKind classifies a framing or decode failure for counting.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, source.ErrChecksumMismatch), errors.Is(err, source.ErrBadChecksum):
		return "checksum"
	case errors.Is(err, source.ErrNotFPA):
		return "not_fpa"
	default:
		return fpa.ErrorKind(err)
	}
}

func (b *Bridge) fail(now time.Time, kind string, err error) {
	b.mu.Lock()
	b.failed++
	b.errs[kind]++
	b.lastErr = err.Error()
	b.lastErrAt = now

	last, seen := b.lastLogged[kind]
	if seen && now.Sub(last) < b.logInterval {
		b.suppressed[kind]++
		b.mu.Unlock()
		return
	}
	n := b.suppressed[kind]
	b.suppressed[kind] = 0
	b.lastLogged[kind] = now
	b.mu.Unlock()

	if n > 0 {
		log.Printf("fpa decode failed kind=%s err=%v suppressed=%d", kind, err, n)
	} else {
		log.Printf("fpa decode failed kind=%s err=%v", kind, err)
	}
}

func (b *Bridge) publish(now time.Time, env Envelope) {
	b.mu.Lock()
	b.decoded++
	b.perHeader[env.Header]++
	b.latest[env.Header] = env
	if s, ok := stampOf(env); ok && !s.Before(b.lastStamp) {
		b.lastStamp = s
	}
	b.mu.Unlock()

	for _, s := range b.sinks {
		if err := s.Write(env); err != nil {
			b.mu.Lock()
			b.sinkErrs[s.Name()]++
			b.mu.Unlock()
			b.fail(now, "sink_"+s.Name(), err)
		}
	}

	b.subMu.Lock()
	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
			b.dropped++
		}
	}
	b.subMu.Unlock()
}

func stampOf(env Envelope) (gpstime.Time, bool) {
	if env.GPSWeek == nil || env.GPSTow == nil {
		return gpstime.Invalid, false
	}
	return gpstime.Time{Week: *env.GPSWeek, Tow: *env.GPSTow}, true
}

// Subscribe registers a listener for every published record. Records are
// dropped for a subscriber whose channel is full. The channel is closed by
// Unsubscribe or Close.
func (b *Bridge) Subscribe() (string, <-chan Envelope) {
	id := uuid.NewString()
	ch := make(chan Envelope, b.subBuf)
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

func (b *Bridge) Unsubscribe(id string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

// Latest returns the most recent record per header, sorted by header.
func (b *Bridge) Latest() []Envelope {
	b.mu.Lock()
	out := make([]Envelope, 0, len(b.latest))
	for _, env := range b.latest {
		out = append(out, env)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Header < out[j].Header })
	return out
}

// LatestFor returns the most recent record with the given header.
func (b *Bridge) LatestFor(header string) (Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	env, ok := b.latest[header]
	return env, ok
}

func (b *Bridge) Stats() Stats {
	b.mu.Lock()
	out := Stats{
		Lines:     b.lines,
		Decoded:   b.decoded,
		Failed:    b.failed,
		PerHeader: copyCounts(b.perHeader),
		Errors:    copyCounts(b.errs),
		LastError: b.lastErr,
	}
	if len(b.sinkErrs) > 0 {
		out.SinkErrors = copyCounts(b.sinkErrs)
	}
	if !b.lastErrAt.IsZero() {
		out.LastErrorUTC = b.lastErrAt.UTC().Format(time.RFC3339Nano)
	}
	if !b.lastStamp.IsZero() {
		out.LastStamp = b.lastStamp.String()
	}
	b.mu.Unlock()

	b.subMu.Lock()
	out.Dropped = b.dropped
	out.Subscribers = len(b.subs)
	b.subMu.Unlock()
	return out
}

func copyCounts(m map[string]uint64) map[string]uint64 {
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Close closes every subscriber channel and every sink.
func (b *Bridge) Close() error {
	b.subMu.Lock()
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
	b.subMu.Unlock()

	var errs []error
	for _, s := range b.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
