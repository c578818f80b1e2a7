package indicator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/fpa"
)

const odomLine = "FP,ODOMETRY,2,2231,227610.750000,4279243.1641,635824.2171,4671589.8683," +
	"-0.412792,0.290804,-0.123898,0.854216,-0.0032,-0.0024,0.0047,0.0037,-0.0045,0.0012," +
	"0.0034,-0.0051,9.8020,4,1,8,8,1," +
	"0.01044,0.01183,0.01165,-0.00429,0.00476,-0.00563," +
	"0.00081,0.00059,0.00119,0.00025,-0.00026,0.00011," +
	"0.00036,0.00032,0.00051,-0.00013,0.00014,-0.00017,fp_release_vr2_2.54.0_160"

type fakeLine struct {
	mu     sync.Mutex
	values []int
	err    error
	closed bool
}

func (f *fakeLine) SetValue(v int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.values = append(f.values, v)
	return nil
}

func (f *fakeLine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeLine) snapshot() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.values...)
}

func withLine(t *testing.T, l outputLine, err error) {
	t.Helper()
	orig := openLineFn
	t.Cleanup(func() { openLineFn = orig })
	openLineFn = func(pin int) (outputLine, error) { return l, err }
}

func envelope(t *testing.T, line string) bridge.Envelope {
	t.Helper()
	rec, err := fpa.DecodeLine(line)
	if err != nil {
		t.Fatalf("DecodeLine: %v", err)
	}
	env, err := bridge.NewEnvelope(rec, time.Now(), 18)
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	return env
}

func withFusion(status string) string {
	return strings.Replace(odomLine, ",9.8020,4,", ",9.8020,"+status+",", 1)
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestIndicator_FollowsFusionStatus(t *testing.T) {
	fl := &fakeLine{}
	withLine(t, fl, nil)

	ind := New(Config{Pin: 17})
	defer ind.Close()

	if err := ind.Write(envelope(t, odomLine)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	// Repeating the same state does not toggle the line.
	_ = ind.Write(envelope(t, odomLine))
	_ = ind.Write(envelope(t, "FP,TEXT,1,INFO,ignored"))
	_ = ind.Write(envelope(t, withFusion("2")))
	_ = ind.Write(envelope(t, withFusion("3")))

	if got, want := fl.snapshot(), []int{1, 0, 1}; !equalInts(got, want) {
		t.Fatalf("values=%v want %v", got, want)
	}
	snap := ind.Snapshot()
	if !snap.Available || !snap.On || snap.Fusion != "imu_gnss" || snap.Pin != 17 {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestIndicator_UnknownFusionIsOff(t *testing.T) {
	fl := &fakeLine{}
	withLine(t, fl, nil)
	ind := New(Config{Pin: 17})
	defer ind.Close()

	_ = ind.Write(envelope(t, withFusion("9")))
	if len(fl.snapshot()) != 0 || ind.Snapshot().On {
		t.Fatalf("values=%v snap=%+v", fl.snapshot(), ind.Snapshot())
	}
	if ind.Snapshot().Fusion != "unknown(9)" {
		t.Fatalf("fusion=%q", ind.Snapshot().Fusion)
	}
}

func TestIndicator_TurnsOffWhenStale(t *testing.T) {
	fl := &fakeLine{}
	withLine(t, fl, nil)
	ind := New(Config{Pin: 17, StaleAfter: time.Second})
	defer ind.Close()

	now := time.Date(2022, 10, 11, 15, 0, 0, 0, time.UTC)
	ind.now = func() time.Time { return now }

	_ = ind.Write(envelope(t, odomLine))
	now = now.Add(500 * time.Millisecond)
	ind.checkStale()
	if !ind.Snapshot().On {
		t.Fatalf("went off too early")
	}
	now = now.Add(time.Second)
	ind.checkStale()
	if ind.Snapshot().On {
		t.Fatalf("still on after stale")
	}
	if got, want := fl.snapshot(), []int{1, 0}; !equalInts(got, want) {
		t.Fatalf("values=%v want %v", got, want)
	}
}

func TestIndicator_StartStopsOnClose(t *testing.T) {
	fl := &fakeLine{}
	withLine(t, fl, nil)
	ind := New(Config{Pin: 17, StaleAfter: 10 * time.Millisecond, CheckInterval: 5 * time.Millisecond})
	ind.Start(context.Background())

	_ = ind.Write(envelope(t, odomLine))
	deadline := time.Now().Add(2 * time.Second)
	for ind.Snapshot().On {
		if time.Now().After(deadline) {
			t.Fatalf("LED not turned off by staleness check")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := ind.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fl.closed {
		t.Fatalf("line not closed")
	}
	if err := ind.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestIndicator_UnavailableLineIsNoop(t *testing.T) {
	withLine(t, nil, errors.New("no gpio"))
	ind := New(Config{Pin: 17})
	defer ind.Close()

	if err := ind.Write(envelope(t, odomLine)); err != nil {
		t.Fatalf("Write: %v", err)
	}
	snap := ind.Snapshot()
	if snap.Available || snap.LastError != "no gpio" || !snap.On {
		t.Fatalf("snap=%+v", snap)
	}
}

func TestIndicator_SetErrorIsReported(t *testing.T) {
	fl := &fakeLine{err: errors.New("line busy")}
	withLine(t, fl, nil)
	ind := New(Config{Pin: 17})
	defer ind.Close()

	if err := ind.Write(envelope(t, odomLine)); err == nil {
		t.Fatalf("expected error")
	}
	if ind.Snapshot().LastError != "line busy" {
		t.Fatalf("snap=%+v", ind.Snapshot())
	}
}
