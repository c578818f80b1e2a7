package replay

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0,$FP,TEXT,1,INFO,hello, world*3A
10,FP,RAWIMU,1,,,0.1,0.2,9.8,0,0,0
`)

	recs, err := NewReader(in).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if !recs[0].Start {
		t.Fatalf("expected START marker, got %+v", recs[0])
	}
	if recs[1].At != 0 || recs[1].Line != "$FP,TEXT,1,INFO,hello, world*3A" {
		t.Fatalf("unexpected record 1: %+v", recs[1])
	}
	if recs[2].At != 10*time.Nanosecond {
		t.Fatalf("expected At=10ns, got %s", recs[2].At)
	}
	if recs[2].Line != "FP,RAWIMU,1,,,0.1,0.2,9.8,0,0,0" {
		t.Fatalf("unexpected line 2: %q", recs[2].Line)
	}
}

func TestReaderReadAll_InvalidLine(t *testing.T) {
	cases := []string{
		"not-a-valid-line\n",
		"abc,FP,TEXT,1,INFO,x\n",
		"-5,FP,TEXT,1,INFO,x\n",
		"10,\n",
	}
	for _, in := range cases {
		if _, err := NewReader(strings.NewReader(in)).ReadAll(); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var lines []string
	fs := &fakeSleeper{}

	recs := []Record{
		{At: 1 * time.Second, Start: true},
		{At: 1 * time.Second, Line: "a"},
		{At: 1*time.Second + 100*time.Nanosecond, Line: "b"},
		{At: 2 * time.Second, Start: true},
		{At: 2*time.Second + 50*time.Nanosecond, Line: "c"},
	}

	err := Play(recs, 1.0, false, fs, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(lines, []string{"a", "b", "c"}) {
		t.Fatalf("lines=%v", lines)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{100 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [100ns]", fs.slept)
	}
}

func TestPlay_SpeedMultiplier(t *testing.T) {
	fs := &fakeSleeper{}
	recs := []Record{
		{At: 0, Line: "a"},
		{At: 100 * time.Nanosecond, Line: "b"},
	}
	if err := Play(recs, 2.0, false, fs, func(string) error { return nil }); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(fs.slept, []time.Duration{50 * time.Nanosecond}) {
		t.Fatalf("slept = %v, want [50ns]", fs.slept)
	}
}

func TestPlay_InvalidArgs(t *testing.T) {
	recs := []Record{{At: 0, Line: "a"}}
	if err := Play(recs, 0, false, nil, func(string) error { return nil }); err == nil {
		t.Fatalf("expected error for zero speed")
	}
	if err := Play([]Record{{Start: true}}, 1, false, nil, func(string) error { return nil }); err == nil {
		t.Fatalf("expected error for capture without data")
	}
	if err := Play(recs, 1, false, nil, nil); err == nil {
		t.Fatalf("expected error for nil callback")
	}
}

func TestPlay_LoopStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	recs := []Record{{At: 0, Line: "a"}, {At: 0, Line: "b"}}
	err := Play(recs, 1, true, &fakeSleeper{}, func(string) error {
		n++
		if n == 5 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("err=%v want stop", err)
	}
	if n != 5 {
		t.Fatalf("callbacks=%d want 5", n)
	}
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fpa-capture.log")
	w, err := CreateWriter(path)
	if err != nil {
		t.Fatalf("CreateWriter() error: %v", err)
	}

	// Same timestamp for every line so replay has zero waits.
	now := time.Now()
	in := []string{
		"$FP,LLH,1,2231,227610.750000,47.4,8.5,450.0,0,0,0,0,0,0*00",
		"FP,TEXT,1,INFO,a,b,c",
	}
	for _, l := range in {
		if err := w.WriteLine(now, l); err != nil {
			t.Fatalf("WriteLine() error: %v", err)
		}
	}
	if err := w.WriteLine(now, "bad\nline"); err == nil {
		t.Fatalf("expected error for embedded newline")
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := w.WriteLine(now, "x"); err == nil {
		t.Fatalf("expected error after Close")
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if !strings.HasPrefix(string(b), "START\n") {
		t.Fatalf("capture does not start with START: %q", b)
	}

	recs, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	var out []string
	fs := &fakeSleeper{}
	if err := Play(recs, 1, false, fs, func(line string) error {
		out = append(out, line)
		return nil
	}); err != nil {
		t.Fatalf("Play() error: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Fatalf("lines=%q want %q", out, in)
	}
	if len(fs.slept) != 0 {
		t.Fatalf("slept=%v want none", fs.slept)
	}
}
