package source

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineSink) handle(_ time.Time, line string) {
	l.mu.Lock()
	l.lines = append(l.lines, line)
	l.mu.Unlock()
}

func (l *lineSink) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

func TestService_StartValidation(t *testing.T) {
	ctx := context.Background()
	noop := func(time.Time, string) {}

	assert.Error(t, New(Config{Kind: KindTCP}).Start(ctx, noop))
	assert.Error(t, New(Config{Kind: KindReplay}).Start(ctx, noop))
	assert.Error(t, New(Config{Kind: "can"}).Start(ctx, noop))
	assert.Error(t, New(Config{Kind: KindTCP, Addr: "127.0.0.1:1"}).Start(ctx, nil))

	var s *Service
	assert.Error(t, s.Start(ctx, noop))
	s.Close()
	assert.Equal(t, Snapshot{}, s.Snapshot())
}

func TestService_TCPDeliversFPALinesAndSkipsChatter(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fmt.Fprint(conn, "$FP,TEXT,1,INFO,hello*56\r\n")
		fmt.Fprint(conn, "$GPGGA,123519,4807.038,N*47\r\n")
		fmt.Fprint(conn, "\r\n")
		fmt.Fprint(conn, "FP,RAWIMU,1,,,0.1,0.2,9.8,0,0,0\n")
		// Hold the connection open until the client goes away.
		buf := make([]byte, 1)
		_, _ = conn.Read(buf)
	}()

	svc := New(Config{Kind: KindTCP, Addr: ln.Addr().String(), ReconnectDelay: 50 * time.Millisecond})
	sink := &lineSink{}
	require.NoError(t, svc.Start(context.Background(), sink.handle))
	defer svc.Close()

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"$FP,TEXT,1,INFO,hello*56", "FP,RAWIMU,1,,,0.1,0.2,9.8,0,0,0"}, sink.snapshot())

	snap := svc.Snapshot()
	assert.Equal(t, KindTCP, snap.Kind)
	assert.Equal(t, "connected", snap.State)
	assert.Equal(t, ln.Addr().String(), snap.Addr)
	assert.EqualValues(t, 2, snap.Lines)
	assert.EqualValues(t, 1, snap.Skipped)
	assert.NotEmpty(t, snap.LastSeenUTC)

	svc.Close()
	assert.Equal(t, "stopped", svc.Snapshot().State)
}

func TestService_TCPReconnects(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		for i := 0; i < 2; i++ {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			fmt.Fprintf(conn, "FP,TEXT,1,INFO,conn%d\n", i)
			_ = conn.Close()
		}
	}()

	svc := New(Config{Kind: KindTCP, Addr: ln.Addr().String(), ReconnectDelay: 20 * time.Millisecond})
	sink := &lineSink{}
	require.NoError(t, svc.Start(context.Background(), sink.handle))
	defer svc.Close()

	require.Eventually(t, func() bool { return len(sink.snapshot()) >= 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"FP,TEXT,1,INFO,conn0", "FP,TEXT,1,INFO,conn1"}, sink.snapshot()[:2])
}

func TestService_TCPDialFailureRecordsError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	svc := New(Config{Kind: KindTCP, Addr: addr, ReconnectDelay: 20 * time.Millisecond})
	require.NoError(t, svc.Start(context.Background(), func(time.Time, string) {}))
	defer svc.Close()

	require.Eventually(t, func() bool { return svc.Snapshot().LastError != "" }, 2*time.Second, 10*time.Millisecond)
}

func TestService_ReplayPlaysCapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	body := "START\n" +
		"0,$FP,TEXT,1,INFO,hello*56\n" +
		"1000,not fpa\n" +
		"2000,FP,TEXT,1,INFO,a,b\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	svc := New(Config{Kind: KindReplay, ReplayPath: path, ReplaySpeed: 10})
	sink := &lineSink{}
	require.NoError(t, svc.Start(context.Background(), sink.handle))
	defer svc.Close()

	require.Eventually(t, func() bool { return svc.Snapshot().State == "finished" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"$FP,TEXT,1,INFO,hello*56", "FP,TEXT,1,INFO,a,b"}, sink.snapshot())

	snap := svc.Snapshot()
	assert.Equal(t, path, snap.Path)
	assert.EqualValues(t, 2, snap.Lines)
	assert.EqualValues(t, 1, snap.Skipped)
}

func TestService_ReplayMissingFile(t *testing.T) {
	svc := New(Config{Kind: KindReplay, ReplayPath: filepath.Join(t.TempDir(), "missing.log")})
	require.NoError(t, svc.Start(context.Background(), func(time.Time, string) {}))
	defer svc.Close()

	require.Eventually(t, func() bool { return svc.Snapshot().State == "error" }, 2*time.Second, 10*time.Millisecond)
	assert.Contains(t, svc.Snapshot().LastError, "replay load failed")
}

func TestService_ReplayLoopStopsOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.log")
	require.NoError(t, os.WriteFile(path, []byte("START\n0,FP,TEXT,1,INFO,x\n1000000,FP,TEXT,1,INFO,y\n"), 0o644))

	svc := New(Config{Kind: KindReplay, ReplayPath: path, ReplayLoop: true})
	sink := &lineSink{}
	require.NoError(t, svc.Start(context.Background(), sink.handle))

	require.Eventually(t, func() bool { return len(sink.snapshot()) >= 4 }, 2*time.Second, 5*time.Millisecond)

	done := make(chan struct{})
	go func() {
		svc.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return")
	}
	assert.Equal(t, "stopped", svc.Snapshot().State)
}
