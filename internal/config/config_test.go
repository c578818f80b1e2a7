package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoad_EmptyFileUsesDefaults(t *testing.T) {
	path := writeTempConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceSerial {
		t.Fatalf("source=%q want serial", cfg.Input.Source)
	}
	if cfg.Input.Baud != 115200 {
		t.Fatalf("baud=%d want 115200", cfg.Input.Baud)
	}
	if cfg.Web.Listen != ":8080" {
		t.Fatalf("listen=%q want :8080", cfg.Web.Listen)
	}
	if cfg.Time.Leap() != 18 {
		t.Fatalf("leap=%d want 18", cfg.Time.Leap())
	}
	if cfg.Log.MaxSizeMB != 0 {
		t.Fatalf("log defaults should only apply with a log path")
	}
}

func TestLoad_TCPDefaults(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: tcp\n  addr: 10.0.2.1\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Addr != "10.0.2.1:21000" {
		t.Fatalf("addr=%q want 10.0.2.1:21000", cfg.Input.Addr)
	}
	if cfg.Input.ReconnectDelay != 1*time.Second {
		t.Fatalf("reconnect_delay=%s want 1s", cfg.Input.ReconnectDelay)
	}
}

func TestLoad_TCPKeepsExplicitPort(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: tcp\n  addr: 'sensor.local:9000'\n  reconnect_delay: 250ms\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Addr != "sensor.local:9000" {
		t.Fatalf("addr=%q", cfg.Input.Addr)
	}
	if cfg.Input.ReconnectDelay != 250*time.Millisecond {
		t.Fatalf("reconnect_delay=%s want 250ms", cfg.Input.ReconnectDelay)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "UnknownSource",
			body: "input:\n  source: can\n",
			want: "input.source must be one of 'serial', 'tcp', 'replay' (got \"can\")",
		},
		{
			name: "TCPRequiresAddr",
			body: "input:\n  source: tcp\n",
			want: "input.addr is required when input.source is 'tcp'",
		},
		{
			name: "ReplayRequiresPath",
			body: "input:\n  source: replay\n",
			want: "input.replay.path is required when input.source is 'replay'",
		},
		{
			name: "ReplayNegativeSpeed",
			body: "input:\n  source: replay\n  replay:\n    path: './x.log'\n    speed: -1\n",
			want: "input.replay.speed must be > 0",
		},
		{
			name: "NegativeBaud",
			body: "input:\n  baud: -9600\n",
			want: "input.baud must be > 0",
		},
		{
			name: "RecordRequiresPath",
			body: "record:\n  enable: true\n",
			want: "record.path is required when record.enable is true",
		},
		{
			name: "RecordAndReplayMutuallyExclusive",
			body: "input:\n  source: replay\n  replay:\n    path: './b.log'\nrecord:\n  enable: true\n  path: './a.log'\n",
			want: "record and input.source=replay cannot both be enabled",
		},
		{
			name: "JSONLRequiresPath",
			body: "output:\n  jsonl:\n    enable: true\n",
			want: "output.jsonl.path is required when output.jsonl.enable is true",
		},
		{
			name: "UDPRequiresDest",
			body: "output:\n  udp:\n    enable: true\n",
			want: "output.udp.dest is required when output.udp.enable is true",
		},
		{
			name: "SQLiteRequiresPath",
			body: "output:\n  sqlite:\n    enable: true\n",
			want: "output.sqlite.path is required when output.sqlite.enable is true",
		},
		{
			name: "IndicatorRequiresPin",
			body: "indicator:\n  enable: true\n",
			want: "indicator.gpio_pin is required when indicator.enable is true",
		},
		{
			name: "NegativeLeapSeconds",
			body: "time:\n  leap_seconds: -1\n",
			want: "time.leap_seconds must be >= 0",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTempConfig(t, tc.body))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_ReplaySpeedDefaultsToOne(t *testing.T) {
	path := writeTempConfig(t, "input:\n  source: replay\n  replay:\n    path: './x.log'\n    speed: 0\n    loop: true\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Replay.Speed != 1 {
		t.Fatalf("speed=%v want 1", cfg.Input.Replay.Speed)
	}
	if !cfg.Input.Replay.Loop {
		t.Fatalf("loop=false want true")
	}
}

func TestLoad_OutputDefaults(t *testing.T) {
	body := "output:\n  jsonl:\n    enable: true\n    path: './fpa.jsonl'\n" +
		"log:\n  path: './fpa-bridge.log'\n"
	cfg, err := Load(writeTempConfig(t, body))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Output.JSONL.MaxSizeMB != 100 {
		t.Fatalf("jsonl max_size_mb=%d want 100", cfg.Output.JSONL.MaxSizeMB)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 28 {
		t.Fatalf("log=%+v", cfg.Log)
	}
}

func TestLoad_LeapSecondsOverride(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "time:\n  leap_seconds: 0\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Time.Leap() != 0 {
		t.Fatalf("leap=%d want 0", cfg.Time.Leap())
	}
}

func TestLoad_RejectsUnknownField(t *testing.T) {
	path := writeTempConfig(t, "web:\n  listen: ':9090'\n  tls: true\n")
	_, err := Load(path)
	requireErrEq(t, err, "config contains unknown fields: field tls not found in type config.WebConfig")
}

func TestLoad_TypeErrorIsNotReportedAsUnknownField(t *testing.T) {
	_, err := Load(writeTempConfig(t, "input:\n  baud: fast\n"))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := err.Error(); strings.HasPrefix(got, "config contains") {
		t.Fatalf("error=%q", got)
	}
}

func TestLoad_SampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "fpa-bridge.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Input.Source != SourceTCP || cfg.Input.Addr != "10.0.1.1:21000" {
		t.Fatalf("input=%+v", cfg.Input)
	}
	if cfg.Input.ReconnectDelay != time.Second {
		t.Fatalf("reconnect_delay=%s", cfg.Input.ReconnectDelay)
	}
	if !cfg.Output.JSONL.Enable || cfg.Output.JSONL.MaxSizeMB != 100 {
		t.Fatalf("jsonl=%+v", cfg.Output.JSONL)
	}
	if cfg.Log.MaxSizeMB != 10 || cfg.Log.MaxBackups != 3 || cfg.Log.MaxAgeDays != 28 {
		t.Fatalf("log=%+v", cfg.Log)
	}
	if cfg.Time.Leap() != 18 {
		t.Fatalf("leap=%d", cfg.Time.Leap())
	}
}
