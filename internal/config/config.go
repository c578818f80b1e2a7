package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fpa-bridge/internal/gpstime"
)

const (
	SourceSerial = "serial"
	SourceTCP    = "tcp"
	SourceReplay = "replay"

	// DefaultTCPPort is the port Fixposition sensors serve FP_A output on.
	DefaultTCPPort = "21000"
)

type Config struct {
	Input     InputConfig     `yaml:"input"`
	Record    RecordConfig    `yaml:"record"`
	Output    OutputConfig    `yaml:"output"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Time      TimeConfig      `yaml:"time"`
}

type InputConfig struct {
	Source string `yaml:"source"`

	// Serial. An empty device means auto-detect.
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`

	// TCP.
	Addr           string        `yaml:"addr"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	Replay ReplayConfig `yaml:"replay"`
}

type ReplayConfig struct {
	Path  string  `yaml:"path"`
	Speed float64 `yaml:"speed"`
	Loop  bool    `yaml:"loop"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type OutputConfig struct {
	JSONL  JSONLConfig  `yaml:"jsonl"`
	UDP    UDPConfig    `yaml:"udp"`
	SQLite SQLiteConfig `yaml:"sqlite"`
}

type JSONLConfig struct {
	Enable     bool   `yaml:"enable"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type UDPConfig struct {
	Enable bool   `yaml:"enable"`
	Dest   string `yaml:"dest"`
}

type SQLiteConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type WebConfig struct {
	Listen string `yaml:"listen"`
}

// LogConfig controls the rotating process log. An empty path logs to stderr only.
type LogConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type IndicatorConfig struct {
	Enable  bool `yaml:"enable"`
	GPIOPin int  `yaml:"gpio_pin"`
}

type TimeConfig struct {
	// LeapSeconds is GPS minus UTC. Nil means the built-in default.
	LeapSeconds *int `yaml:"leap_seconds"`
}

// Leap returns the configured leap second offset.
func (t TimeConfig) Leap() int {
	if t.LeapSeconds == nil {
		return gpstime.LeapSeconds
	}
	return *t.LeapSeconds
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates. Unknown keys are
// rejected so typos do not silently fall back to defaults.
func Parse(b []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		var te *yaml.TypeError
		if errors.As(err, &te) && onlyUnknownFields(te.Errors) {
			return Config{}, fmt.Errorf("config contains unknown fields: %s", strings.Join(stripLinePrefixes(te.Errors), "; "))
		}
		return Config{}, err
	}

	if cfg.Input.Source == "" {
		cfg.Input.Source = SourceSerial
	}
	switch cfg.Input.Source {
	case SourceSerial:
		if cfg.Input.Baud == 0 {
			cfg.Input.Baud = 115200
		}
		if cfg.Input.Baud < 0 {
			return Config{}, fmt.Errorf("input.baud must be > 0")
		}
	case SourceTCP:
		if cfg.Input.Addr == "" {
			return Config{}, fmt.Errorf("input.addr is required when input.source is 'tcp'")
		}
		if _, _, err := net.SplitHostPort(cfg.Input.Addr); err != nil {
			cfg.Input.Addr = net.JoinHostPort(cfg.Input.Addr, DefaultTCPPort)
		}
		if cfg.Input.ReconnectDelay <= 0 {
			cfg.Input.ReconnectDelay = 1 * time.Second
		}
	case SourceReplay:
		if cfg.Input.Replay.Path == "" {
			return Config{}, fmt.Errorf("input.replay.path is required when input.source is 'replay'")
		}
		if cfg.Input.Replay.Speed == 0 {
			cfg.Input.Replay.Speed = 1
		}
		if cfg.Input.Replay.Speed < 0 {
			return Config{}, fmt.Errorf("input.replay.speed must be > 0")
		}
	default:
		return Config{}, fmt.Errorf("input.source must be one of 'serial', 'tcp', 'replay' (got %q)", cfg.Input.Source)
	}

	if cfg.Record.Enable {
		if cfg.Input.Source == SourceReplay {
			return Config{}, fmt.Errorf("record and input.source=replay cannot both be enabled")
		}
		if cfg.Record.Path == "" {
			return Config{}, fmt.Errorf("record.path is required when record.enable is true")
		}
	}

	if cfg.Output.JSONL.Enable {
		if cfg.Output.JSONL.Path == "" {
			return Config{}, fmt.Errorf("output.jsonl.path is required when output.jsonl.enable is true")
		}
		if cfg.Output.JSONL.MaxSizeMB <= 0 {
			cfg.Output.JSONL.MaxSizeMB = 100
		}
	}
	if cfg.Output.UDP.Enable && cfg.Output.UDP.Dest == "" {
		return Config{}, fmt.Errorf("output.udp.dest is required when output.udp.enable is true")
	}
	if cfg.Output.SQLite.Enable && cfg.Output.SQLite.Path == "" {
		return Config{}, fmt.Errorf("output.sqlite.path is required when output.sqlite.enable is true")
	}

	if cfg.Web.Listen == "" {
		cfg.Web.Listen = ":8080"
	}

	if cfg.Log.Path != "" {
		if cfg.Log.MaxSizeMB <= 0 {
			cfg.Log.MaxSizeMB = 10
		}
		if cfg.Log.MaxBackups <= 0 {
			cfg.Log.MaxBackups = 3
		}
		if cfg.Log.MaxAgeDays <= 0 {
			cfg.Log.MaxAgeDays = 28
		}
	}

	if cfg.Indicator.Enable && cfg.Indicator.GPIOPin <= 0 {
		return Config{}, fmt.Errorf("indicator.gpio_pin is required when indicator.enable is true")
	}

	if cfg.Time.LeapSeconds != nil && *cfg.Time.LeapSeconds < 0 {
		return Config{}, fmt.Errorf("time.leap_seconds must be >= 0")
	}

	return cfg, nil
}

// stripLinePrefixes drops the "line N: " prefix yaml puts on each type error.
func stripLinePrefixes(errs []string) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		if strings.HasPrefix(e, "line ") {
			if i := strings.Index(e, ": "); i >= 0 {
				e = e[i+2:]
			}
		}
		out = append(out, e)
	}
	return out
}

func onlyUnknownFields(errs []string) bool {
	for _, e := range errs {
		if !strings.Contains(e, " not found in type ") {
			return false
		}
	}
	return len(errs) > 0
}
