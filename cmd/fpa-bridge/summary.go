package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"fpa-bridge/internal/bridge"
	"fpa-bridge/internal/fpa"
	"fpa-bridge/internal/gpstime"
	"fpa-bridge/internal/replay"
	"fpa-bridge/internal/source"
)

type captureSummary struct {
	Segments     int
	Lines        int
	Decoded      int
	MaxDuration  time.Duration
	HeaderCounts map[string]int
	ErrorCounts  map[string]int
	FirstStamp   gpstime.Time
	LastStamp    gpstime.Time
}

// summarizeCapture decodes every captured line. Decoding is best-effort:
// failures are counted by kind and do not stop the summary.
func summarizeCapture(records []replay.Record) captureSummary {
	s := captureSummary{
		HeaderCounts: map[string]int{},
		ErrorCounts:  map[string]int{},
		FirstStamp:   gpstime.Invalid,
		LastStamp:    gpstime.Invalid,
	}

	origin := time.Duration(0)
	hasLines := false
	for _, r := range records {
		if r.Start {
			s.Segments++
			origin = r.At
			continue
		}
		hasLines = true
		s.Lines++
		if at := r.At - origin; at > s.MaxDuration {
			s.MaxDuration = at
		}

		payload, err := source.Unframe(r.Line)
		if err != nil {
			s.ErrorCounts[bridge.ErrorKind(err)]++
			continue
		}
		rec, err := fpa.DecodeLine(payload)
		if err != nil {
			s.ErrorCounts[bridge.ErrorKind(err)]++
			continue
		}
		s.Decoded++
		s.HeaderCounts[rec.Header()]++

		_, stamp, err := bridge.View(rec)
		if err != nil || stamp.IsZero() {
			continue
		}
		if s.FirstStamp.IsZero() || stamp.Before(s.FirstStamp) {
			s.FirstStamp = stamp
		}
		if s.LastStamp.IsZero() || s.LastStamp.Before(stamp) {
			s.LastStamp = stamp
		}
	}
	if s.Segments == 0 && hasLines {
		s.Segments = 1
	}
	return s
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printCaptureSummary(w io.Writer, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	recs, err := replay.ReadFile(path)
	if err != nil {
		return err
	}

	s := summarizeCapture(recs)

	fmt.Fprintf(w, "path: %s\n", path)
	fmt.Fprintf(w, "segments: %d\n", s.Segments)
	fmt.Fprintf(w, "lines: %d\n", s.Lines)
	fmt.Fprintf(w, "decoded: %d\n", s.Decoded)
	fmt.Fprintf(w, "max_duration: %s\n", s.MaxDuration)
	if !s.FirstStamp.IsZero() {
		fmt.Fprintf(w, "gps_span: %s .. %s\n", s.FirstStamp, s.LastStamp)
	}
	fmt.Fprintf(w, "header_counts:\n")
	for _, k := range sortedKeys(s.HeaderCounts) {
		fmt.Fprintf(w, "  %s: %d\n", k, s.HeaderCounts[k])
	}
	if len(s.ErrorCounts) > 0 {
		fmt.Fprintf(w, "error_counts:\n")
		for _, k := range sortedKeys(s.ErrorCounts) {
			fmt.Fprintf(w, "  %s: %d\n", k, s.ErrorCounts[k])
		}
	}
	return nil
}
