package source

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFPA           = errors.New("source: not an FP_A line")
	ErrBadChecksum      = errors.New("source: bad checksum field")
	ErrChecksumMismatch = errors.New("source: checksum mismatch")
)

// Unframe strips the transport framing from one received line and returns the
// bare FP_A payload ("FP,HEADER,VERSION,...").
//
// The terminator and surrounding whitespace are trimmed, a leading '$' is
// removed, and a trailing "*XX" checksum, when present, is verified as the XOR
// of every byte between '$' and '*' and removed. Lines that do not carry the
// FP class are rejected with ErrNotFPA so the caller can skip other chatter.
func Unframe(line string) (string, error) {
	line = strings.TrimSpace(line)
	framed := strings.HasPrefix(line, "$")
	payload := strings.TrimPrefix(line, "$")
	if !strings.HasPrefix(payload, "FP,") {
		return "", ErrNotFPA
	}

	// Only framed lines carry a checksum. TEXT payloads may contain '*' so the
	// last one is the candidate.
	if framed {
		if star := strings.LastIndexByte(payload, '*'); star >= 0 && len(payload)-star-1 == 2 {
			ck := payload[star+1:]
			want, err := hex.DecodeString(ck)
			if err != nil || len(want) != 1 {
				return "", fmt.Errorf("%w: %q", ErrBadChecksum, ck)
			}
			body := payload[:star]
			if got := Checksum(body); got != want[0] {
				return "", fmt.Errorf("%w: got %02X want %02X", ErrChecksumMismatch, got, want[0])
			}
			return body, nil
		}
	}
	return payload, nil
}

// Checksum is the NMEA-style XOR over the bytes of body.
func Checksum(body string) byte {
	var ck byte
	for i := 0; i < len(body); i++ {
		ck ^= body[i]
	}
	return ck
}

// Frame wraps a payload as "$<payload>*XX". Used by tests and tooling that
// synthesize sensor output.
func Frame(payload string) string {
	return fmt.Sprintf("$%s*%02X", payload, Checksum(payload))
}
