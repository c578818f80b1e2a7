package fpa

import (
	"sort"
	"strconv"
	"strings"
)

// Schema describes one registered message type.
type Schema struct {
	Header  string
	Version int
	// Size is the exact token count, class, header and version included.
	Size int
	// FreeTextTail marks types whose last field is free text that may contain
	// the delimiter. DecodeLine never splits inside it.
	FreeTextTail bool
}

type entry struct {
	Schema
	newRecord func() Record
}

func register(newRecord func() Record, freeTextTail bool) entry {
	r := newRecord()
	return entry{
		Schema:    Schema{Header: r.Header(), Version: r.Version(), Size: r.Size(), FreeTextTail: freeTextTail},
		newRecord: newRecord,
	}
}

// registry maps header to the versions it is decoded at. It is built once and
// only read afterwards, so lookups need no locking.
var registry = buildRegistry(
	register(func() Record { return NewOdometry() }, false),
	register(func() Record { return NewOdomENU() }, false),
	register(func() Record { return NewOdomSH() }, false),
	register(func() Record { return NewLLH() }, false),
	register(func() Record { return NewTF() }, false),
	register(func() Record { return NewRawIMU() }, false),
	register(func() Record { return NewCorrIMU() }, false),
	register(func() Record { return NewGNSSAnt() }, false),
	register(func() Record { return NewGNSSCorr() }, false),
	register(func() Record { return NewText() }, true),
)

func buildRegistry(entries ...entry) map[string][]entry {
	m := make(map[string][]entry, len(entries))
	for _, e := range entries {
		m[e.Header] = append(m[e.Header], e)
	}
	return m
}

// Schemas lists every registered message type, sorted by header.
func Schemas() []Schema {
	out := make([]Schema, 0, len(registry))
	for _, entries := range registry {
		for _, e := range entries {
			out = append(out, e.Schema)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Header != out[j].Header {
			return out[i].Header < out[j].Header
		}
		return out[i].Version < out[j].Version
	})
	return out
}

// Known reports whether header is a registered message type.
func Known(header string) bool {
	_, ok := registry[header]
	return ok
}

// lookup resolves class, header and version tokens to a registry entry.
// head must hold at least the leading tokens of the message; anything after
// the version is ignored.
func lookup(head []string) (entry, error) {
	if len(head) == 0 || (head[0] != ClassFP && head[0] != ClassFPFramed) {
		class := ""
		if len(head) > 0 {
			class = head[0]
		}
		return entry{}, &UnknownMessageTypeError{Class: class}
	}
	if len(head) < 2 {
		return entry{}, &UnknownMessageTypeError{Class: head[0]}
	}
	entries, ok := registry[head[1]]
	if !ok {
		return entry{}, &UnknownMessageTypeError{Class: head[0], Header: head[1]}
	}

	// A message cut off before its version token is truncated, not versioned
	// wrongly. A blank version token is still a version mismatch.
	if len(head) < 3 {
		want := entries[0].Size
		for _, e := range entries[1:] {
			want = min(want, e.Size)
		}
		return entry{}, &MalformedMessageError{Header: head[1], Want: want, Got: len(head)}
	}
	supported := make([]int, 0, len(entries))
	for _, e := range entries {
		supported = append(supported, e.Version)
	}
	v, err := strconv.Atoi(strings.TrimSpace(head[2]))
	if err != nil {
		return entry{}, &UnsupportedVersionError{Header: head[1], Version: head[2], Supported: supported}
	}
	for _, e := range entries {
		if e.Version == v {
			return e, nil
		}
	}
	return entry{}, &UnsupportedVersionError{Header: head[1], Version: head[2], Supported: supported}
}

func decodeWith(e entry, tokens []string) (Record, error) {
	if len(tokens) != e.Size {
		return nil, &MalformedMessageError{Header: e.Header, Version: e.Version, Want: e.Size, Got: len(tokens)}
	}
	r := e.newRecord()
	if err := r.ConvertFromTokens(tokens); err != nil {
		return nil, err
	}
	return r, nil
}

// Decode dispatches a token sequence to the decoder registered for its header
// and version. tokens[0] is the message class (FP or $FP), tokens[1] the
// header and tokens[2] the version. On error no record is returned.
func Decode(tokens []string) (Record, error) {
	e, err := lookup(tokens)
	if err != nil {
		return nil, err
	}
	return decodeWith(e, tokens)
}

// DecodeLine tokenizes and decodes one line. The line must already be
// stripped of its terminator and checksum. For types with a free-text tail the
// text keeps any delimiters it contains.
func DecodeLine(line string) (Record, error) {
	e, err := lookup(tokenizeN(line, 4))
	if err != nil {
		return nil, err
	}
	var tokens []string
	if e.FreeTextTail {
		tokens = tokenizeN(line, e.Size)
	} else {
		tokens = Tokenize(line)
	}
	return decodeWith(e, tokens)
}
