package fpa

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every decode failure matches exactly one of them.
var (
	ErrUnknownMessageType = errors.New("fpa: unknown message type")
	ErrUnsupportedVersion = errors.New("fpa: unsupported version")
	ErrMalformedMessage   = errors.New("fpa: malformed message")
	ErrFieldParse         = errors.New("fpa: field parse error")
)

// UnknownMessageTypeError reports a message class or header that is not in
// the registry.
type UnknownMessageTypeError struct {
	Class  string
	Header string
}

func (e *UnknownMessageTypeError) Error() string {
	if e.Header == "" {
		return fmt.Sprintf("fpa: unknown message type class=%q", e.Class)
	}
	return fmt.Sprintf("fpa: unknown message type class=%q header=%q", e.Class, e.Header)
}

func (e *UnknownMessageTypeError) Is(target error) bool { return target == ErrUnknownMessageType }

// UnsupportedVersionError reports a known header carrying a version no decoder
// handles. Version is the raw token as observed on the wire.
type UnsupportedVersionError struct {
	Header    string
	Version   string
	Supported []int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("fpa: unsupported version header=%s version=%q supported=%v", e.Header, e.Version, e.Supported)
}

func (e *UnsupportedVersionError) Is(target error) bool { return target == ErrUnsupportedVersion }

// MalformedMessageError reports a token count that does not match the
// registered size for the header and version.
type MalformedMessageError struct {
	Header  string
	Version int
	Want    int
	Got     int
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("fpa: malformed message header=%s version=%d tokens=%d want %d", e.Header, e.Version, e.Got, e.Want)
}

func (e *MalformedMessageError) Is(target error) bool { return target == ErrMalformedMessage }

// FieldParseError reports a single token that could not be converted to its
// field type. Index is the position in the full token sequence.
type FieldParseError struct {
	Header string
	Index  int
	Field  string
	Value  string
	Err    error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("fpa: %s field %d (%s) value=%q: %v", e.Header, e.Index, e.Field, e.Value, e.Err)
}

func (e *FieldParseError) Is(target error) bool { return target == ErrFieldParse }

func (e *FieldParseError) Unwrap() error { return e.Err }

// ErrorKind classifies a decode error into a short stable label, suitable for
// counters and log keys. It returns "" for nil and "other" for errors not
// produced by this package.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownMessageType):
		return "unknown_type"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, ErrFieldParse):
		return "field_parse"
	default:
		return "other"
	}
}
