package fpa

import (
	"strconv"
	"strings"
)

// Message class token that opens every FP_A line.
const (
	ClassFP       = "FP"
	ClassFPFramed = "$FP"
)

// Message headers.
const (
	HeaderOdometry = "ODOMETRY"
	HeaderOdomENU  = "ODOMENU"
	HeaderOdomSH   = "ODOMSH"
	HeaderLLH      = "LLH"
	HeaderTF       = "TF"
	HeaderRawIMU   = "RAWIMU"
	HeaderCorrIMU  = "CORRIMU"
	HeaderGNSSAnt  = "GNSSANT"
	HeaderGNSSCorr = "GNSSCORR"
	HeaderText     = "TEXT"
)

// Frame identifiers used by the fixed-frame message types.
const (
	FrameECEF  = "FP_ECEF"
	FrameENU0  = "FP_ENU0"
	FrameLLH   = "FP_LLH"
	FramePOI   = "FP_POI"
	FramePOISH = "FP_POISH"
)

// Record is one decoded FP_A message. The concrete types are *Odometry,
// *OdomENU, *OdomSH, *LLH, *TF, *RawIMU, *CorrIMU, *GNSSAnt, *GNSSCorr and
// *Text; consumers switch on the type.
//
// Header, Version and Size are constants of the type. ConvertFromTokens fills
// the payload from a full token sequence (class, header and version included)
// and leaves the record untouched on error. Reset returns the payload to its
// empty state.
type Record interface {
	Header() string
	Version() int
	Size() int
	ConvertFromTokens(tokens []string) error
	Reset()
}

// checkTokens is the per-type guard that runs in addition to the dispatcher's
// lookup, so ConvertFromTokens is safe to call directly.
func checkTokens(r Record, tokens []string) error {
	if len(tokens) != r.Size() {
		return &MalformedMessageError{Header: r.Header(), Version: r.Version(), Want: r.Size(), Got: len(tokens)}
	}
	if len(tokens) > 1 && tokens[1] != r.Header() {
		return &UnknownMessageTypeError{Class: tokens[0], Header: tokens[1]}
	}
	if len(tokens) > 2 && strings.TrimSpace(tokens[2]) != strconv.Itoa(r.Version()) {
		return &UnsupportedVersionError{Header: r.Header(), Version: tokens[2], Supported: []int{r.Version()}}
	}
	return nil
}
