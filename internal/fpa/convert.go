package fpa

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"fpa-bridge/internal/gpstime"
)

var (
	errEmptyField   = errors.New("empty field")
	errNotFinite    = errors.New("value is not finite")
	errNegative     = errors.New("value must not be negative")
	errPartialStamp = errors.New("week and time of week must both be set or both be blank")
	errOutOfRange   = errors.New("value out of range")
)

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

// parseInt accepts integer syntax only; "12000.0" is rejected.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyField
	}
	return strconv.Atoi(s)
}

// fieldParser reads typed values from fixed token positions. The first
// failure is kept and every later read becomes a no-op returning the zero
// value, so decoders can read a whole layout and check err once.
type fieldParser struct {
	header string
	tokens []string
	err    error
}

func newFieldParser(header string, tokens []string) *fieldParser {
	return &fieldParser{header: header, tokens: tokens}
}

func (p *fieldParser) fail(i int, field string, err error) {
	if p.err != nil {
		return
	}
	p.err = &FieldParseError{Header: p.header, Index: i, Field: field, Value: p.tokens[i], Err: err}
}

func (p *fieldParser) str(i int) string {
	return p.tokens[i]
}

func (p *fieldParser) float(i int, field string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := parseFloat(p.tokens[i])
	if err != nil {
		p.fail(i, field, err)
		return 0
	}
	return v
}

func (p *fieldParser) integer(i int, field string) int {
	if p.err != nil {
		return 0
	}
	v, err := parseInt(p.tokens[i])
	if err != nil {
		p.fail(i, field, err)
		return 0
	}
	return v
}

// stamp reads GPS week at i and time of week at i+1. A fully blank pair is the
// invalid time, which firmware emits before the first fix.
func (p *fieldParser) stamp(i int) gpstime.Time {
	if p.err != nil {
		return gpstime.Invalid
	}
	wno := strings.TrimSpace(p.tokens[i])
	tow := strings.TrimSpace(p.tokens[i+1])
	switch {
	case wno == "" && tow == "":
		return gpstime.Invalid
	case wno == "":
		p.fail(i, "gps_wno", errPartialStamp)
		return gpstime.Invalid
	case tow == "":
		p.fail(i+1, "gps_tow", errPartialStamp)
		return gpstime.Invalid
	}

	week := p.integer(i, "gps_wno")
	switch {
	case p.err != nil:
	case week < 0:
		p.fail(i, "gps_wno", errNegative)
	case week > gpstime.MaxWeek:
		p.fail(i, "gps_wno", errOutOfRange)
	}
	sec := p.float(i+1, "gps_tow")
	switch {
	case p.err != nil:
	case sec < 0:
		p.fail(i+1, "gps_tow", errNegative)
	case !gpstime.InRange(week, sec):
		p.fail(i+1, "gps_tow", errOutOfRange)
	}
	if p.err != nil {
		return gpstime.Invalid
	}
	return gpstime.FromWeekTow(week, sec)
}

// vec3 reads x, y, z from i, i+1, i+2.
func (p *fieldParser) vec3(i int, field string) r3.Vec {
	return r3.Vec{
		X: p.float(i, field+"_x"),
		Y: p.float(i+1, field+"_y"),
		Z: p.float(i+2, field+"_z"),
	}
}

// quaternion reads w, x, y, z from i..i+3. The result is not normalized.
func (p *fieldParser) quaternion(i int, field string) quat.Number {
	return quat.Number{
		Real: p.float(i, field+"_w"),
		Imag: p.float(i+1, field+"_x"),
		Jmag: p.float(i+2, field+"_y"),
		Kmag: p.float(i+3, field+"_z"),
	}
}

// sym3 reads the six independent entries of a symmetric 3x3 matrix from
// i..i+5 in the order (0,0) (1,1) (2,2) (0,1) (1,2) (0,2). The mirrored
// entries come from the symmetric storage.
func (p *fieldParser) sym3(i int, names [6]string) *mat.SymDense {
	m := mat.NewSymDense(3, nil)
	for k, ij := range sym3Order {
		m.SetSym(ij[0], ij[1], p.float(i+k, names[k]))
	}
	return m
}

var sym3Order = [6][2]int{{0, 0}, {1, 1}, {2, 2}, {0, 1}, {1, 2}, {0, 2}}

// covNames builds field names for sym3 from a prefix and three axis letters,
// e.g. covNames("pos_cov", "xyz") gives pos_cov_xx, pos_cov_yy, ...
func covNames(prefix, axes string) [6]string {
	var out [6]string
	for k, ij := range sym3Order {
		out[k] = prefix + "_" + string(axes[ij[0]]) + string(axes[ij[1]])
	}
	return out
}

// embedSym copies a 3x3 block into dst with its top-left corner at (off, off).
func embedSym(dst *mat.SymDense, block *mat.SymDense, off int) {
	for i := 0; i < 3; i++ {
		for j := i; j < 3; j++ {
			dst.SetSym(off+i, off+j, block.At(i, j))
		}
	}
}

var identityQuat = quat.Number{Real: 1}
