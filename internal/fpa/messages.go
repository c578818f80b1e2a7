package fpa

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"fpa-bridge/internal/gpstime"
)

// ------------ LLH ------------

// LLH is FP_A-LLH: geodetic position of the POI.
//
//	3: gps_wno  4: gps_tow  5: lat [deg]  6: lon [deg]  7: height [m]
//	8-13: cov_ee, cov_nn, cov_uu, cov_en, cov_nu, cov_eu [m^2]
type LLH struct {
	Stamp gpstime.Time
	// Position holds latitude, longitude and ellipsoidal height in X, Y, Z.
	Position r3.Vec
	// Cov is the ENU position covariance.
	Cov *mat.SymDense
}

func NewLLH() *LLH {
	r := &LLH{}
	r.Reset()
	return r
}

func (*LLH) Header() string       { return HeaderLLH }
func (*LLH) Version() int         { return 1 }
func (*LLH) Size() int            { return 14 }
func (*LLH) FrameID() string      { return FrameLLH }
func (*LLH) ChildFrameID() string { return FramePOI }

func (r *LLH) Reset() {
	*r = LLH{Stamp: gpstime.Invalid, Cov: mat.NewSymDense(3, nil)}
}

func (r *LLH) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := LLH{
		Stamp:    fp.stamp(3),
		Position: r3.Vec{X: fp.float(5, "lat"), Y: fp.float(6, "lon"), Z: fp.float(7, "height")},
		Cov:      fp.sym3(8, covNames("cov", "enu")),
	}
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// ------------ TF ------------

// TF is FP_A-TF: a transform between two named frames.
//
//	3: gps_wno  4: gps_tow  5: frame_a  6: frame_b
//	7-9: translation x,y,z  10-13: orientation w,x,y,z
type TF struct {
	Stamp        gpstime.Time
	FrameID      string
	ChildFrameID string
	Translation  r3.Vec
	Rotation     quat.Number
}

func NewTF() *TF {
	r := &TF{}
	r.Reset()
	return r
}

func (*TF) Header() string { return HeaderTF }
func (*TF) Version() int   { return 2 }
func (*TF) Size() int      { return 14 }

func (r *TF) Reset() {
	*r = TF{Stamp: gpstime.Invalid, Rotation: identityQuat}
}

func (r *TF) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := TF{
		Stamp:        fp.stamp(3),
		FrameID:      fp.str(5),
		ChildFrameID: fp.str(6),
		Translation:  fp.vec3(7, "translation"),
		Rotation:     fp.quaternion(10, "orientation"),
	}
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// ------------ RAWIMU / CORRIMU ------------

// IMUData is the layout shared by RAWIMU and CORRIMU.
//
//	3: gps_wno  4: gps_tow  5-7: acc x,y,z [m/s^2]  8-10: rot x,y,z [rad/s]
type IMUData struct {
	Stamp              gpstime.Time
	LinearAcceleration r3.Vec
	AngularVelocity    r3.Vec
}

const imuSize = 11

func (d *IMUData) reset() {
	*d = IMUData{Stamp: gpstime.Invalid}
}

func decodeIMU(fp *fieldParser) IMUData {
	return IMUData{
		Stamp:              fp.stamp(3),
		LinearAcceleration: fp.vec3(5, "acc"),
		AngularVelocity:    fp.vec3(8, "rot"),
	}
}

// RawIMU is FP_A-RAWIMU: IMU measurements before bias and gravity correction.
type RawIMU struct {
	IMUData
}

func NewRawIMU() *RawIMU {
	r := &RawIMU{}
	r.Reset()
	return r
}

func (*RawIMU) Header() string { return HeaderRawIMU }
func (*RawIMU) Version() int   { return 1 }
func (*RawIMU) Size() int      { return imuSize }
func (r *RawIMU) Reset()       { r.IMUData.reset() }

func (r *RawIMU) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	d := decodeIMU(fp)
	if fp.err != nil {
		return fp.err
	}
	r.IMUData = d
	return nil
}

// CorrIMU is FP_A-CORRIMU: bias-corrected IMU measurements.
type CorrIMU struct {
	IMUData
}

func NewCorrIMU() *CorrIMU {
	r := &CorrIMU{}
	r.Reset()
	return r
}

func (*CorrIMU) Header() string { return HeaderCorrIMU }
func (*CorrIMU) Version() int   { return 1 }
func (*CorrIMU) Size() int      { return imuSize }
func (r *CorrIMU) Reset()       { r.IMUData.reset() }

func (r *CorrIMU) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	d := decodeIMU(fp)
	if fp.err != nil {
		return fp.err
	}
	r.IMUData = d
	return nil
}

// ------------ GNSSANT ------------

// GNSSAnt is FP_A-GNSSANT: antenna state of both GNSS receivers.
//
//	3: gps_wno  4: gps_tow
//	5: gnss1_state  6: gnss1_power  7: gnss1_age [s]
//	8: gnss2_state  9: gnss2_power 10: gnss2_age [s]
type GNSSAnt struct {
	Stamp      gpstime.Time
	GNSS1State string
	GNSS1Power string
	GNSS1Age   int
	GNSS2State string
	GNSS2Power string
	GNSS2Age   int
}

func NewGNSSAnt() *GNSSAnt {
	r := &GNSSAnt{}
	r.Reset()
	return r
}

func (*GNSSAnt) Header() string { return HeaderGNSSAnt }
func (*GNSSAnt) Version() int   { return 1 }
func (*GNSSAnt) Size() int      { return 11 }

func (r *GNSSAnt) Reset() {
	*r = GNSSAnt{Stamp: gpstime.Invalid}
}

func (r *GNSSAnt) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := GNSSAnt{
		Stamp:      fp.stamp(3),
		GNSS1State: fp.str(5),
		GNSS1Power: fp.str(6),
		GNSS1Age:   fp.integer(7, "gnss1_age"),
		GNSS2State: fp.str(8),
		GNSS2Power: fp.str(9),
		GNSS2Age:   fp.integer(10, "gnss2_age"),
	}
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// ------------ GNSSCORR ------------

// GNSSCorr is FP_A-GNSSCORR: GNSS correction data status.
//
//	3: gps_wno  4: gps_tow
//	5: gnss1_fix  6: gnss1_nsig_l1  7: gnss1_nsig_l2
//	8: gnss2_fix  9: gnss2_nsig_l1 10: gnss2_nsig_l2
//	11: corr_latency [s]  12: corr_update_rate [Hz]  13: corr_data_rate [bytes/s]
//	14: corr_msg_rate [msgs/s]
//	15: sta_id  16: sta_lat [deg]  17: sta_lon [deg]  18: sta_height [m]  19: sta_dist [m]
type GNSSCorr struct {
	Stamp gpstime.Time

	GNSS1Fix    FixStatus
	GNSS1NSigL1 int
	GNSS1NSigL2 int
	GNSS2Fix    FixStatus
	GNSS2NSigL1 int
	GNSS2NSigL2 int

	CorrLatency    float64
	CorrUpdateRate float64
	CorrDataRate   float64
	CorrMsgRate    float64

	StaID     int
	StaLat    float64
	StaLon    float64
	StaHeight float64
	StaDist   int
}

func NewGNSSCorr() *GNSSCorr {
	r := &GNSSCorr{}
	r.Reset()
	return r
}

func (*GNSSCorr) Header() string { return HeaderGNSSCorr }
func (*GNSSCorr) Version() int   { return 1 }
func (*GNSSCorr) Size() int      { return 20 }

func (r *GNSSCorr) Reset() {
	*r = GNSSCorr{Stamp: gpstime.Invalid}
}

func (r *GNSSCorr) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := GNSSCorr{
		Stamp: fp.stamp(3),

		GNSS1Fix:    FixStatus(fp.integer(5, "gnss1_fix")),
		GNSS1NSigL1: fp.integer(6, "gnss1_nsig_l1"),
		GNSS1NSigL2: fp.integer(7, "gnss1_nsig_l2"),
		GNSS2Fix:    FixStatus(fp.integer(8, "gnss2_fix")),
		GNSS2NSigL1: fp.integer(9, "gnss2_nsig_l1"),
		GNSS2NSigL2: fp.integer(10, "gnss2_nsig_l2"),

		CorrLatency:    fp.float(11, "corr_latency"),
		CorrUpdateRate: fp.float(12, "corr_update_rate"),
		CorrDataRate:   fp.float(13, "corr_data_rate"),
		CorrMsgRate:    fp.float(14, "corr_msg_rate"),

		StaID:     fp.integer(15, "sta_id"),
		StaLat:    fp.float(16, "sta_lat"),
		StaLon:    fp.float(17, "sta_lon"),
		StaHeight: fp.float(18, "sta_height"),
		StaDist:   fp.integer(19, "sta_dist"),
	}
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// ------------ TEXT ------------

// Text is FP_A-TEXT: a log message from the sensor.
//
//	3: level  4: text (may itself contain delimiters when decoded from a line)
type Text struct {
	Level string
	Text  string
}

func NewText() *Text { return &Text{} }

func (*Text) Header() string { return HeaderText }
func (*Text) Version() int   { return 1 }
func (*Text) Size() int      { return 5 }
func (r *Text) Reset()       { *r = Text{} }

func (r *Text) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	r.Level = tokens[3]
	r.Text = tokens[4]
	return nil
}
