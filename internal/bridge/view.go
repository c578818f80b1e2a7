package bridge

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"fpa-bridge/internal/fpa"
	"fpa-bridge/internal/gpstime"
)

// Envelope is one decoded record as published to sinks, subscribers and the
// web API. Record is kept for in-process consumers and never serialized.
type Envelope struct {
	Header      string `json:"header"`
	Version     int    `json:"version"`
	ReceivedUTC string `json:"received_utc"`

	GPSWeek *int     `json:"gps_week,omitempty"`
	GPSTow  *float64 `json:"gps_tow,omitempty"`
	// TimeUTC is the sensor timestamp converted to UTC.
	TimeUTC string `json:"time_utc,omitempty"`

	Data any `json:"data"`

	Record fpa.Record `json:"-"`
}

// Vec3 and Quat are the JSON shapes of gonum vectors and quaternions.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type Quat struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vec(v r3.Vec) Vec3           { return Vec3{X: v.X, Y: v.Y, Z: v.Z} }
func quatView(q quat.Number) Quat { return Quat{W: q.Real, X: q.Imag, Y: q.Jmag, Z: q.Kmag} }

// rows flattens a symmetric matrix to row-major nested slices.
func rows(m *mat.SymDense) [][]float64 {
	if m == nil {
		return nil
	}
	n := m.SymmetricDim()
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

type OdometryView struct {
	FrameID          string      `json:"frame_id"`
	ChildFrameID     string      `json:"child_frame_id"`
	Position         Vec3        `json:"position"`
	Orientation      Quat        `json:"orientation"`
	PoseCov          [][]float64 `json:"pose_cov"`
	Velocity         Vec3        `json:"velocity"`
	AngularVelocity  Vec3        `json:"angular_velocity"`
	TwistCov         [][]float64 `json:"twist_cov"`
	Acceleration     Vec3        `json:"acceleration"`
	FusionStatus     string      `json:"fusion_status"`
	IMUBiasStatus    string      `json:"imu_bias_status"`
	GNSS1Fix         string      `json:"gnss1_fix"`
	GNSS2Fix         string      `json:"gnss2_fix"`
	WheelspeedStatus string      `json:"wheelspeed_status"`
	SoftwareVersion  string      `json:"sw_version,omitempty"`
}

type LLHView struct {
	FrameID      string      `json:"frame_id"`
	ChildFrameID string      `json:"child_frame_id"`
	LatDeg       float64     `json:"lat_deg"`
	LonDeg       float64     `json:"lon_deg"`
	HeightM      float64     `json:"height_m"`
	Cov          [][]float64 `json:"cov"`
}

type TFView struct {
	FrameID      string `json:"frame_id"`
	ChildFrameID string `json:"child_frame_id"`
	Translation  Vec3   `json:"translation"`
	Rotation     Quat   `json:"rotation"`
}

type IMUView struct {
	LinearAcceleration Vec3 `json:"linear_acceleration"`
	AngularVelocity    Vec3 `json:"angular_velocity"`
}

type GNSSAntView struct {
	GNSS1State string `json:"gnss1_state"`
	GNSS1Power string `json:"gnss1_power"`
	GNSS1AgeS  int    `json:"gnss1_age_s"`
	GNSS2State string `json:"gnss2_state"`
	GNSS2Power string `json:"gnss2_power"`
	GNSS2AgeS  int    `json:"gnss2_age_s"`
}

type GNSSCorrView struct {
	GNSS1Fix       string  `json:"gnss1_fix"`
	GNSS1NSigL1    int     `json:"gnss1_nsig_l1"`
	GNSS1NSigL2    int     `json:"gnss1_nsig_l2"`
	GNSS2Fix       string  `json:"gnss2_fix"`
	GNSS2NSigL1    int     `json:"gnss2_nsig_l1"`
	GNSS2NSigL2    int     `json:"gnss2_nsig_l2"`
	CorrLatencyS   float64 `json:"corr_latency_s"`
	CorrUpdateRate float64 `json:"corr_update_rate_hz"`
	CorrDataRate   float64 `json:"corr_data_rate_bps"`
	CorrMsgRate    float64 `json:"corr_msg_rate"`
	StaID          int     `json:"sta_id"`
	StaLatDeg      float64 `json:"sta_lat_deg"`
	StaLonDeg      float64 `json:"sta_lon_deg"`
	StaHeightM     float64 `json:"sta_height_m"`
	StaDistM       int     `json:"sta_dist_m"`
}

type TextView struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

func odometryView(p *fpa.OdometryPayload, frame, child, sw string) OdometryView {
	return OdometryView{
		FrameID:          frame,
		ChildFrameID:     child,
		Position:         vec(p.Pose.Position),
		Orientation:      quatView(p.Pose.Orientation),
		PoseCov:          rows(p.Pose.Cov),
		Velocity:         vec(p.Twist.Linear),
		AngularVelocity:  vec(p.Twist.Angular),
		TwistCov:         rows(p.Twist.Cov),
		Acceleration:     vec(p.Acceleration),
		FusionStatus:     p.FusionStatus.String(),
		IMUBiasStatus:    p.IMUBiasStatus.String(),
		GNSS1Fix:         p.GNSS1Fix.String(),
		GNSS2Fix:         p.GNSS2Fix.String(),
		WheelspeedStatus: p.WheelspeedStatus.String(),
		SoftwareVersion:  sw,
	}
}

// View renders a record for consumers. It is the only place record fields are
// mapped to an external shape. stamp is the record's sensor time, or the
// invalid time for types that carry none.
func View(rec fpa.Record) (data any, stamp gpstime.Time, err error) {
	switch r := rec.(type) {
	case *fpa.Odometry:
		return odometryView(&r.OdometryPayload, r.FrameID(), r.ChildFrameID(), r.SoftwareVersion), r.Stamp, nil
	case *fpa.OdomENU:
		return odometryView(&r.OdometryPayload, r.FrameID(), r.ChildFrameID(), ""), r.Stamp, nil
	case *fpa.OdomSH:
		return odometryView(&r.OdometryPayload, r.FrameID(), r.ChildFrameID(), ""), r.Stamp, nil
	case *fpa.LLH:
		return LLHView{
			FrameID:      r.FrameID(),
			ChildFrameID: r.ChildFrameID(),
			LatDeg:       r.Position.X,
			LonDeg:       r.Position.Y,
			HeightM:      r.Position.Z,
			Cov:          rows(r.Cov),
		}, r.Stamp, nil
	case *fpa.TF:
		return TFView{
			FrameID:      r.FrameID,
			ChildFrameID: r.ChildFrameID,
			Translation:  vec(r.Translation),
			Rotation:     quatView(r.Rotation),
		}, r.Stamp, nil
	case *fpa.RawIMU:
		return IMUView{LinearAcceleration: vec(r.LinearAcceleration), AngularVelocity: vec(r.AngularVelocity)}, r.Stamp, nil
	case *fpa.CorrIMU:
		return IMUView{LinearAcceleration: vec(r.LinearAcceleration), AngularVelocity: vec(r.AngularVelocity)}, r.Stamp, nil
	case *fpa.GNSSAnt:
		return GNSSAntView{
			GNSS1State: r.GNSS1State,
			GNSS1Power: r.GNSS1Power,
			GNSS1AgeS:  r.GNSS1Age,
			GNSS2State: r.GNSS2State,
			GNSS2Power: r.GNSS2Power,
			GNSS2AgeS:  r.GNSS2Age,
		}, r.Stamp, nil
	case *fpa.GNSSCorr:
		return GNSSCorrView{
			GNSS1Fix:       r.GNSS1Fix.String(),
			GNSS1NSigL1:    r.GNSS1NSigL1,
			GNSS1NSigL2:    r.GNSS1NSigL2,
			GNSS2Fix:       r.GNSS2Fix.String(),
			GNSS2NSigL1:    r.GNSS2NSigL1,
			GNSS2NSigL2:    r.GNSS2NSigL2,
			CorrLatencyS:   r.CorrLatency,
			CorrUpdateRate: r.CorrUpdateRate,
			CorrDataRate:   r.CorrDataRate,
			CorrMsgRate:    r.CorrMsgRate,
			StaID:          r.StaID,
			StaLatDeg:      r.StaLat,
			StaLonDeg:      r.StaLon,
			StaHeightM:     r.StaHeight,
			StaDistM:       r.StaDist,
		}, r.Stamp, nil
	case *fpa.Text:
		return TextView{Level: r.Level, Text: r.Text}, gpstime.Invalid, nil
	default:
		return nil, gpstime.Invalid, fmt.Errorf("bridge: no view for record type %T", rec)
	}
}

// NewEnvelope wraps a record with its receive time and converted timestamp.
func NewEnvelope(rec fpa.Record, received time.Time, leapSeconds int) (Envelope, error) {
	data, stamp, err := View(rec)
	if err != nil {
		return Envelope{}, err
	}
	env := Envelope{
		Header:      rec.Header(),
		Version:     rec.Version(),
		ReceivedUTC: received.UTC().Format(time.RFC3339Nano),
		Data:        data,
		Record:      rec,
	}
	if !stamp.IsZero() {
		w, tow := stamp.Week, stamp.Tow
		env.GPSWeek = &w
		env.GPSTow = &tow
		env.TimeUTC = stamp.UTC(leapSeconds).Format(time.RFC3339Nano)
	}
	return env, nil
}
