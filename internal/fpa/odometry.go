package fpa

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"fpa-bridge/internal/gpstime"
)

// PoseWithCov is a position and orientation with a 6x6 covariance ordered
// (x, y, z, rot_x, rot_y, rot_z).
type PoseWithCov struct {
	Position    r3.Vec
	Orientation quat.Number
	Cov         *mat.SymDense
}

// TwistWithCov is a linear and angular velocity with a 6x6 covariance ordered
// (vx, vy, vz, wx, wy, wz). FP_A only reports the linear block.
type TwistWithCov struct {
	Linear  r3.Vec
	Angular r3.Vec
	Cov     *mat.SymDense
}

// OdometryPayload is the field layout shared by ODOMETRY, ODOMENU and ODOMSH.
// The variants differ only in their frames and in the trailing version field.
type OdometryPayload struct {
	Stamp        gpstime.Time
	Pose         PoseWithCov
	Twist        TwistWithCov
	Acceleration r3.Vec

	FusionStatus     FusionStatus
	IMUBiasStatus    IMUBiasStatus
	GNSS1Fix         FixStatus
	GNSS2Fix         FixStatus
	WheelspeedStatus WheelspeedStatus
}

// Token layout of the shared odometry payload:
//
//	 3: gps_wno          4: gps_tow
//	 5- 7: pos x,y,z     8-11: orientation w,x,y,z
//	12-14: vel x,y,z    15-17: rot x,y,z    18-20: acc x,y,z
//	21: fusion_status   22: imu_bias_status  23: gnss1_fix  24: gnss2_fix
//	25: wheelspeed_status
//	26-31: pos_cov      32-37: orientation_cov  38-43: vel_cov
//	       (each xx,yy,zz,xy,yz,xz)
//
// ODOMETRY appends 44: sw_version.
const (
	odomIdxStamp      = 3
	odomIdxPos        = 5
	odomIdxOrient     = 8
	odomIdxVel        = 12
	odomIdxRot        = 15
	odomIdxAcc        = 18
	odomIdxFusion     = 21
	odomIdxIMUBias    = 22
	odomIdxGNSS1      = 23
	odomIdxGNSS2      = 24
	odomIdxWheel      = 25
	odomIdxPosCov     = 26
	odomIdxOrientCov  = 32
	odomIdxVelCov     = 38
	odomIdxSWVersion  = 44
	odomPayloadTokens = 44
)

func newOdometryPayload() OdometryPayload {
	var p OdometryPayload
	p.reset()
	return p
}

func (p *OdometryPayload) reset() {
	*p = OdometryPayload{
		Stamp: gpstime.Invalid,
		Pose: PoseWithCov{
			Orientation: identityQuat,
			Cov:         mat.NewSymDense(6, nil),
		},
		Twist: TwistWithCov{
			Cov: mat.NewSymDense(6, nil),
		},
	}
}

func (p *OdometryPayload) decode(fp *fieldParser) {
	p.Stamp = fp.stamp(odomIdxStamp)
	p.Pose.Position = fp.vec3(odomIdxPos, "pos")
	p.Pose.Orientation = fp.quaternion(odomIdxOrient, "orientation")
	p.Twist.Linear = fp.vec3(odomIdxVel, "vel")
	p.Twist.Angular = fp.vec3(odomIdxRot, "rot")
	p.Acceleration = fp.vec3(odomIdxAcc, "acc")

	p.FusionStatus = FusionStatus(fp.integer(odomIdxFusion, "fusion_status"))
	p.IMUBiasStatus = IMUBiasStatus(fp.integer(odomIdxIMUBias, "imu_bias_status"))
	p.GNSS1Fix = FixStatus(fp.integer(odomIdxGNSS1, "gnss1_fix"))
	p.GNSS2Fix = FixStatus(fp.integer(odomIdxGNSS2, "gnss2_fix"))
	p.WheelspeedStatus = WheelspeedStatus(fp.integer(odomIdxWheel, "wheelspeed_status"))

	embedSym(p.Pose.Cov, fp.sym3(odomIdxPosCov, covNames("pos_cov", "xyz")), 0)
	embedSym(p.Pose.Cov, fp.sym3(odomIdxOrientCov, covNames("orientation_cov", "xyz")), 3)
	embedSym(p.Twist.Cov, fp.sym3(odomIdxVelCov, covNames("vel_cov", "xyz")), 0)
}

// Odometry is FP_A-ODOMETRY: the fused pose of the POI in ECEF.
type Odometry struct {
	OdometryPayload
	SoftwareVersion string
}

const (
	odometryVersion = 2
	odometrySize    = odomPayloadTokens + 1

	unknownSoftwareVersion = "Unknown"
)

func NewOdometry() *Odometry {
	r := &Odometry{}
	r.Reset()
	return r
}

func (*Odometry) Header() string       { return HeaderOdometry }
func (*Odometry) Version() int         { return odometryVersion }
func (*Odometry) Size() int            { return odometrySize }
func (*Odometry) FrameID() string      { return FrameECEF }
func (*Odometry) ChildFrameID() string { return FramePOI }

func (r *Odometry) Reset() {
	r.OdometryPayload.reset()
	r.SoftwareVersion = unknownSoftwareVersion
}

func (r *Odometry) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := Odometry{OdometryPayload: newOdometryPayload()}
	out.decode(fp)
	out.SoftwareVersion = fp.str(odomIdxSWVersion)
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// OdomENU is FP_A-ODOMENU: the fused pose of the POI in the local ENU frame.
type OdomENU struct {
	OdometryPayload
}

const (
	odomENUVersion = 1
	odomENUSize    = odomPayloadTokens
)

func NewOdomENU() *OdomENU {
	r := &OdomENU{}
	r.Reset()
	return r
}

func (*OdomENU) Header() string       { return HeaderOdomENU }
func (*OdomENU) Version() int         { return odomENUVersion }
func (*OdomENU) Size() int            { return odomENUSize }
func (*OdomENU) FrameID() string      { return FrameENU0 }
func (*OdomENU) ChildFrameID() string { return FramePOI }

func (r *OdomENU) Reset() { r.OdometryPayload.reset() }

func (r *OdomENU) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := OdomENU{OdometryPayload: newOdometryPayload()}
	out.decode(fp)
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}

// OdomSH is FP_A-ODOMSH: the fused pose of the secondary POI in ECEF.
type OdomSH struct {
	OdometryPayload
}

const (
	odomSHVersion = 1
	odomSHSize    = odomPayloadTokens
)

func NewOdomSH() *OdomSH {
	r := &OdomSH{}
	r.Reset()
	return r
}

func (*OdomSH) Header() string       { return HeaderOdomSH }
func (*OdomSH) Version() int         { return odomSHVersion }
func (*OdomSH) Size() int            { return odomSHSize }
func (*OdomSH) FrameID() string      { return FrameECEF }
func (*OdomSH) ChildFrameID() string { return FramePOISH }

func (r *OdomSH) Reset() { r.OdometryPayload.reset() }

func (r *OdomSH) ConvertFromTokens(tokens []string) error {
	if err := checkTokens(r, tokens); err != nil {
		return err
	}
	fp := newFieldParser(r.Header(), tokens)
	out := OdomSH{OdometryPayload: newOdometryPayload()}
	out.decode(fp)
	if fp.err != nil {
		return fp.err
	}
	*r = out
	return nil
}
