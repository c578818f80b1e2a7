package fpa

import "fmt"

// Status fields are small integers. Values outside the tables below are kept
// as-is: firmware may add states, and a message with the right arity still
// decodes. Known reports whether the value is one of the documented states.

// FusionStatus is the state of the sensor fusion engine.
type FusionStatus int

const (
	FusionNotStarted FusionStatus = 0
	FusionVision     FusionStatus = 1
	FusionVIO        FusionStatus = 2
	FusionIMUGNSS    FusionStatus = 3
	FusionVIOGNSS    FusionStatus = 4
)

var fusionStatusNames = map[FusionStatus]string{
	FusionNotStarted: "not_started",
	FusionVision:     "vision",
	FusionVIO:        "vio",
	FusionIMUGNSS:    "imu_gnss",
	FusionVIOGNSS:    "vio_gnss",
}

func (s FusionStatus) Known() bool { _, ok := fusionStatusNames[s]; return ok }

func (s FusionStatus) String() string { return statusString(fusionStatusNames, s) }

// GNSSAided reports whether the fusion output is tied to GNSS.
func (s FusionStatus) GNSSAided() bool {
	return s == FusionIMUGNSS || s == FusionVIOGNSS
}

// IMUBiasStatus reports IMU bias convergence.
type IMUBiasStatus int

const (
	IMUBiasNotConverged IMUBiasStatus = 0
	IMUBiasConverged    IMUBiasStatus = 1
)

var imuBiasStatusNames = map[IMUBiasStatus]string{
	IMUBiasNotConverged: "not_converged",
	IMUBiasConverged:    "converged",
}

func (s IMUBiasStatus) Known() bool { _, ok := imuBiasStatusNames[s]; return ok }

func (s IMUBiasStatus) String() string { return statusString(imuBiasStatusNames, s) }

// FixStatus is the fix type of one GNSS receiver.
type FixStatus int

const (
	FixUnknown  FixStatus = 0
	FixNone     FixStatus = 1
	FixDROnly   FixStatus = 2
	FixTimeOnly FixStatus = 3
	Fix2D       FixStatus = 4
	Fix3D       FixStatus = 5
	Fix3DDR     FixStatus = 6
	FixRTKFloat FixStatus = 7
	FixRTKFixed FixStatus = 8
)

var fixStatusNames = map[FixStatus]string{
	FixUnknown:  "unknown",
	FixNone:     "no_fix",
	FixDROnly:   "dr_only",
	FixTimeOnly: "time_only",
	Fix2D:       "2d",
	Fix3D:       "3d",
	Fix3DDR:     "3d_dr",
	FixRTKFloat: "rtk_float",
	FixRTKFixed: "rtk_fixed",
}

func (s FixStatus) Known() bool { _, ok := fixStatusNames[s]; return ok }

func (s FixStatus) String() string { return statusString(fixStatusNames, s) }

// WheelspeedStatus reports wheel speed sensor convergence. -1 means no wheel
// speed input is configured.
type WheelspeedStatus int

const (
	WheelspeedDisabled     WheelspeedStatus = -1
	WheelspeedNotConverged WheelspeedStatus = 0
	WheelspeedConverged    WheelspeedStatus = 1
)

var wheelspeedStatusNames = map[WheelspeedStatus]string{
	WheelspeedDisabled:     "disabled",
	WheelspeedNotConverged: "not_converged",
	WheelspeedConverged:    "converged",
}

func (s WheelspeedStatus) Known() bool { _, ok := wheelspeedStatusNames[s]; return ok }

func (s WheelspeedStatus) String() string { return statusString(wheelspeedStatusNames, s) }

func statusString[T ~int](names map[T]string, v T) string {
	if name, ok := names[v]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}
