package fpa

import (
	"github.com/google/go-cmp/cmp"
	"gonum.org/v1/gonum/mat"
)

// Sample lines as emitted by a sensor, framing already stripped.
var fixtureLines = map[string]string{
	HeaderOdometry: "FP,ODOMETRY,2,2231,227610.750000,4279243.1641,635824.2171,4671589.8683," +
		"-0.412792,0.290804,-0.123898,0.854216," +
		"-0.0032,-0.0024,0.0047," +
		"0.0037,-0.0045,0.0012," +
		"0.0034,-0.0051,9.8020," +
		"4,1,8,8,1," +
		"0.01044,0.01183,0.01165,-0.00429,0.00476,-0.00563," +
		"0.00081,0.00059,0.00119,0.00025,-0.00026,0.00011," +
		"0.00036,0.00032,0.00051,-0.00013,0.00014,-0.00017," +
		"fp_release_vr2_2.54.0_160",
	HeaderOdomENU: "FP,ODOMENU,1,2231,227610.750000,-1.8728,3.2335,-0.6302," +
		"-0.412792,0.290804,-0.123898,0.854216," +
		"-0.0032,-0.0024,0.0047," +
		"0.0037,-0.0045,0.0012," +
		"0.0034,-0.0051,9.8020," +
		"3,1,7,5,-1," +
		"0.01044,0.01183,0.01165,-0.00429,0.00476,-0.00563," +
		"0.00081,0.00059,0.00119,0.00025,-0.00026,0.00011," +
		"0.00036,0.00032,0.00051,-0.00013,0.00014,-0.00017",
	HeaderOdomSH: "FP,ODOMSH,1,2231,227610.750000,4279243.5012,635824.0198,4671589.1120," +
		"-0.412792,0.290804,-0.123898,0.854216," +
		"-0.0032,-0.0024,0.0047," +
		"0.0037,-0.0045,0.0012," +
		"0.0034,-0.0051,9.8020," +
		"4,1,8,8,0," +
		"0.01044,0.01183,0.01165,-0.00429,0.00476,-0.00563," +
		"0.00081,0.00059,0.00119,0.00025,-0.00026,0.00011," +
		"0.00036,0.00032,0.00051,-0.00013,0.00014,-0.00017",
	HeaderLLH:      "FP,LLH,1,2231,227610.750000,47.392357470,8.448121451,473.5857,0.04533,0.03363,0.02884,0.00417,0.00086,-0.00136",
	HeaderTF:       "FP,TF,2,2233,315835.000000,VRTK,CAM,-0.13200,0.02100,0.51300,0.999912,0.001002,-0.013171,0.000087",
	HeaderRawIMU:   "FP,RAWIMU,1,2197,126191.777855,-0.199914,0.472851,9.917973,0.023436,0.007723,0.002131",
	HeaderCorrIMU:  "FP,CORRIMU,1,2197,126191.777855,-0.195016,0.393181,9.791279,0.000916,0.000546,-0.000450",
	HeaderGNSSAnt:  "FP,GNSSANT,1,2234,305129.200151,short,off,0,open,on,9",
	HeaderGNSSCorr: "FP,GNSSCORR,1,0,1609459200.0,1,8,6,1,7,5,0.1,1.0,0.95,2.0,5001,47.4,8.5,450.0,12000",
	HeaderText:     "FP,TEXT,1,INFO,Fixposition AG - www.fixposition.com",
}

// symDenseEqual lets cmp compare gonum matrices, whose fields are unexported.
var symDenseEqual = cmp.Comparer(func(a, b *mat.SymDense) bool {
	if a == nil || b == nil {
		return a == b
	}
	return mat.Equal(a, b)
})

func sym3(xx, yy, zz, xy, yz, xz float64) *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
}

func copyTokens(tokens []string) []string {
	return append([]string(nil), tokens...)
}
