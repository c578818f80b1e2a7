package source

import (
	"sort"
	"strings"

	"go.bug.st/serial"
)

// listPorts is swapped in tests.
var listPorts = serial.GetPortsList

// autoDetectDevice picks the first USB serial port. The sensor's USB
// interface enumerates as a CDC-ACM device; USB-UART adapters on its
// auxiliary port show up as ttyUSB.
func autoDetectDevice() (string, error) {
	ports, err := listPorts()
	if err != nil {
		return "", err
	}
	return pickDevice(ports), nil
}

func pickDevice(ports []string) string {
	rank := func(p string) int {
		switch {
		case strings.Contains(p, "ttyACM"):
			return 0
		case strings.Contains(p, "ttyUSB"):
			return 1
		case strings.Contains(p, "usbmodem"), strings.Contains(p, "usbserial"):
			return 2
		case strings.HasPrefix(p, "COM"):
			return 3
		default:
			return -1
		}
	}

	cands := make([]string, 0, len(ports))
	for _, p := range ports {
		if rank(p) >= 0 {
			cands = append(cands, p)
		}
	}
	if len(cands) == 0 {
		return ""
	}
	sort.SliceStable(cands, func(i, j int) bool {
		ri, rj := rank(cands[i]), rank(cands[j])
		if ri != rj {
			return ri < rj
		}
		return cands[i] < cands[j]
	})
	return cands[0]
}
