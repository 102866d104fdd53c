// Package place models the logical devices that program steps run on.
// Each place owns a device context that serializes asynchronous work,
// so callers can flush a device with a single Wait.
package place

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrBadPlace reports an unparseable place string.
var ErrBadPlace = errors.New("bad place")

// Kind identifies the device class of a place.
type Kind uint8

// CPU is the only device class in the pure-Go runtime.
const CPU Kind = iota

// String returns the device class name.
func (k Kind) String() string {
	if k == CPU {
		return "cpu"
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Place identifies one logical device, such as cpu:0.
type Place struct {
	Kind   Kind
	Device int
}

// String formats the place as kind:device.
func (p Place) String() string {
	return fmt.Sprintf("%s:%d", p.Kind, p.Device)
}

// Parse converts a string such as "cpu:1" into a Place. A bare "cpu"
// means device 0.
func Parse(s string) (Place, error) {
	name, deviceStr, found := strings.Cut(s, ":")
	if name != "cpu" {
		return Place{}, fmt.Errorf("%w: %q", ErrBadPlace, s)
	}

	if !found {
		return Place{Kind: CPU}, nil
	}

	device, err := strconv.Atoi(deviceStr)
	if err != nil || device < 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrBadPlace, s)
	}

	return Place{Kind: CPU, Device: device}, nil
}
