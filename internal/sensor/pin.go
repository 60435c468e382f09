package sensor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrUnexpectedPinValue is returned when a GPIO value file holds neither 0 nor 1.
var ErrUnexpectedPinValue = errors.New("unexpected pin value")

// Pin is a digital input.
type Pin interface {
	Read() (bool, error)
}

// PinFunc adapts a function to Pin.
type PinFunc func() (bool, error)

// Read implements Pin.
func (f PinFunc) Read() (bool, error) {
	return f()
}

// StaticPin is a pin whose level is set in software, used for simulation.
type StaticPin struct {
	level atomic.Bool
}

// Set changes the pin level.
func (p *StaticPin) Set(asserted bool) {
	p.level.Store(asserted)
}

// Read implements Pin.
func (p *StaticPin) Read() (bool, error) {
	return p.level.Load(), nil
}

// SysfsPin reads a Linux sysfs GPIO value file such as /sys/class/gpio/gpio5/value.
type SysfsPin struct {
	path string
}

// NewSysfsPin creates a pin reading the value file at path.
func NewSysfsPin(path string) *SysfsPin {
	return &SysfsPin{path: filepath.Clean(path)}
}

// Read implements Pin.
func (p *SysfsPin) Read() (bool, error) {
	contents, err := os.ReadFile(p.path)
	if err != nil {
		return false, fmt.Errorf("read pin value: %w", err)
	}

	switch string(bytes.TrimSpace(contents)) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	default:
		return false, fmt.Errorf("%s: %q: %w", p.path, contents, ErrUnexpectedPinValue)
	}
}
