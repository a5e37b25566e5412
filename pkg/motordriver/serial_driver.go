// Package motordriver talks to a microcontroller that owns the H-bridge pins.
//
// The wire format is one ASCII line per write:
//
//	E              assert the driver enable (STBY) line
//	D <L|R> <F|R|B> set a wheel's direction lines: forward, reverse, brake
//	P <L|R> <duty>  set a wheel's PWM duty, 0..255
package motordriver

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
	"github.com/open-teleop/rover/domain/drive"
)

// SerialDriver implements drive.Actuator over a serial line
type SerialDriver struct {
	port io.WriteCloser
	lock sync.Mutex
}

// Open opens the serial device at address
func Open(address string, baudRate int) (*SerialDriver, error) {
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", address, err)
	}
	return New(port), nil
}

// New wraps an already open port
func New(port io.WriteCloser) *SerialDriver {
	return &SerialDriver{port: port}
}

func (d *SerialDriver) EnableDriver() error {
	return d.writeLine("E\n")
}

func (d *SerialDriver) SetDirection(wheel drive.Wheel, dir drive.Direction) error {
	var code byte
	switch dir {
	case drive.Forward:
		code = 'F'
	case drive.Reverse:
		code = 'R'
	default:
		code = 'B'
	}
	return d.writeLine(fmt.Sprintf("D %c %c\n", wheelCode(wheel), code))
}

func (d *SerialDriver) SetDutyCycle(wheel drive.Wheel, duty uint8) error {
	return d.writeLine(fmt.Sprintf("P %c %d\n", wheelCode(wheel), duty))
}

func (d *SerialDriver) Close() error {
	return d.port.Close()
}

func (d *SerialDriver) writeLine(line string) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if _, err := io.WriteString(d.port, line); err != nil {
		return fmt.Errorf("motor driver write %q: %w", line[:len(line)-1], err)
	}
	return nil
}

func wheelCode(w drive.Wheel) byte {
	if w == drive.WheelRight {
		return 'R'
	}
	return 'L'
}

var _ drive.Actuator = (*SerialDriver)(nil)
