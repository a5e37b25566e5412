// Package dfplayer drives a DFPlayer Mini style MP3 module over a serial line.
package dfplayer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// Frame layout: start, version, length, command, feedback, param hi/lo,
// checksum hi/lo, end.
const (
	frameStart   = 0x7E
	frameVersion = 0xFF
	frameLength  = 0x06
	frameEnd     = 0xEF
	frameSize    = 10
)

const (
	CmdPlayTrack = 0x03
	CmdVolume    = 0x06
	CmdEqualizer = 0x07
	CmdReset     = 0x0C
	CmdStop      = 0x16
)

// Equalizer presets
const (
	EqNormal = iota
	EqPop
	EqRock
	EqJazz
	EqClassic
	EqBass
)

const MaxVolume = 30

// Player writes command frames to the module. Feedback is not requested, so
// the module never answers and the player never reads.
type Player struct {
	port io.WriteCloser
	lock sync.Mutex
}

// Open opens the serial device at address
func Open(address string, baudRate int) (*Player, error) {
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
func New(port io.WriteCloser) *Player {
	return &Player{port: port}
}

// Frame encodes one command frame
func Frame(cmd byte, param uint16) []byte {
	buf := make([]byte, frameSize)
	buf[0] = frameStart
	buf[1] = frameVersion
	buf[2] = frameLength
	buf[3] = cmd
	buf[4] = 0x00
	buf[5] = byte(param >> 8)
	buf[6] = byte(param)

	var sum uint16
	for _, b := range buf[1:7] {
		sum += uint16(b)
	}
	chk := -sum
	buf[7] = byte(chk >> 8)
	buf[8] = byte(chk)
	buf[9] = frameEnd
	return buf
}

func (p *Player) send(cmd byte, param uint16) error {
	frame := Frame(cmd, param)

	p.lock.Lock()
	defer p.lock.Unlock()
	if _, err := p.port.Write(frame); err != nil {
		return fmt.Errorf("dfplayer command 0x%02X: %w", cmd, err)
	}
	return nil
}

// Play starts the numbered track
func (p *Player) Play(track int) error {
	if track < 1 || track > 2999 {
		return fmt.Errorf("track %d out of range", track)
	}
	return p.send(CmdPlayTrack, uint16(track))
}

// Stop stops playback
func (p *Player) Stop() error {
	return p.send(CmdStop, 0)
}

// SetVolume sets the volume, clamped to 0..30
func (p *Player) SetVolume(v int) error {
	if v < 0 {
		v = 0
	}
	if v > MaxVolume {
		v = MaxVolume
	}
	return p.send(CmdVolume, uint16(v))
}

// SetEqualizer selects one of the Eq presets
func (p *Player) SetEqualizer(eq int) error {
	if eq < EqNormal || eq > EqBass {
		return fmt.Errorf("equalizer %d out of range", eq)
	}
	return p.send(CmdEqualizer, uint16(eq))
}

// Reset restarts the module
func (p *Player) Reset() error {
	return p.send(CmdReset, 0)
}

func (p *Player) Close() error {
	return p.port.Close()
}
