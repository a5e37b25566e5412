package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrMalformed indicates a message that could not be decoded or lacks a
	// required field.
	ErrMalformed = errors.New("malformed command")
	// ErrUnknownCommand indicates a well-formed message with an unrecognised tag.
	ErrUnknownCommand = errors.New("unknown command")
)

// Kind discriminates the Command variants.
type Kind uint8

const (
	KindMove Kind = iota + 1
	KindSetSpeed
	KindDifferential
)

// Motion is a symbolic movement carried by a Move command.
type Motion uint8

const (
	MotionStop Motion = iota
	MotionForward
	MotionBackward
	MotionLeft
	MotionRight
	MotionForwardLeft
	MotionForwardRight
	MotionBackwardLeft
	MotionBackwardRight
	MotionPivotLeft
	MotionPivotRight
)

var motionNames = map[Motion]string{
	MotionStop:          "stop",
	MotionForward:       "forward",
	MotionBackward:      "backward",
	MotionLeft:          "left",
	MotionRight:         "right",
	MotionForwardLeft:   "forward_left",
	MotionForwardRight:  "forward_right",
	MotionBackwardLeft:  "backward_left",
	MotionBackwardRight: "backward_right",
	MotionPivotLeft:     "pivot_left",
	MotionPivotRight:    "pivot_right",
}

func (m Motion) String() string {
	if name, ok := motionNames[m]; ok {
		return name
	}
	return fmt.Sprintf("motion(%d)", uint8(m))
}

// Short tags accepted by the request-style surface.
var shortTags = map[string]Motion{
	"F":  MotionForward,
	"B":  MotionBackward,
	"L":  MotionLeft,
	"R":  MotionRight,
	"FL": MotionForwardLeft,
	"FR": MotionForwardRight,
	"BL": MotionBackwardLeft,
	"BR": MotionBackwardRight,
	"S":  MotionStop,
	"PL": MotionPivotLeft,
	"PR": MotionPivotRight,
}

// Direction names accepted in message-style `move` commands.
var directionNames = func() map[string]Motion {
	m := make(map[string]Motion, len(motionNames))
	for motion, name := range motionNames {
		m[name] = motion
	}
	return m
}()

const speedTagPrefix = "SPD:"

// Command is one decoded instruction. Only the fields of its Kind are meaningful.
type Command struct {
	Kind      Kind
	Motion    Motion // KindMove
	Magnitude int    // KindSetSpeed
	Left      int    // KindDifferential
	Right     int    // KindDifferential
}

func Move(m Motion) Command         { return Command{Kind: KindMove, Motion: m} }
func SetSpeed(n int) Command        { return Command{Kind: KindSetSpeed, Magnitude: n} }
func Differential(l, r int) Command { return Command{Kind: KindDifferential, Left: l, Right: r} }

func (c Command) String() string {
	switch c.Kind {
	case KindMove:
		return "move:" + c.Motion.String()
	case KindSetSpeed:
		return "speed:" + strconv.Itoa(c.Magnitude)
	case KindDifferential:
		return fmt.Sprintf("custom:%d,%d", c.Left, c.Right)
	default:
		return "invalid"
	}
}

// ParseTag decodes a request-style tag: one of the short motion tags or
// SPD:<integer>.
func ParseTag(tag string) (Command, error) {
	if motion, ok := shortTags[tag]; ok {
		return Move(motion), nil
	}
	if strings.HasPrefix(tag, speedTagPrefix) {
		n, err := strconv.Atoi(strings.TrimSpace(tag[len(speedTagPrefix):]))
		if err != nil {
			return Command{}, fmt.Errorf("%w: speed tag %q", ErrMalformed, tag)
		}
		return SetSpeed(n), nil
	}
	return Command{}, fmt.Errorf("%w: tag %q", ErrUnknownCommand, tag)
}

// Message is the structured payload of the message-style surface.
type Message struct {
	Cmd       string   `json:"cmd"`
	Direction string   `json:"direction,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Left      *float64 `json:"left,omitempty"`
	Right     *float64 `json:"right,omitempty"`
}

// DecodeMessage decodes a message-style JSON payload. Numbers are truncated
// toward zero; range is left to the drive controller.
func DecodeMessage(payload []byte) (Command, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch msg.Cmd {
	case "move":
		if msg.Direction == "" {
			return Command{}, fmt.Errorf("%w: move without direction", ErrMalformed)
		}
		motion, ok := directionNames[msg.Direction]
		if !ok {
			return Command{}, fmt.Errorf("%w: direction %q", ErrUnknownCommand, msg.Direction)
		}
		return Move(motion), nil
	case "speed":
		if msg.Value == nil {
			return Command{}, fmt.Errorf("%w: speed without value", ErrMalformed)
		}
		return SetSpeed(toInt(*msg.Value)), nil
	case "custom":
		return Differential(optionalInt(msg.Left), optionalInt(msg.Right)), nil
	case "":
		return Command{}, fmt.Errorf("%w: missing cmd", ErrMalformed)
	default:
		return Command{}, fmt.Errorf("%w: cmd %q", ErrUnknownCommand, msg.Cmd)
	}
}

func optionalInt(v *float64) int {
	if v == nil {
		return 0
	}
	return toInt(*v)
}

// toInt truncates toward zero and saturates at the int32 range so absurd
// inputs still clamp cleanly downstream.
func toInt(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int(v)
}
