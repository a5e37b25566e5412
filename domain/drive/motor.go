package drive

// Wheel identifies one side of the differential drive.
type Wheel uint8

const (
	WheelLeft Wheel = iota
	WheelRight
)

func (w Wheel) String() string {
	switch w {
	case WheelLeft:
		return "left"
	case WheelRight:
		return "right"
	default:
		return "unknown"
	}
}

// Direction is the state of a wheel's two drive lines.
type Direction uint8

const (
	// Brake de-asserts both drive lines.
	Brake Direction = iota
	Forward
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "brake"
	}
}

// MaxDuty is the top of the PWM range.
const MaxDuty = 255

// WheelOutput is what one wheel channel was last driven with.
type WheelOutput struct {
	Direction Direction `json:"direction"`
	Duty      int       `json:"duty"`
}

// MotorPair holds the outputs of both wheels.
type MotorPair struct {
	Left  WheelOutput `json:"left"`
	Right WheelOutput `json:"right"`
}

// State is a value snapshot of the controller.
type State struct {
	BaseSpeed int       `json:"base_speed"`
	Motors    MotorPair `json:"motors"`
	Enabled   bool      `json:"enabled"`
}

// Actuator is the motor driver the controller writes to.
// Writes are fire-and-forget from the controller's point of view; a returned
// error is only logged.
type Actuator interface {
	EnableDriver() error
	SetDirection(wheel Wheel, dir Direction) error
	SetDutyCycle(wheel Wheel, duty uint8) error
}

func clampDuty(v int) int {
	if v < 0 {
		return 0
	}
	if v > MaxDuty {
		return MaxDuty
	}
	return v
}
