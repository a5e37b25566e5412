package drive

import (
	"fmt"

	customlog "github.com/open-teleop/rover/pkg/log"
)

// DefaultSpeed is the base speed a new controller starts with.
const DefaultSpeed = 150

// Inner-wheel ratios, expressed as integer fractions so scaling truncates
// toward zero deterministically.
const (
	turnRatioNum, turnRatioDen = 7, 10 // TurnLeft/TurnRight
	arcRatioNum, arcRatioDen   = 1, 2  // ForwardLeft/.../BackwardRight
)

// Controller converts motion intents into per-wheel outputs and owns the base
// speed. It holds no locks: callers must serialise access, which the event
// loop does.
type Controller struct {
	actuator  Actuator
	logger    customlog.Logger
	baseSpeed int
	motors    MotorPair
	enabled   bool
}

// NewController creates a controller writing to actuator. Begin must be called
// before the first motion primitive.
func NewController(actuator Actuator, logger customlog.Logger) *Controller {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &Controller{
		actuator:  actuator,
		logger:    logger.WithField("component", "drive"),
		baseSpeed: DefaultSpeed,
	}
}

// Begin enables the motor driver and leaves both wheels braked. A failure here
// means the actuator is unusable and the vehicle must not accept commands.
func (c *Controller) Begin() error {
	if c.actuator == nil {
		return fmt.Errorf("drive: no actuator configured")
	}
	if err := c.actuator.EnableDriver(); err != nil {
		return fmt.Errorf("drive: enable driver: %w", err)
	}
	c.enabled = true
	c.Stop()
	return nil
}

// SetSpeed stores the clamped magnitude as the base speed. Outputs are not
// touched until the next symbolic motion command.
func (c *Controller) SetSpeed(speed int) {
	c.baseSpeed = clampDuty(speed)
	c.logger.Debugf("Base speed set to %d (requested %d)", c.baseSpeed, speed)
}

// CurrentSpeed returns the base speed.
func (c *Controller) CurrentSpeed() int {
	return c.baseSpeed
}

func (c *Controller) Forward() {
	c.apply(Forward, c.baseSpeed, Forward, c.baseSpeed)
}

func (c *Controller) Backward() {
	c.apply(Reverse, c.baseSpeed, Reverse, c.baseSpeed)
}

// TurnLeft arcs left: the left wheel runs at 70% of base speed.
func (c *Controller) TurnLeft() {
	c.apply(Forward, c.scaled(turnRatioNum, turnRatioDen), Forward, c.baseSpeed)
}

// TurnRight arcs right: the right wheel runs at 70% of base speed.
func (c *Controller) TurnRight() {
	c.apply(Forward, c.baseSpeed, Forward, c.scaled(turnRatioNum, turnRatioDen))
}

func (c *Controller) ForwardLeft() {
	c.apply(Forward, c.scaled(arcRatioNum, arcRatioDen), Forward, c.baseSpeed)
}

func (c *Controller) ForwardRight() {
	c.apply(Forward, c.baseSpeed, Forward, c.scaled(arcRatioNum, arcRatioDen))
}

func (c *Controller) BackwardLeft() {
	c.apply(Reverse, c.scaled(arcRatioNum, arcRatioDen), Reverse, c.baseSpeed)
}

func (c *Controller) BackwardRight() {
	c.apply(Reverse, c.baseSpeed, Reverse, c.scaled(arcRatioNum, arcRatioDen))
}

// PivotLeft rotates in place counter-clockwise.
func (c *Controller) PivotLeft() {
	c.apply(Reverse, c.baseSpeed, Forward, c.baseSpeed)
}

// PivotRight rotates in place clockwise.
func (c *Controller) PivotRight() {
	c.apply(Forward, c.baseSpeed, Reverse, c.baseSpeed)
}

// SmoothTurn drives each wheel independently. The sign selects the direction
// and the clamped magnitude becomes the duty cycle; base speed is ignored.
func (c *Controller) SmoothTurn(left, right int) {
	ld, lm := signed(left)
	rd, rm := signed(right)
	c.logger.Debugf("SmoothTurn left=%d right=%d", left, right)
	c.apply(ld, lm, rd, rm)
}

// Stop de-asserts both drive lines and zeroes the duty on both wheels. It does
// not re-assert the driver enable line and is safe to call at any time.
func (c *Controller) Stop() {
	c.write(WheelLeft, WheelOutput{Direction: Brake})
	c.write(WheelRight, WheelOutput{Direction: Brake})
	c.motors = MotorPair{}
}

// State returns a snapshot of the base speed and last applied outputs.
func (c *Controller) State() State {
	return State{
		BaseSpeed: c.baseSpeed,
		Motors:    c.motors,
		Enabled:   c.enabled,
	}
}

func (c *Controller) scaled(num, den int) int {
	return c.baseSpeed * num / den
}

func (c *Controller) apply(leftDir Direction, leftDuty int, rightDir Direction, rightDuty int) {
	if err := c.actuator.EnableDriver(); err != nil {
		c.logger.Warnf("Failed to enable driver: %v", err)
	}
	c.enabled = true

	left := WheelOutput{Direction: leftDir, Duty: clampDuty(leftDuty)}
	right := WheelOutput{Direction: rightDir, Duty: clampDuty(rightDuty)}
	c.write(WheelLeft, left)
	c.write(WheelRight, right)
	c.motors = MotorPair{Left: left, Right: right}
}

func (c *Controller) write(wheel Wheel, out WheelOutput) {
	if err := c.actuator.SetDirection(wheel, out.Direction); err != nil {
		c.logger.Warnf("Failed to set %s direction to %s: %v", wheel, out.Direction, err)
	}
	if err := c.actuator.SetDutyCycle(wheel, uint8(out.Duty)); err != nil {
		c.logger.Warnf("Failed to set %s duty to %d: %v", wheel, out.Duty, err)
	}
}

func signed(v int) (Direction, int) {
	if v >= 0 {
		return Forward, clampDuty(v)
	}
	if v < -MaxDuty {
		return Reverse, MaxDuty
	}
	return Reverse, -v
}
