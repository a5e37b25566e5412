package drive

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func newTestController() (*Controller, *SimulatedActuator) {
	act := NewSimulatedActuator()
	c := NewController(act, nil)
	if err := c.Begin(); err != nil {
		panic(err)
	}
	return c, act
}

func TestBegin(t *testing.T) {
	Convey("Begin enables the driver and brakes both wheels", t, func() {
		c, act := newTestController()

		So(act.Enabled(), ShouldBeTrue)
		So(c.State().Enabled, ShouldBeTrue)
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Direction: Brake})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Direction: Brake})
		So(c.CurrentSpeed(), ShouldEqual, DefaultSpeed)
	})

	Convey("Begin without an actuator fails", t, func() {
		c := NewController(nil, nil)
		So(c.Begin(), ShouldNotBeNil)
	})
}

func TestSetSpeed(t *testing.T) {
	c, act := newTestController()

	Convey("Speed is clamped to the PWM range", t, func() {
		cases := map[int]int{-40: 0, 0: 0, 90: 90, 255: 255, 256: 255, 100000: 255}
		for in, want := range cases {
			c.SetSpeed(in)
			So(c.CurrentSpeed(), ShouldEqual, want)
		}
	})

	Convey("Setting the speed does not move the wheels", t, func() {
		c.Stop()
		before := act.Writes()
		c.SetSpeed(200)
		So(act.Writes(), ShouldEqual, before)
		So(c.State().Motors, ShouldResemble, MotorPair{})
	})
}

func TestSymbolicMotions(t *testing.T) {
	c, act := newTestController()
	c.SetSpeed(200)

	Convey("Straight motions drive both wheels at base speed", t, func() {
		c.Forward()
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Forward, 200},
			Right: WheelOutput{Forward, 200},
		})

		c.Backward()
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Reverse, 200},
			Right: WheelOutput{Reverse, 200},
		})
	})

	Convey("Turns slow the inner wheel to 70%", t, func() {
		c.TurnLeft()
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Forward, 140})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Forward, 200})

		c.TurnRight()
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Forward, 200})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Forward, 140})
	})

	Convey("Arcs slow the inner wheel to 50%", t, func() {
		c.ForwardLeft()
		So(c.State().Motors.Left, ShouldResemble, WheelOutput{Forward, 100})
		So(c.State().Motors.Right, ShouldResemble, WheelOutput{Forward, 200})

		c.ForwardRight()
		So(c.State().Motors.Left, ShouldResemble, WheelOutput{Forward, 200})
		So(c.State().Motors.Right, ShouldResemble, WheelOutput{Forward, 100})

		c.BackwardLeft()
		So(c.State().Motors.Left, ShouldResemble, WheelOutput{Reverse, 100})
		So(c.State().Motors.Right, ShouldResemble, WheelOutput{Reverse, 200})

		c.BackwardRight()
		So(c.State().Motors.Left, ShouldResemble, WheelOutput{Reverse, 200})
		So(c.State().Motors.Right, ShouldResemble, WheelOutput{Reverse, 100})
	})

	Convey("Scaling truncates toward zero", t, func() {
		c.SetSpeed(151)
		c.TurnLeft()
		So(c.State().Motors.Left.Duty, ShouldEqual, 105)
		c.ForwardRight()
		So(c.State().Motors.Right.Duty, ShouldEqual, 75)
		c.SetSpeed(200)
	})

	Convey("Only pivots assign opposite directions", t, func() {
		c.PivotLeft()
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Reverse, 200},
			Right: WheelOutput{Forward, 200},
		})
		c.PivotRight()
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Forward, 200},
			Right: WheelOutput{Reverse, 200},
		})

		for _, motion := range []func(){
			c.Forward, c.Backward, c.TurnLeft, c.TurnRight,
			c.ForwardLeft, c.ForwardRight, c.BackwardLeft, c.BackwardRight,
		} {
			motion()
			m := c.State().Motors
			So(m.Left.Direction, ShouldEqual, m.Right.Direction)
		}
	})
}

func TestSmoothTurn(t *testing.T) {
	c, act := newTestController()

	Convey("Sign picks the direction per wheel", t, func() {
		c.SmoothTurn(-120, 80)
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Reverse, 120})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Forward, 80})
	})

	Convey("Zero counts as forward", t, func() {
		c.SmoothTurn(0, 0)
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Forward, 0},
			Right: WheelOutput{Forward, 0},
		})
	})

	Convey("Magnitudes are clamped", t, func() {
		c.SmoothTurn(1000, -1000)
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Forward, 255})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Reverse, 255})
	})

	Convey("Base speed has no effect", t, func() {
		c.SetSpeed(90)
		c.SmoothTurn(90, -90)
		So(c.State().Motors, ShouldResemble, MotorPair{
			Left:  WheelOutput{Forward, 90},
			Right: WheelOutput{Reverse, 90},
		})
		c.SetSpeed(10)
		c.SmoothTurn(90, -90)
		So(c.State().Motors.Left.Duty, ShouldEqual, 90)
	})
}

func TestStop(t *testing.T) {
	c, act := newTestController()

	Convey("Stop brakes both wheels from any state", t, func() {
		c.SetSpeed(255)
		c.PivotRight()
		c.Stop()
		So(act.Output(WheelLeft), ShouldResemble, WheelOutput{Direction: Brake})
		So(act.Output(WheelRight), ShouldResemble, WheelOutput{Direction: Brake})

		Convey("and is idempotent", func() {
			once := c.State()
			c.Stop()
			So(c.State(), ShouldResemble, once)
			So(c.CurrentSpeed(), ShouldEqual, 255)
		})
	})

	Convey("Actuator failures do not panic and state still records the intent", t, func() {
		act.FailWrites(errors.New("bus fault"))
		defer act.FailWrites(nil)

		So(func() { c.Forward() }, ShouldNotPanic)
		So(c.State().Motors.Left.Direction, ShouldEqual, Forward)
		So(func() { c.Stop() }, ShouldNotPanic)
	})
}
