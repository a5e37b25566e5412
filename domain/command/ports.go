package command

import "github.com/open-teleop/rover/domain/drive"

// Drive is the subset of the drive controller the router dispatches to.
type Drive interface {
	Forward()
	Backward()
	TurnLeft()
	TurnRight()
	ForwardLeft()
	ForwardRight()
	BackwardLeft()
	BackwardRight()
	PivotLeft()
	PivotRight()
	Stop()
	SetSpeed(speed int)
	SmoothTurn(left, right int)
	CurrentSpeed() int
}

// Sender delivers a reply payload to one connection of the transport.
type Sender interface {
	Send(connID string, payload []byte) error
}

// Journal records lifecycle events. Implementations must be quick; they run
// on the control loop.
type Journal interface {
	Record(kind, connID, detail string) error
}

// Compile-time assertion that the drive controller satisfies Drive
var _ Drive = (*drive.Controller)(nil)
