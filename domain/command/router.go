package command

import (
	"encoding/json"
	"fmt"
	"time"

	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/pkg/processing"
)

// DefaultStopRepeatPause is the pause between the two stop calls of a stop
// command.
const DefaultStopRepeatPause = 10 * time.Millisecond

// WelcomeMessage is the greeting sent to every new control connection.
const WelcomeMessage = "Welcome to the rover!"

// Ack is sent after every message-style command that was dispatched.
type Ack struct {
	Status string `json:"status"`
	Speed  int    `json:"speed"`
}

// Welcome is sent once when a control connection opens.
type Welcome struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Options tunes a Router.
type Options struct {
	// StopRepeatPause separates the two stop calls of a stop command.
	// Zero selects DefaultStopRepeatPause; negative disables the pause.
	StopRepeatPause time.Duration
	// Journal, if set, receives connection lifecycle entries.
	Journal Journal
}

// Router decodes control events and applies them to the drive. It also owns
// the connection safety rule: every connect and every disconnect stops the
// vehicle before anything else happens.
//
// Router is not safe for concurrent use; it is driven by a single event loop.
type Router struct {
	drive     Drive
	sender    Sender
	journal   Journal
	logger    customlog.Logger
	stopPause time.Duration
	sleep     func(time.Duration)
}

// NewRouter creates a router dispatching to d and replying through sender.
func NewRouter(d Drive, sender Sender, logger customlog.Logger, opts Options) *Router {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	pause := opts.StopRepeatPause
	if pause == 0 {
		pause = DefaultStopRepeatPause
	}
	return &Router{
		drive:     d,
		sender:    sender,
		journal:   opts.Journal,
		logger:    logger.WithField("component", "router"),
		stopPause: pause,
		sleep:     time.Sleep,
	}
}

// Handle processes one loop event. It is the loop's EventHandler.
func (r *Router) Handle(ev *processing.Event) error {
	switch ev.Kind {
	case processing.EventConnected:
		return r.Connect(ev.ConnID)
	case processing.EventDisconnected:
		return r.Disconnect(ev.ConnID)
	case processing.EventMessage:
		return r.Message(ev.ConnID, ev.Payload)
	case processing.EventRequest:
		return r.Request(string(ev.Payload))
	case processing.EventHalt:
		return r.Halt(string(ev.Payload))
	default:
		return fmt.Errorf("unsupported event kind %s", ev.Kind)
	}
}

// Connect stops the vehicle and greets the new connection.
func (r *Router) Connect(connID string) error {
	r.drive.Stop()
	r.logger.Infof("Control connection %s opened, drive stopped", connID)
	r.record("connected", connID, "")

	return r.reply(connID, Welcome{Type: "welcome", Message: WelcomeMessage})
}

// Disconnect stops the vehicle. Abnormal losses are handled the same way.
func (r *Router) Disconnect(connID string) error {
	r.drive.Stop()
	r.logger.Infof("Control connection %s closed, drive stopped", connID)
	r.record("disconnected", connID, "")
	return nil
}

// Message decodes a message-style payload, dispatches it and acknowledges it
// with the current base speed. Undecodable or unknown messages are dropped
// without a reply and leave the drive untouched.
func (r *Router) Message(connID string, payload []byte) error {
	cmd, err := DecodeMessage(payload)
	if err != nil {
		return fmt.Errorf("message from %s dropped: %w", connID, err)
	}

	r.Dispatch(cmd)

	return r.reply(connID, Ack{Status: "ok", Speed: r.drive.CurrentSpeed()})
}

// Request decodes and dispatches a request-style tag. The returned error wraps
// ErrMalformed or ErrUnknownCommand when the tag is rejected.
func (r *Router) Request(tag string) error {
	cmd, err := ParseTag(tag)
	if err != nil {
		return err
	}
	r.Dispatch(cmd)
	return nil
}

// Halt stops the vehicle on behalf of a non-control collaborator, such as a
// firmware update or process shutdown.
func (r *Router) Halt(reason string) error {
	r.drive.Stop()
	r.logger.Warnf("Drive halted: %s", reason)
	r.record("halt", "", reason)
	return nil
}

// Dispatch invokes exactly one drive primitive for cmd. Stop is applied twice
// with a short pause, guarding against a single dropped actuator write.
func (r *Router) Dispatch(cmd Command) {
	r.logger.Debugf("Dispatching %s", cmd)

	switch cmd.Kind {
	case KindSetSpeed:
		r.drive.SetSpeed(cmd.Magnitude)
	case KindDifferential:
		r.drive.SmoothTurn(cmd.Left, cmd.Right)
	case KindMove:
		r.move(cmd.Motion)
	}
}

func (r *Router) move(m Motion) {
	switch m {
	case MotionForward:
		r.drive.Forward()
	case MotionBackward:
		r.drive.Backward()
	case MotionLeft:
		r.drive.TurnLeft()
	case MotionRight:
		r.drive.TurnRight()
	case MotionForwardLeft:
		r.drive.ForwardLeft()
	case MotionForwardRight:
		r.drive.ForwardRight()
	case MotionBackwardLeft:
		r.drive.BackwardLeft()
	case MotionBackwardRight:
		r.drive.BackwardRight()
	case MotionPivotLeft:
		r.drive.PivotLeft()
	case MotionPivotRight:
		r.drive.PivotRight()
	case MotionStop:
		r.drive.Stop()
		if r.stopPause > 0 {
			r.sleep(r.stopPause)
		}
		r.drive.Stop()
	}
}

func (r *Router) reply(connID string, v interface{}) error {
	if r.sender == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}
	if err := r.sender.Send(connID, data); err != nil {
		return fmt.Errorf("failed to reply to %s: %w", connID, err)
	}
	return nil
}

func (r *Router) record(kind, connID, detail string) {
	if r.journal == nil {
		return
	}
	if err := r.journal.Record(kind, connID, detail); err != nil {
		r.logger.Warnf("Failed to journal %s event: %v", kind, err)
	}
}
