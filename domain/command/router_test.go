package command

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/open-teleop/rover/domain/drive"
	"github.com/open-teleop/rover/pkg/processing"
)

type sentMessage struct {
	connID  string
	payload []byte
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) Send(connID string, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{connID, payload})
	return nil
}

type fakeJournal struct {
	kinds []string
}

func (f *fakeJournal) Record(kind, connID, detail string) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

// countingDrive wraps the real controller and counts Stop calls
type countingDrive struct {
	*drive.Controller
	stops int
}

func (c *countingDrive) Stop() {
	c.stops++
	c.Controller.Stop()
}

func newTestRouter(t *testing.T) (*Router, *countingDrive, *drive.SimulatedActuator, *fakeSender, *fakeJournal) {
	t.Helper()
	act := drive.NewSimulatedActuator()
	ctrl := drive.NewController(act, nil)
	if err := ctrl.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	d := &countingDrive{Controller: ctrl}
	sender := &fakeSender{}
	journal := &fakeJournal{}
	r := NewRouter(d, sender, nil, Options{Journal: journal})
	r.sleep = func(time.Duration) {}
	return r, d, act, sender, journal
}

func TestRouterConnectStopsAndGreets(t *testing.T) {
	r, d, _, sender, journal := newTestRouter(t)

	d.Forward()
	if err := r.Handle(processing.NewEvent(processing.EventConnected, "c1", nil)); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if d.State().Motors != (drive.MotorPair{}) {
		t.Errorf("Expected motors stopped on connect, got %+v", d.State().Motors)
	}
	if len(sender.sent) != 1 || sender.sent[0].connID != "c1" {
		t.Fatalf("Expected one welcome to c1, got %+v", sender.sent)
	}
	var w Welcome
	if err := json.Unmarshal(sender.sent[0].payload, &w); err != nil {
		t.Fatalf("Welcome is not JSON: %v", err)
	}
	if w.Type != "welcome" || w.Message == "" {
		t.Errorf("Unexpected welcome %+v", w)
	}
	if len(journal.kinds) != 1 || journal.kinds[0] != "connected" {
		t.Errorf("Unexpected journal entries %v", journal.kinds)
	}
}

func TestRouterDisconnectStopsFromAnyConnection(t *testing.T) {
	r, d, _, sender, _ := newTestRouter(t)

	_ = r.Connect("c1")
	_ = r.Connect("c2")
	if err := r.Message("c1", []byte(`{"cmd":"move","direction":"forward"}`)); err != nil {
		t.Fatalf("Message failed: %v", err)
	}
	if d.State().Motors.Left.Direction != drive.Forward {
		t.Fatal("Expected forward motion before disconnect")
	}

	// c2 never sent anything, but its departure still stops the vehicle
	sent := len(sender.sent)
	if err := r.Handle(processing.NewEvent(processing.EventDisconnected, "c2", nil)); err != nil {
		t.Fatalf("Disconnect failed: %v", err)
	}
	if d.State().Motors != (drive.MotorPair{}) {
		t.Errorf("Expected motors stopped on disconnect, got %+v", d.State().Motors)
	}
	if len(sender.sent) != sent {
		t.Error("Disconnect must not send anything")
	}
}

func TestRouterMessageAck(t *testing.T) {
	r, d, act, sender, _ := newTestRouter(t)

	if err := r.Message("c1", []byte(`{"cmd":"speed","value":200}`)); err != nil {
		t.Fatalf("speed failed: %v", err)
	}
	if err := r.Message("c1", []byte(`{"cmd":"move","direction":"left"}`)); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if got := act.Output(drive.WheelLeft); got != (drive.WheelOutput{Direction: drive.Forward, Duty: 140}) {
		t.Errorf("Unexpected left output %+v", got)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("Expected two acks, got %d", len(sender.sent))
	}
	var ack Ack
	if err := json.Unmarshal(sender.sent[1].payload, &ack); err != nil {
		t.Fatalf("Ack is not JSON: %v", err)
	}
	if ack.Status != "ok" || ack.Speed != 200 {
		t.Errorf("Unexpected ack %+v", ack)
	}
	if d.CurrentSpeed() != 200 {
		t.Errorf("Expected speed 200, got %d", d.CurrentSpeed())
	}
}

func TestRouterDropsBadMessagesSilently(t *testing.T) {
	r, d, act, sender, _ := newTestRouter(t)

	d.Backward()
	writes := act.Writes()
	before := d.State()

	for _, payload := range []string{`garbage`, `{"cmd":"fly"}`, `{"cmd":"move","direction":"up"}`, `{"cmd":"speed"}`} {
		if err := r.Message("c1", []byte(payload)); err == nil {
			t.Errorf("Expected error for %s", payload)
		}
	}

	if len(sender.sent) != 0 {
		t.Errorf("Rejected messages must not be acknowledged, got %d replies", len(sender.sent))
	}
	if d.State() != before || act.Writes() != writes {
		t.Error("Rejected messages must leave the drive untouched")
	}
}

func TestRouterStopCommandStopsTwice(t *testing.T) {
	r, d, _, _, _ := newTestRouter(t)

	var paused time.Duration
	r.sleep = func(p time.Duration) { paused = p }

	d.Forward()
	d.stops = 0
	if err := r.Request("S"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if d.stops != 2 {
		t.Errorf("Expected 2 stops, got %d", d.stops)
	}
	if paused != DefaultStopRepeatPause {
		t.Errorf("Expected pause %s, got %s", DefaultStopRepeatPause, paused)
	}

	d.stops = 0
	_ = r.Message("c1", []byte(`{"cmd":"move","direction":"stop"}`))
	if d.stops != 2 {
		t.Errorf("Expected 2 stops from message stop, got %d", d.stops)
	}
}

func TestRouterRequest(t *testing.T) {
	r, d, _, sender, _ := newTestRouter(t)

	if err := r.Request("SPD:300"); err != nil {
		t.Fatalf("SPD failed: %v", err)
	}
	if d.CurrentSpeed() != drive.MaxDuty {
		t.Errorf("Expected clamped speed %d, got %d", drive.MaxDuty, d.CurrentSpeed())
	}

	if err := r.Handle(processing.NewEvent(processing.EventRequest, "", []byte("PR"))); err != nil {
		t.Fatalf("PR failed: %v", err)
	}
	m := d.State().Motors
	if m.Left.Direction != drive.Forward || m.Right.Direction != drive.Reverse {
		t.Errorf("Expected pivot right, got %+v", m)
	}

	before := d.State()
	if err := r.Request("X"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand, got %v", err)
	}
	if err := r.Request("SPD:abc"); !errors.Is(err, ErrMalformed) {
		t.Errorf("Expected ErrMalformed, got %v", err)
	}
	if d.State() != before {
		t.Error("Rejected requests must leave the drive untouched")
	}
	if len(sender.sent) != 0 {
		t.Error("Requests never reply through the sender")
	}
}

func TestRouterHalt(t *testing.T) {
	r, d, _, _, journal := newTestRouter(t)

	d.SmoothTurn(100, 100)
	if err := r.Handle(processing.NewEvent(processing.EventHalt, "", []byte("firmware update"))); err != nil {
		t.Fatalf("Halt failed: %v", err)
	}
	if d.State().Motors != (drive.MotorPair{}) {
		t.Errorf("Expected motors stopped, got %+v", d.State().Motors)
	}
	if journal.kinds[len(journal.kinds)-1] != "halt" {
		t.Errorf("Expected halt journal entry, got %v", journal.kinds)
	}
}

func TestRouterConnectStillStopsWhenReplyFails(t *testing.T) {
	r, d, _, sender, _ := newTestRouter(t)
	sender.err = errors.New("closed")

	d.Forward()
	if err := r.Connect("c1"); err == nil {
		t.Error("Expected reply error to surface")
	}
	if d.State().Motors != (drive.MotorPair{}) {
		t.Error("Stop must happen before the reply")
	}
}
