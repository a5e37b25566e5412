package diagnostic

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/rover/domain/drive"
	"github.com/open-teleop/rover/pkg/processing"
)

type staticCounter int

func (c staticCounter) Count() int { return int(c) }

type staticNetwork struct{}

func (staticNetwork) Mode() string      { return "ap" }
func (staticNetwork) Address() string   { return "192.168.4.1" }
func (staticNetwork) IsConnected() bool { return true }

func TestGetStatus(t *testing.T) {
	loop := processing.NewEventLoop("control", 4, nil)
	s := NewDiagnosticService("rover-1", Sources{
		Connections: staticCounter(2),
		Network:     staticNetwork{},
		Loop:        loop,
		Update:      func() interface{} { return map[string]string{"state": "idle"} },
	})

	state := drive.State{BaseSpeed: 180, Enabled: true}
	state.Motors.Left = drive.WheelOutput{Direction: drive.Forward, Duty: 180}
	s.UpdateDriveState(state)

	status := s.GetStatus()
	if status.Drive != state {
		t.Errorf("Expected latest drive state, got %+v", status.Drive)
	}
	if status.Connections != 2 || status.Network.Address != "192.168.4.1" || !status.Network.Connected {
		t.Errorf("Unexpected status %+v", status)
	}
	if status.RobotID != "rover-1" || status.Update == nil {
		t.Errorf("Unexpected status %+v", status)
	}
}

func TestGetMetricsHandler(t *testing.T) {
	s := NewDiagnosticService("rover-1", Sources{})
	s.UpdateDriveState(drive.State{BaseSpeed: 150})

	app := fiber.New()
	app.Get("/api/diagnostics", s.GetMetricsHandler)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/diagnostics", nil))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)

	var out struct {
		Status  string        `json:"status"`
		Metrics VehicleStatus `json:"metrics"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("Invalid JSON %s: %v", body, err)
	}
	if out.Status != "success" || out.Metrics.Drive.BaseSpeed != 150 {
		t.Errorf("Unexpected response %s", body)
	}
}
