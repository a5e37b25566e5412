package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/open-teleop/rover/pkg/config"
)

type fakePublisher struct {
	robotIDs []string
}

func (p *fakePublisher) PublishConfigUpdatedNotification(robotID, version string) error {
	p.robotIDs = append(p.robotIDs, robotID)
	return nil
}

func newTestService(t *testing.T) (RoverConfigService, string) {
	t.Helper()
	cfg := &config.Config{RobotID: "rover-1"}
	cfg.Network.APPassword = "supersecret"
	cfg.OTA.Password = "admin123"
	cfg.ApplyDefaults()

	path := filepath.Join(t.TempDir(), config.BootstrapFileName)
	svc, err := NewRoverConfigService(path, cfg, nil)
	if err != nil {
		t.Fatalf("NewRoverConfigService failed: %v", err)
	}
	return svc, path
}

func TestGetCurrentConfigYAMLIsRedacted(t *testing.T) {
	svc, _ := newTestService(t)

	data, err := svc.GetCurrentConfigYAML()
	if err != nil {
		t.Fatalf("GetCurrentConfigYAML failed: %v", err)
	}
	if strings.Contains(string(data), "supersecret") || strings.Contains(string(data), "admin123") {
		t.Errorf("Secrets leaked into YAML:\n%s", data)
	}
	if !strings.Contains(string(data), "rover-1") {
		t.Errorf("Expected robot_id in YAML:\n%s", data)
	}
}

func TestUpdateConfigRoundTrip(t *testing.T) {
	svc, path := newTestService(t)
	pub := &fakePublisher{}
	svc.SetPublisher(pub)

	// Edit the redacted document and send it back
	data, _ := svc.GetCurrentConfigYAML()
	edited := strings.Replace(string(data), "robot_id: rover-1", "robot_id: rover-2", 1)

	if err := svc.UpdateConfig([]byte(edited)); err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}

	saved, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("Saved config unreadable: %v", err)
	}
	if saved.RobotID != "rover-2" {
		t.Errorf("Expected rover-2, got %s", saved.RobotID)
	}
	if saved.Network.APPassword != "supersecret" || saved.OTA.Password != "admin123" {
		t.Errorf("Masked secrets must keep their saved values, got %+v", saved.Network)
	}
	if svc.GetCurrentConfig().RobotID != "rover-2" {
		t.Error("Current config not updated")
	}
	if len(pub.robotIDs) != 1 || pub.robotIDs[0] != "rover-2" {
		t.Errorf("Expected one notification, got %v", pub.robotIDs)
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	svc, path := newTestService(t)

	for name, doc := range map[string]string{
		"bad yaml":      "server: [",
		"unknown field": "colour: red\n",
		"bad port":      "server:\n  http_port: 70000\n",
	} {
		if err := svc.UpdateConfig([]byte(doc)); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Rejected updates must not be written")
	}
	if svc.GetCurrentConfig().RobotID != "rover-1" {
		t.Error("Rejected updates must not change the current config")
	}
}
