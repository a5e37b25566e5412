package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeBootstrap(t *testing.T, content string) string {
	t.Helper()
	tempDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tempDir, BootstrapFileName), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return tempDir
}

func TestLoadBootstrapConfig(t *testing.T) {
	configContent := `
version: "1.0"
robot_id: "test-rover"

logging:
  level: "debug"

server:
  http_port: 8080
  websocket_port: 8081

drive:
  driver: "serial"
  serial_port: "/dev/ttyUSB0"
  default_speed: 180
  stop_repeat_pause: 25ms

network:
  mode: "station"
  ssid: "garage"
  password: "secret-pass"

audio:
  enabled: true
  serial_port: "/dev/ttyS1"
  song_max: 5
`
	dir := writeBootstrap(t, configContent)

	config, err := LoadBootstrapConfig(dir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}

	if config.RobotID != "test-rover" {
		t.Errorf("Expected robot_id test-rover, got %s", config.RobotID)
	}
	if config.Server.HTTPPort != 8080 || config.Server.WebSocketPort != 8081 {
		t.Errorf("Unexpected server ports: %+v", config.Server)
	}
	if config.Drive.Driver != DriverSerial || config.Drive.SerialPort != "/dev/ttyUSB0" {
		t.Errorf("Unexpected drive config: %+v", config.Drive)
	}
	if config.Drive.StopRepeatPause != 25*time.Millisecond {
		t.Errorf("Expected stop pause 25ms, got %s", config.Drive.StopRepeatPause)
	}
	if config.Network.Mode != NetworkModeStation || config.Network.SSID != "garage" {
		t.Errorf("Unexpected network config: %+v", config.Network)
	}

	// Defaults fill what the file leaves out
	if config.Drive.BaudRate != 115200 {
		t.Errorf("Expected default baud rate 115200, got %d", config.Drive.BaudRate)
	}
	if config.Network.APSSID != "RC_Araba_AP" || config.Network.JoinAttempts != 20 {
		t.Errorf("Expected fallback AP defaults, got %+v", config.Network)
	}
	if config.Network.CheckInterval != 30*time.Second {
		t.Errorf("Expected link check every 30s, got %s", config.Network.CheckInterval)
	}
	if config.Audio.HornTrack != 11 || config.Audio.SirenTrack != 12 || config.Audio.SongMin != 1 || config.Audio.SongMax != 5 {
		t.Errorf("Unexpected audio config: %+v", config.Audio)
	}
	if config.OTA.FirmwareVersion != "1.0.0" {
		t.Errorf("Expected default firmware version, got %s", config.OTA.FirmwareVersion)
	}
}

func TestLoadBootstrapConfigDefaultsOnly(t *testing.T) {
	dir := writeBootstrap(t, "")

	config, err := LoadBootstrapConfig(dir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed on empty file: %v", err)
	}
	if config.Drive.Driver != DriverSimulated {
		t.Errorf("Expected simulated driver by default, got %s", config.Drive.Driver)
	}
	if config.Server.HTTPPort != 80 || config.Server.WebSocketPort != 81 {
		t.Errorf("Expected ports 80/81, got %d/%d", config.Server.HTTPPort, config.Server.WebSocketPort)
	}
	if config.Drive.DefaultSpeed != 150 {
		t.Errorf("Expected default speed 150, got %d", config.Drive.DefaultSpeed)
	}
	if config.Network.Mode != NetworkModeAP {
		t.Errorf("Expected AP mode by default, got %s", config.Network.Mode)
	}
}

func TestLoadBootstrapConfigEnvOverrides(t *testing.T) {
	dir := writeBootstrap(t, "drive:\n  default_speed: 100\n")

	t.Setenv("ROVER_DRIVE_DEFAULT_SPEED", "220")
	t.Setenv("ROVER_SERVER_HTTP_PORT", "9090")
	t.Setenv("ROVER_TELEMETRY_ENABLED", "true")
	t.Setenv("ROVER_NETWORK_CHECK_INTERVAL", "5s")

	config, err := LoadBootstrapConfig(dir)
	if err != nil {
		t.Fatalf("LoadBootstrapConfig failed: %v", err)
	}
	if config.Drive.DefaultSpeed != 220 {
		t.Errorf("Expected env override 220, got %d", config.Drive.DefaultSpeed)
	}
	if config.Server.HTTPPort != 9090 {
		t.Errorf("Expected env override 9090, got %d", config.Server.HTTPPort)
	}
	if !config.Telemetry.Enabled {
		t.Error("Expected telemetry enabled by env")
	}
	if config.Network.CheckInterval != 5*time.Second {
		t.Errorf("Expected 5s check interval, got %s", config.Network.CheckInterval)
	}
}

func TestLoadBootstrapConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"unknown driver", "drive:\n  driver: can\n", "drive.driver"},
		{"serial without port", "drive:\n  driver: serial\n", "drive.serial_port"},
		{"station without ssid", "network:\n  mode: station\n", "network.ssid"},
		{"speed out of range", "drive:\n  default_speed: 300\n", "drive.default_speed"},
		{"same ports", "server:\n  http_port: 81\n", "websocket_port"},
		{"bad firmware version", "ota:\n  firmware_version: banana\n", "firmware_version"},
		{"ota without password", "ota:\n  enabled: true\n", "password"},
		{"unknown field", "drive:\n  turbo: true\n", "turbo"},
		{"negative check interval", "network:\n  check_interval: -1s\n", "network.check_interval"},
		{"negative join interval", "network:\n  join_interval: -500ms\n", "network.join_interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeBootstrap(t, tt.content)
			_, err := LoadBootstrapConfig(dir)
			if err == nil {
				t.Fatalf("Expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadBootstrapConfigRejectsZeroIntervalFromEnv(t *testing.T) {
	dir := writeBootstrap(t, "drive:\n  default_speed: 100\n")
	t.Setenv("ROVER_NETWORK_CHECK_INTERVAL", "0s")

	_, err := LoadBootstrapConfig(dir)
	if err == nil || !strings.Contains(err.Error(), "network.check_interval") {
		t.Errorf("Expected check_interval error, got %v", err)
	}
}

func TestLoadBootstrapConfigMissingFile(t *testing.T) {
	if _, err := LoadBootstrapConfig(t.TempDir()); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestRedactedAndKeepSecrets(t *testing.T) {
	cfg, err := ParseConfig([]byte("network:\n  password: wifi-secret\nota:\n  password: admin123\n"))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}

	red := cfg.Redacted()
	if red.Network.Password == "wifi-secret" || red.OTA.Password == "admin123" {
		t.Error("Secrets must be masked")
	}
	if cfg.OTA.Password != "admin123" {
		t.Error("Redacted must not modify the original")
	}
	if red.OTA.TokenSecret != "" {
		t.Error("Empty secrets stay empty")
	}

	data, err := red.ToYAML()
	if err != nil {
		t.Fatalf("ToYAML failed: %v", err)
	}
	if strings.Contains(string(data), "admin123") {
		t.Error("Redacted YAML leaked a secret")
	}

	edited, err := ParseConfig(data)
	if err != nil {
		t.Fatalf("ParseConfig of redacted YAML failed: %v", err)
	}
	edited.KeepSecrets(cfg)
	if edited.Network.Password != "wifi-secret" || edited.OTA.Password != "admin123" {
		t.Errorf("Expected secrets restored, got %q / %q", edited.Network.Password, edited.OTA.Password)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg, _ := ParseConfig([]byte("robot_id: saved\n"))
	path := filepath.Join(t.TempDir(), BootstrapFileName)

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.RobotID != "saved" || loaded.Drive.StopRepeatPause != 10*time.Millisecond {
		t.Errorf("Unexpected round trip result: %+v", loaded)
	}
}
