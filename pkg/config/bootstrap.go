package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/caarlos0/env/v11"
)

// BootstrapFileName is the configuration file looked up in the config directory
const BootstrapFileName = "rover_config.yaml"

// EnvPrefix prefixes every environment override, e.g. ROVER_DRIVE_DRIVER
const EnvPrefix = "ROVER_"

const (
	DriverSimulated = "simulated"
	DriverSerial    = "serial"

	NetworkModeAP      = "ap"
	NetworkModeStation = "station"
)

// LoadBootstrapConfig loads rover_config.yaml from configDir, applies
// defaults and ROVER_* environment overrides, then validates the result.
func LoadBootstrapConfig(configDir string) (*Config, error) {
	bootstrapConfigPath := filepath.Join(configDir, BootstrapFileName)

	cfg, err := LoadConfig(bootstrapConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error loading bootstrap config '%s': %w", bootstrapConfigPath, err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bootstrap config '%s': %w", bootstrapConfigPath, err)
	}

	return cfg, nil
}

// ApplyEnv overlays ROVER_* environment variables onto cfg
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("error applying environment overrides: %w", err)
	}
	return nil
}

// ApplyDefaults fills every unset field with its default
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.RobotID == "" {
		c.RobotID = "rover"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = 7
	}

	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 80
	}
	if c.Server.WebSocketPort == 0 {
		c.Server.WebSocketPort = 81
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./data"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 16
	}

	if c.Processing.QueueSize == 0 {
		c.Processing.QueueSize = 64
	}

	if c.Drive.Driver == "" {
		c.Drive.Driver = DriverSimulated
	}
	if c.Drive.BaudRate == 0 {
		c.Drive.BaudRate = 115200
	}
	if c.Drive.DefaultSpeed == 0 {
		c.Drive.DefaultSpeed = 150
	}
	if c.Drive.StopRepeatPause == 0 {
		c.Drive.StopRepeatPause = 10 * time.Millisecond
	}

	if c.Network.Mode == "" {
		c.Network.Mode = NetworkModeAP
	}
	if c.Network.Interface == "" {
		c.Network.Interface = "wlan0"
	}
	if c.Network.APSSID == "" {
		c.Network.APSSID = "RC_Araba_AP"
	}
	if c.Network.APPassword == "" {
		c.Network.APPassword = "12345678"
	}
	if c.Network.JoinAttempts == 0 {
		c.Network.JoinAttempts = 20
	}
	if c.Network.JoinInterval == 0 {
		c.Network.JoinInterval = 500 * time.Millisecond
	}
	if c.Network.CheckInterval == 0 {
		c.Network.CheckInterval = 30 * time.Second
	}
	if c.Network.AccessPointAddress == "" {
		c.Network.AccessPointAddress = "192.168.4.1"
	}

	if c.Telemetry.PublishBindAddress == "" {
		c.Telemetry.PublishBindAddress = "tcp://*:5555"
	}
	if c.Telemetry.RequestBindAddress == "" {
		c.Telemetry.RequestBindAddress = "tcp://*:5556"
	}

	if c.Audio.BaudRate == 0 {
		c.Audio.BaudRate = 9600
	}
	if c.Audio.Volume == 0 {
		c.Audio.Volume = 20
	}
	if c.Audio.HornTrack == 0 {
		c.Audio.HornTrack = 11
	}
	if c.Audio.SirenTrack == 0 {
		c.Audio.SirenTrack = 12
	}
	if c.Audio.SongMin == 0 {
		c.Audio.SongMin = 1
	}
	if c.Audio.SongMax == 0 {
		c.Audio.SongMax = 10
	}

	if c.OTA.Hostname == "" {
		c.OTA.Hostname = "rc-otonomous-car"
	}
	if c.OTA.TokenTTL == 0 {
		c.OTA.TokenTTL = 10 * time.Minute
	}
	if c.OTA.StagingDir == "" {
		c.OTA.StagingDir = "./firmware"
	}
	if c.OTA.FirmwareVersion == "" {
		c.OTA.FirmwareVersion = "1.0.0"
	}
	if c.OTA.MaxImageMB == 0 {
		c.OTA.MaxImageMB = 4
	}
}

// Validate reports the first missing or invalid field
func (c *Config) Validate() error {
	if err := validPort("server.http_port", c.Server.HTTPPort); err != nil {
		return err
	}
	if err := validPort("server.websocket_port", c.Server.WebSocketPort); err != nil {
		return err
	}
	if c.Server.HTTPPort == c.Server.WebSocketPort {
		return fmt.Errorf("server.websocket_port must differ from server.http_port")
	}
	if c.Processing.QueueSize < 1 {
		return fmt.Errorf("processing.queue_size must be positive")
	}

	switch c.Drive.Driver {
	case DriverSimulated:
	case DriverSerial:
		if c.Drive.SerialPort == "" {
			return fmt.Errorf("missing required field: drive.serial_port")
		}
	default:
		return fmt.Errorf("drive.driver must be %q or %q, got %q", DriverSimulated, DriverSerial, c.Drive.Driver)
	}
	if c.Drive.DefaultSpeed < 0 || c.Drive.DefaultSpeed > 255 {
		return fmt.Errorf("drive.default_speed must be within 0..255, got %d", c.Drive.DefaultSpeed)
	}
	if c.Drive.StopRepeatPause < 0 {
		return fmt.Errorf("drive.stop_repeat_pause must not be negative")
	}

	switch c.Network.Mode {
	case NetworkModeAP:
	case NetworkModeStation:
		if c.Network.SSID == "" {
			return fmt.Errorf("missing required field: network.ssid")
		}
	default:
		return fmt.Errorf("network.mode must be %q or %q, got %q", NetworkModeAP, NetworkModeStation, c.Network.Mode)
	}
	if len(c.Network.APPassword) < 8 {
		return fmt.Errorf("network.ap_password must be at least 8 characters")
	}
	if c.Network.JoinAttempts < 1 {
		return fmt.Errorf("network.join_attempts must be positive")
	}
	if c.Network.JoinInterval <= 0 {
		return fmt.Errorf("network.join_interval must be positive, got %s", c.Network.JoinInterval)
	}
	if c.Network.CheckInterval <= 0 {
		return fmt.Errorf("network.check_interval must be positive, got %s", c.Network.CheckInterval)
	}

	if c.Telemetry.Enabled && (c.Telemetry.PublishBindAddress == "" || c.Telemetry.RequestBindAddress == "") {
		return fmt.Errorf("telemetry requires publish_bind_address and request_bind_address")
	}

	if c.Audio.Enabled && c.Audio.SerialPort == "" {
		return fmt.Errorf("missing required field: audio.serial_port")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 30 {
		return fmt.Errorf("audio.volume must be within 0..30, got %d", c.Audio.Volume)
	}
	if c.Audio.SongMin < 1 || c.Audio.SongMax < c.Audio.SongMin {
		return fmt.Errorf("audio song range %d..%d is invalid", c.Audio.SongMin, c.Audio.SongMax)
	}

	if _, err := semver.NewVersion(c.OTA.FirmwareVersion); err != nil {
		return fmt.Errorf("ota.firmware_version %q is not a semantic version: %w", c.OTA.FirmwareVersion, err)
	}
	if c.OTA.Enabled && c.OTA.Password == "" && c.OTA.PasswordHash == "" {
		return fmt.Errorf("ota requires password or password_hash")
	}

	return nil
}

func validPort(field string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be within 1..65535, got %d", field, port)
	}
	return nil
}
