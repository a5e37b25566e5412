package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the rover configuration
type Config struct {
	Version    string           `yaml:"version" json:"version"`
	RobotID    string           `yaml:"robot_id" json:"robot_id" env:"ROBOT_ID"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging" envPrefix:"LOGGING_"`
	Server     ServerConfig     `yaml:"server" json:"server" envPrefix:"SERVER_"`
	Processing ProcessingConfig `yaml:"processing" json:"processing" envPrefix:"PROCESSING_"`
	Drive      DriveConfig      `yaml:"drive" json:"drive" envPrefix:"DRIVE_"`
	Network    NetworkConfig    `yaml:"network" json:"network" envPrefix:"NETWORK_"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" json:"telemetry" envPrefix:"TELEMETRY_"`
	Audio      AudioConfig      `yaml:"audio" json:"audio" envPrefix:"AUDIO_"`
	OTA        OTAConfig        `yaml:"ota" json:"ota" envPrefix:"OTA_"`
	Journal    JournalConfig    `yaml:"journal" json:"journal" envPrefix:"JOURNAL_"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level      string `yaml:"level" json:"level" env:"LEVEL"`
	LogPath    string `yaml:"log_path,omitempty" json:"log_path,omitempty" env:"PATH"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" env:"MAX_AGE_DAYS"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPPort      int           `yaml:"http_port" json:"http_port" env:"HTTP_PORT"`
	WebSocketPort int           `yaml:"websocket_port" json:"websocket_port" env:"WEBSOCKET_PORT"`
	StaticDir     string        `yaml:"static_dir" json:"static_dir" env:"STATIC_DIR"`
	ReadTimeout   time.Duration `yaml:"read_timeout" json:"read_timeout" env:"READ_TIMEOUT"`
	MaxUploadMB   int           `yaml:"max_upload_mb" json:"max_upload_mb" env:"MAX_UPLOAD_MB"`
}

// ProcessingConfig holds event loop settings
type ProcessingConfig struct {
	QueueSize int `yaml:"queue_size" json:"queue_size" env:"QUEUE_SIZE"`
}

// DriveConfig selects and tunes the motor actuator
type DriveConfig struct {
	// Driver is "simulated" or "serial"
	Driver          string        `yaml:"driver" json:"driver" env:"DRIVER"`
	SerialPort      string        `yaml:"serial_port" json:"serial_port" env:"SERIAL_PORT"`
	BaudRate        int           `yaml:"baud_rate" json:"baud_rate" env:"BAUD_RATE"`
	DefaultSpeed    int           `yaml:"default_speed" json:"default_speed" env:"DEFAULT_SPEED"`
	StopRepeatPause time.Duration `yaml:"stop_repeat_pause" json:"stop_repeat_pause" env:"STOP_REPEAT_PAUSE"`
}

// NetworkConfig describes how the rover joins or provides a wireless link
type NetworkConfig struct {
	// Mode is "ap" or "station"
	Mode               string        `yaml:"mode" json:"mode" env:"MODE"`
	Interface          string        `yaml:"interface" json:"interface" env:"INTERFACE"`
	SSID               string        `yaml:"ssid" json:"ssid" env:"SSID"`
	Password           string        `yaml:"password" json:"password" env:"PASSWORD"`
	APSSID             string        `yaml:"ap_ssid" json:"ap_ssid" env:"AP_SSID"`
	APPassword         string        `yaml:"ap_password" json:"ap_password" env:"AP_PASSWORD"`
	JoinAttempts       int           `yaml:"join_attempts" json:"join_attempts" env:"JOIN_ATTEMPTS"`
	JoinInterval       time.Duration `yaml:"join_interval" json:"join_interval" env:"JOIN_INTERVAL"`
	CheckInterval      time.Duration `yaml:"check_interval" json:"check_interval" env:"CHECK_INTERVAL"`
	AccessPointAddress string        `yaml:"ap_address" json:"ap_address" env:"AP_ADDRESS"`
}

// TelemetryConfig holds ZeroMQ settings
type TelemetryConfig struct {
	Enabled            bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	PublishBindAddress string `yaml:"publish_bind_address" json:"publish_bind_address" env:"PUBLISH_BIND_ADDRESS"`
	RequestBindAddress string `yaml:"request_bind_address" json:"request_bind_address" env:"REQUEST_BIND_ADDRESS"`
}

// AudioConfig holds the sound module settings
type AudioConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled" env:"ENABLED"`
	SerialPort string `yaml:"serial_port" json:"serial_port" env:"SERIAL_PORT"`
	BaudRate   int    `yaml:"baud_rate" json:"baud_rate" env:"BAUD_RATE"`
	Volume     int    `yaml:"volume" json:"volume" env:"VOLUME"`
	HornTrack  int    `yaml:"horn_track" json:"horn_track" env:"HORN_TRACK"`
	SirenTrack int    `yaml:"siren_track" json:"siren_track" env:"SIREN_TRACK"`
	SongMin    int    `yaml:"song_min" json:"song_min" env:"SONG_MIN"`
	SongMax    int    `yaml:"song_max" json:"song_max" env:"SONG_MAX"`
}

// OTAConfig holds firmware update settings
type OTAConfig struct {
	Enabled         bool          `yaml:"enabled" json:"enabled" env:"ENABLED"`
	Hostname        string        `yaml:"hostname" json:"hostname" env:"HOSTNAME"`
	Password        string        `yaml:"password,omitempty" json:"password,omitempty" env:"PASSWORD"`
	PasswordHash    string        `yaml:"password_hash,omitempty" json:"password_hash,omitempty" env:"PASSWORD_HASH"`
	TokenSecret     string        `yaml:"token_secret,omitempty" json:"token_secret,omitempty" env:"TOKEN_SECRET"`
	TokenTTL        time.Duration `yaml:"token_ttl" json:"token_ttl" env:"TOKEN_TTL"`
	StagingDir      string        `yaml:"staging_dir" json:"staging_dir" env:"STAGING_DIR"`
	FirmwareVersion string        `yaml:"firmware_version" json:"firmware_version" env:"FIRMWARE_VERSION"`
	MaxImageMB      int           `yaml:"max_image_mb" json:"max_image_mb" env:"MAX_IMAGE_MB"`
}

// JournalConfig holds the event journal location; an empty path disables it
type JournalConfig struct {
	Path string `yaml:"path" json:"path" env:"PATH"`
}

const redacted = "********"

// LoadConfig loads configuration from the specified file path and applies
// defaults for every field the file leaves out
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file '%s': %w", path, err)
	}
	return config, nil
}

// ParseConfig decodes a YAML document and applies defaults. Unknown fields
// are rejected so typos do not silently fall back to defaults.
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	config.ApplyDefaults()
	return &config, nil
}

// SaveConfig writes cfg to path as YAML
func SaveConfig(path string, cfg *Config) error {
	data, err := cfg.ToYAML()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// ToYAML renders the configuration as YAML
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("error encoding config: %w", err)
	}
	return data, nil
}

// Redacted returns a copy with every secret masked
func (c *Config) Redacted() *Config {
	out := *c
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Network.Password)
	mask(&out.Network.APPassword)
	mask(&out.OTA.Password)
	mask(&out.OTA.PasswordHash)
	mask(&out.OTA.TokenSecret)
	return &out
}

// KeepSecrets copies secrets from prev into every field of c that still holds
// the redaction mask, so a redacted document can be edited and sent back.
func (c *Config) KeepSecrets(prev *Config) {
	keep := func(dst *string, src string) {
		if *dst == redacted {
			*dst = src
		}
	}
	keep(&c.Network.Password, prev.Network.Password)
	keep(&c.Network.APPassword, prev.Network.APPassword)
	keep(&c.OTA.Password, prev.OTA.Password)
	keep(&c.OTA.PasswordHash, prev.OTA.PasswordHash)
	keep(&c.OTA.TokenSecret, prev.OTA.TokenSecret)
}
