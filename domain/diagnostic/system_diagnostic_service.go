package diagnostic

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/open-teleop/rover/domain/drive"
	"github.com/open-teleop/rover/pkg/processing"
)

// VehicleStatus is the diagnostics snapshot served to operators
type VehicleStatus struct {
	Timestamp   time.Time     `json:"timestamp"`
	RobotID     string        `json:"robot_id"`
	Uptime      string        `json:"uptime"`
	Drive       drive.State   `json:"drive"`
	Connections int           `json:"connections"`
	Network     NetworkStatus `json:"network"`
	Firmware    string        `json:"firmware_version"`
	Update      interface{}   `json:"update,omitempty"`
	Loop        LoopStatus    `json:"loop"`
}

// NetworkStatus describes the wireless link
type NetworkStatus struct {
	Mode      string `json:"mode"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
}

// LoopStatus summarises the control loop metrics
type LoopStatus struct {
	Processed   int64 `json:"processed"`
	Errors      int64 `json:"errors"`
	Panics      int64 `json:"panics"`
	QueueLength int   `json:"queue_length"`
	AvgMicros   int64 `json:"avg_time_us"`
	MaxMicros   int64 `json:"max_time_us"`
}

// ConnectionCounter reports the number of open control connections
type ConnectionCounter interface {
	Count() int
}

// NetworkReporter reports the wireless link
type NetworkReporter interface {
	Mode() string
	Address() string
	IsConnected() bool
}

// LoopReporter reports control loop metrics
type LoopReporter interface {
	GetMetrics() processing.LoopMetrics
	GetQueueLength() int
}

// FirmwareReporter reports the running firmware version
type FirmwareReporter interface {
	CurrentVersion() string
}

// Sources groups the status providers; any of them may be nil
type Sources struct {
	Connections ConnectionCounter
	Network     NetworkReporter
	Loop        LoopReporter
	Firmware    FirmwareReporter
	Update      func() interface{}
}

// DiagnosticService holds the latest vehicle status
type DiagnosticService struct {
	mu      sync.RWMutex
	robotID string
	started time.Time
	drive   drive.State
	sources Sources
}

// NewDiagnosticService creates a new diagnostic service instance
func NewDiagnosticService(robotID string, sources Sources) *DiagnosticService {
	return &DiagnosticService{
		robotID: robotID,
		started: time.Now(),
		sources: sources,
	}
}

// UpdateDriveState stores the latest drive snapshot. The control loop calls
// this after every event.
func (s *DiagnosticService) UpdateDriveState(state drive.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drive = state
}

// GetStatus assembles the current vehicle status
func (s *DiagnosticService) GetStatus() VehicleStatus {
	s.mu.RLock()
	status := VehicleStatus{
		Timestamp: time.Now(),
		RobotID:   s.robotID,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Drive:     s.drive,
	}
	s.mu.RUnlock()

	src := s.sources
	if src.Connections != nil {
		status.Connections = src.Connections.Count()
	}
	if src.Network != nil {
		status.Network = NetworkStatus{
			Mode:      src.Network.Mode(),
			Address:   src.Network.Address(),
			Connected: src.Network.IsConnected(),
		}
	}
	if src.Firmware != nil {
		status.Firmware = src.Firmware.CurrentVersion()
	}
	if src.Update != nil {
		status.Update = src.Update()
	}
	if src.Loop != nil {
		m := src.Loop.GetMetrics()
		status.Loop = LoopStatus{
			Processed:   m.ProcessedCount,
			Errors:      m.ErrorCount,
			Panics:      m.PanicCount,
			QueueLength: src.Loop.GetQueueLength(),
			AvgMicros:   m.ProcessingTimeAvg,
			MaxMicros:   m.ProcessingTimeMax,
		}
	}
	return status
}

// GetMetricsHandler handles API requests for the vehicle status
func (s *DiagnosticService) GetMetricsHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "success",
		"metrics": s.GetStatus(),
	})
}
