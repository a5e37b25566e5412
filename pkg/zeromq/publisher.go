package zeromq

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/open-teleop/rover/domain/drive"
	"github.com/open-teleop/rover/pkg/flatbuffers/rover/telemetry"
	customlog "github.com/open-teleop/rover/pkg/log"
)

// Telemetry topics
const (
	TopicDriveState         = "vehicle.drive.state"
	TopicConfigNotification = "configuration.notification"
)

// TopicPublisher sends one framed message on a topic
type TopicPublisher interface {
	PublishMessage(topic string, message []byte) error
	PublishJSON(topic string, messageType string, data interface{}) error
}

var _ TopicPublisher = (*ZeroMQService)(nil)

// EncodeDriveState serializes a drive snapshot as a telemetry.DriveState buffer
func EncodeDriveState(builder *flatbuffers.Builder, state drive.State, timestampNs int64) []byte {
	builder.Reset()

	telemetry.DriveStateStart(builder)
	telemetry.DriveStateAddTimestampNs(builder, timestampNs)
	telemetry.DriveStateAddBaseSpeed(builder, int32(state.BaseSpeed))
	telemetry.DriveStateAddEnabled(builder, state.Enabled)
	telemetry.DriveStateAddLeftDirection(builder, wheelDirection(state.Motors.Left.Direction))
	telemetry.DriveStateAddLeftDuty(builder, int32(state.Motors.Left.Duty))
	telemetry.DriveStateAddRightDirection(builder, wheelDirection(state.Motors.Right.Direction))
	telemetry.DriveStateAddRightDuty(builder, int32(state.Motors.Right.Duty))
	root := telemetry.DriveStateEnd(builder)
	telemetry.FinishDriveStateBuffer(builder, root)

	return builder.FinishedBytes()
}

func wheelDirection(d drive.Direction) telemetry.WheelDirection {
	switch d {
	case drive.Forward:
		return telemetry.WheelDirectionForward
	case drive.Reverse:
		return telemetry.WheelDirectionReverse
	default:
		return telemetry.WheelDirectionBrake
	}
}

// DriveStatePublisher publishes drive snapshots. It is only called from the
// control loop goroutine, so the builder is reused without locking.
type DriveStatePublisher struct {
	service TopicPublisher
	builder *flatbuffers.Builder
	logger  customlog.Logger
}

// NewDriveStatePublisher creates a publisher for drive telemetry
func NewDriveStatePublisher(service TopicPublisher, logger customlog.Logger) *DriveStatePublisher {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &DriveStatePublisher{
		service: service,
		builder: flatbuffers.NewBuilder(64),
		logger:  logger,
	}
}

// PublishDriveState implements processing.StatePublisher
func (p *DriveStatePublisher) PublishDriveState(state drive.State, timestampNs int64) error {
	return p.service.PublishMessage(TopicDriveState, EncodeDriveState(p.builder, state, timestampNs))
}

// ConfigPublisher announces configuration changes to subscribers
type ConfigPublisher struct {
	service TopicPublisher
	logger  customlog.Logger
}

// NewConfigPublisher creates a new publisher for configuration updates
func NewConfigPublisher(service TopicPublisher, logger customlog.Logger) *ConfigPublisher {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &ConfigPublisher{
		service: service,
		logger:  logger,
	}
}

// PublishConfigUpdatedNotification publishes a notification that the saved
// configuration has changed
func (p *ConfigPublisher) PublishConfigUpdatedNotification(robotID, version string) error {
	p.logger.Infof("Publishing configuration update notification")

	notification := map[string]interface{}{
		"robot_id": robotID,
		"version":  version,
	}
	return p.service.PublishJSON(TopicConfigNotification, MsgTypeConfigUpdated, notification)
}

// RegisterHandlers wires the request handlers onto the service
func RegisterHandlers(service *ZeroMQService, state, cfg SnapshotFunc) *ConfigPublisher {
	logger := service.logger
	if state != nil {
		service.RegisterHandler(MsgTypeStateRequest, NewStateHandler(state, logger))
	}
	if cfg != nil {
		service.RegisterHandler(MsgTypeConfigRequest, NewConfigHandler(cfg, logger))
	}
	logger.Infof("Registered telemetry request handlers")
	return NewConfigPublisher(service, logger)
}
