package processing

import (
	"github.com/open-teleop/rover/domain/drive"
	customlog "github.com/open-teleop/rover/pkg/log"
)

// StatePublisher defines the interface for publishing drive state
type StatePublisher interface {
	PublishDriveState(state drive.State, timestampNs int64) error
}

// StateSink receives drive snapshots taken on the loop goroutine
type StateSink interface {
	UpdateDriveState(state drive.State)
}

// LoggingResultHandler logs handled events and fans the resulting drive state
// out to the diagnostics sink and the telemetry publisher.
type LoggingResultHandler struct {
	logger    customlog.Logger
	snapshot  func() drive.State
	sinks     []StateSink
	publisher StatePublisher

	last    drive.State
	hasLast bool
}

// NewLoggingResultHandler creates a new logging result handler. snapshot is
// called after every event; it must only be read from the loop goroutine.
func NewLoggingResultHandler(
	logger customlog.Logger,
	snapshot func() drive.State,
	publisher StatePublisher,
	sinks ...StateSink,
) *LoggingResultHandler {
	if logger == nil {
		logger = customlog.NewNopLogger()
	}
	return &LoggingResultHandler{
		logger:    logger,
		snapshot:  snapshot,
		sinks:     sinks,
		publisher: publisher,
	}
}

// HandleResult handles one processed event
func (h *LoggingResultHandler) HandleResult(result *ProcessResult) {
	ev := result.Event
	if result.Error != nil {
		// Rejected commands are expected traffic, not failures of the loop
		h.logger.Warnf("%s event from '%s' not applied: %v", ev.Kind, ev.ConnID, result.Error)
	} else {
		h.logger.Debugf("Applied %s event from '%s' in %s", ev.Kind, ev.ConnID, result.Duration)
	}

	if h.snapshot == nil {
		return
	}
	state := h.snapshot()

	for _, sink := range h.sinks {
		sink.UpdateDriveState(state)
	}

	if h.hasLast && state == h.last {
		return
	}
	h.last = state
	h.hasLast = true

	if h.publisher != nil {
		if err := h.publisher.PublishDriveState(state, ev.Timestamp); err != nil {
			h.logger.Errorf("Failed to publish drive state: %v", err)
		} else {
			h.logger.Debugf("Published drive state after %s event", ev.Kind)
		}
	}
}

// CreateHandlerFunc creates a ResultHandler function for the EventLoop
func (h *LoggingResultHandler) CreateHandlerFunc() ResultHandler {
	return func(processResult *ProcessResult) {
		if processResult == nil || processResult.Event == nil {
			h.logger.Errorf("Received nil ProcessResult")
			return
		}
		h.HandleResult(processResult)
	}
}
