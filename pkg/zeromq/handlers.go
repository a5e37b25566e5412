package zeromq

import (
	"encoding/json"
	"fmt"
	"time"

	customlog "github.com/open-teleop/rover/pkg/log"
)

// SnapshotFunc returns the value served in a response's Data field
type SnapshotFunc func() interface{}

// snapshotHandler answers one request type with a fresh snapshot
type snapshotHandler struct {
	requestType  string
	responseType string
	snapshot     SnapshotFunc
	logger       customlog.Logger
}

// NewStateHandler answers STATE_REQUEST with the current vehicle status
func NewStateHandler(snapshot SnapshotFunc, logger customlog.Logger) MessageHandler {
	return &snapshotHandler{
		requestType:  MsgTypeStateRequest,
		responseType: MsgTypeStateResponse,
		snapshot:     snapshot,
		logger:       logger,
	}
}

// NewConfigHandler answers CONFIG_REQUEST with the redacted configuration
func NewConfigHandler(snapshot SnapshotFunc, logger customlog.Logger) MessageHandler {
	return &snapshotHandler{
		requestType:  MsgTypeConfigRequest,
		responseType: MsgTypeConfigResponse,
		snapshot:     snapshot,
		logger:       logger,
	}
}

// HandleMessage checks the request type and serializes the snapshot
func (h *snapshotHandler) HandleMessage(data []byte) ([]byte, error) {
	var msg ZeroMQMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type != h.requestType {
		return nil, fmt.Errorf("unexpected message type: %s", msg.Type)
	}

	response := ZeroMQMessage{
		Type:      h.responseType,
		Timestamp: float64(time.Now().Unix()),
		Data:      h.snapshot(),
	}

	responseData, err := json.Marshal(response)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize response: %w", err)
	}

	h.logger.Debugf("Sending %s (%d bytes)", h.responseType, len(responseData))
	return responseData, nil
}
