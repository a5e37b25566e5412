package zeromq

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/open-teleop/rover/pkg/config"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/pebbe/zmq4"
)

func TestDispatcher(t *testing.T) {
	d := NewMessageDispatcher(customlog.NewNopLogger())
	d.RegisterHandler(MsgTypeStateRequest, NewStateHandler(func() interface{} {
		return map[string]int{"speed": 150}
	}, customlog.NewNopLogger()))

	resp, err := d.Dispatch([]byte(`{"type":"STATE_REQUEST","timestamp":1}`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	var msg ZeroMQMessage
	if err := json.Unmarshal(resp, &msg); err != nil {
		t.Fatalf("Invalid response: %v", err)
	}
	if msg.Type != MsgTypeStateResponse {
		t.Errorf("Expected %s, got %s", MsgTypeStateResponse, msg.Type)
	}

	if _, err := d.Dispatch([]byte("not json")); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("Expected ErrInvalidMessage, got %v", err)
	}
	if _, err := d.Dispatch([]byte(`{"type":"REBOOT"}`)); !errors.Is(err, ErrUnknownMessageType) {
		t.Errorf("Expected ErrUnknownMessageType, got %v", err)
	}
}

func TestErrorResponse(t *testing.T) {
	var msg struct {
		Type string        `json:"type"`
		Data ErrorResponse `json:"data"`
	}
	if err := json.Unmarshal(errorResponse(ErrUnknownMessageType), &msg); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if msg.Type != MsgTypeError || msg.Data.Code != 400 {
		t.Errorf("Unexpected error response %+v", msg)
	}
}

func TestRequestReply(t *testing.T) {
	svc, err := NewZeroMQService(config.TelemetryConfig{
		Enabled:            true,
		PublishBindAddress: "tcp://127.0.0.1:*",
		RequestBindAddress: "tcp://127.0.0.1:*",
	}, nil)
	if err != nil {
		t.Fatalf("NewZeroMQService failed: %v", err)
	}
	RegisterHandlers(svc, nil, func() interface{} { return map[string]string{"robot_id": "rover-1"} })
	if err := svc.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer svc.Stop()

	endpoint, err := svc.RequestEndpoint()
	if err != nil {
		t.Fatalf("RequestEndpoint failed: %v", err)
	}

	ctx, err := zmq4.NewContext()
	if err != nil {
		t.Fatalf("Failed to create ZMQ context: %v", err)
	}
	defer ctx.Term()

	socket, err := ctx.NewSocket(zmq4.REQ)
	if err != nil {
		t.Fatalf("Failed to create REQ socket: %v", err)
	}
	defer socket.Close()
	socket.SetLinger(0)
	socket.SetRcvtimeo(5 * time.Second)

	if err := socket.Connect(endpoint); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	exchange := func(req string) ZeroMQMessage {
		t.Helper()
		if _, err := socket.Send(req, 0); err != nil {
			t.Fatalf("Failed to send request: %v", err)
		}
		data, err := socket.RecvBytes(0)
		if err != nil {
			t.Fatalf("Failed to receive response: %v", err)
		}
		var msg ZeroMQMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Invalid response %s: %v", data, err)
		}
		return msg
	}

	if msg := exchange(`{"type":"CONFIG_REQUEST"}`); msg.Type != MsgTypeConfigResponse {
		t.Errorf("Expected %s, got %s", MsgTypeConfigResponse, msg.Type)
	}
	// No state handler registered
	if msg := exchange(`{"type":"STATE_REQUEST"}`); msg.Type != MsgTypeError {
		t.Errorf("Expected %s, got %s", MsgTypeError, msg.Type)
	}
}
