package api

import (
	"context"
	"errors"
	"syscall"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	customlog "github.com/open-teleop/rover/pkg/log"
	"github.com/open-teleop/rover/pkg/processing"
)

// EventLoop is the control loop the transport feeds
type EventLoop interface {
	Enqueue(ctx context.Context, ev *processing.Event) error
	Process(ctx context.Context, ev *processing.Event) error
}

// UpgradeRequired rejects plain HTTP requests on websocket routes
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// ControlWebSocketHandler returns the handler for one control connection.
// Connect and disconnect are applied synchronously so the drive is stopped
// before the first command and after the last one.
func ControlWebSocketHandler(hub *Hub, loop EventLoop, logger customlog.Logger) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		id := hub.Add(conn)
		log := logger.WithField("conn", id)
		log.Infof("Control WebSocket connected: %s", conn.RemoteAddr())

		// Lifecycle events must not be dropped, so they never inherit a
		// cancellable context
		ctx := context.Background()

		if err := loop.Process(ctx, processing.NewEvent(processing.EventConnected, id, nil)); err != nil {
			log.Errorf("Failed to apply connect: %v", err)
			if errors.Is(err, processing.ErrLoopStopped) {
				hub.Remove(id)
				return
			}
		}

		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
					log.Errorf("Control WS read error: %v", err)
				} else if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
					log.Infof("Control WS connection reset")
				} else {
					log.Infof("Control WS connection closed: %v", err)
				}
				break
			}

			if mt != websocket.TextMessage {
				log.Debugf("Ignoring non-text Control WS message type: %d", mt)
				continue
			}

			if err := loop.Enqueue(ctx, processing.NewEvent(processing.EventMessage, id, msg)); err != nil {
				log.Warnf("Dropping message, loop unavailable: %v", err)
				break
			}
		}

		hub.Remove(id)
		if err := loop.Process(ctx, processing.NewEvent(processing.EventDisconnected, id, nil)); err != nil {
			log.Errorf("Failed to apply disconnect: %v", err)
		}
		log.Infof("Control WebSocket disconnected: %s", conn.RemoteAddr())
	}
}
