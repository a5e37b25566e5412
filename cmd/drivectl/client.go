package main

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// controlMessage mirrors the message-style control protocol
type controlMessage struct {
	Cmd       string   `json:"cmd"`
	Direction string   `json:"direction,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Left      *float64 `json:"left,omitempty"`
	Right     *float64 `json:"right,omitempty"`
}

// client is one control connection to the rover
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	done chan struct{}
}

// dial connects to url and prints every frame the rover sends with onFrame
func dial(url string, onFrame func([]byte)) (*client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &client{conn: conn, done: make(chan struct{})}

	go func() {
		defer close(c.done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			onFrame(data)
		}
	}()
	return c, nil
}

func (c *client) send(msg controlMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *client) move(direction string) error {
	return c.send(controlMessage{Cmd: "move", Direction: direction})
}

func (c *client) speed(v int) error {
	f := float64(v)
	return c.send(controlMessage{Cmd: "speed", Value: &f})
}

func (c *client) custom(left, right int) error {
	l, r := float64(left), float64(right)
	return c.send(controlMessage{Cmd: "custom", Left: &l, Right: &r})
}

// close sends a close frame and waits briefly for the reader to finish
func (c *client) close() {
	c.mu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.mu.Unlock()

	select {
	case <-c.done:
	case <-time.After(writeWait):
	}
	c.conn.Close()
}
