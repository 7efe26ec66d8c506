package websocket

import (
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a widget connection to the hub. initial frames are queued
// before anything the hub fans out, so the widget starts from a full view.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string, onMessage MessageHandler, initial ...[]byte) {
	client := NewClient(hub, c, sessionID, onMessage)
	for _, frame := range initial {
		client.Deliver(frame)
	}
	hub.Register(client)

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
