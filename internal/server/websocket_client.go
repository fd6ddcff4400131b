package server

import (
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketClient wraps a WebSocket connection for browser-based clients.
// Each text message may carry one or more protocol lines.
type WebSocketClient struct {
	conn    *websocket.Conn
	readBuf []string   // Buffer for lines when a message contains multiple lines
	mu      sync.Mutex // Protects readBuf
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
func NewWebSocketClient(conn *websocket.Conn) *WebSocketClient {
	return &WebSocketClient{
		conn:    conn,
		readBuf: make([]string, 0),
	}
}

// ReadLine reads a line from the WebSocket connection (blocking).
// If a message contains multiple lines, they are buffered and returned
// one at a time.
func (c *WebSocketClient) ReadLine() (string, error) {
	for {
		c.mu.Lock()
		if len(c.readBuf) > 0 {
			line := c.readBuf[0]
			c.readBuf = c.readBuf[1:]
			c.mu.Unlock()
			return line, nil
		}
		c.mu.Unlock()

		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}

		// A message may bundle several newline-separated lines.
		lines := strings.Split(string(message), "\n")
		filtered := make([]string, 0, len(lines))
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				filtered = append(filtered, trimmed)
			}
		}
		if len(filtered) == 0 {
			// Empty message, wait for the next one
			continue
		}

		c.mu.Lock()
		c.readBuf = append(c.readBuf, filtered...)
		c.mu.Unlock()
	}
}

// WriteLine writes a protocol line to the WebSocket client.
// The line is self-contained, so no newline is appended.
func (c *WebSocketClient) WriteLine(message string) error {
	return c.conn.WriteMessage(websocket.TextMessage, []byte(message))
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
