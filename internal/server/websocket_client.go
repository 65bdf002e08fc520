package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketClient wraps a WebSocket connection speaking the JSON protocol.
type WebSocketClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // Serializes writes
}

// NewWebSocketClient creates a new WebSocketClient from a WebSocket connection.
// Inbound messages larger than maxMessageSize bytes close the connection.
func NewWebSocketClient(conn *websocket.Conn, maxMessageSize int64) *WebSocketClient {
	if maxMessageSize > 0 {
		conn.SetReadLimit(maxMessageSize)
	}
	return &WebSocketClient{conn: conn}
}

// ReadRequest blocks until the next request arrives.
func (c *WebSocketClient) ReadRequest() (Request, error) {
	var req Request
	err := c.conn.ReadJSON(&req)
	return req, err
}

// Send writes a response as a single text message.
func (c *WebSocketClient) Send(resp Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(resp)
}

// Close closes the WebSocket connection.
func (c *WebSocketClient) Close() error {
	return c.conn.Close()
}

// RemoteAddr returns the remote address as a string.
func (c *WebSocketClient) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}
