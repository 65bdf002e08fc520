package testclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/m7alleus/mazer/internal/server"
)

// DefaultTimeout bounds how long a request waits for its response.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the server does not answer in time.
var ErrTimeout = errors.New("timed out waiting for response")

// TestClient represents a test client connection to the map service
type TestClient struct {
	Name      string
	conn      *websocket.Conn
	responses []server.Response
	mu        sync.Mutex
	writeMu   sync.Mutex
	closeOnce sync.Once
	readErr   error
}

// WebSocketURL turns "host:port" into the service endpoint. Full ws:// or
// wss:// URLs are returned unchanged.
func WebSocketURL(address string) string {
	if strings.Contains(address, "://") {
		return address
	}
	return "ws://" + address + "/ws"
}

// NewTestClient connects to the map service at address
func NewTestClient(name string, address string) (*TestClient, error) {
	conn, _, err := websocket.DefaultDialer.Dial(WebSocketURL(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		Name:      name,
		conn:      conn,
		responses: make([]server.Response, 0),
	}

	// Start reading responses in background
	go client.readMessages()

	return client, nil
}

// readMessages continuously reads responses from the server
func (c *TestClient) readMessages() {
	for {
		var resp server.Response
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.responses = append(c.responses, resp)
		c.mu.Unlock()
	}
}

// Send writes a raw request without waiting for the answer
func (c *TestClient) Send(req server.Request) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(req)
}

// SendRaw writes an arbitrary text frame
func (c *TestClient) SendRaw(data string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// Do sends a request and waits for the next response
func (c *TestClient) Do(req server.Request, timeout time.Duration) (server.Response, error) {
	before := c.ResponseCount()
	if err := c.Send(req); err != nil {
		return server.Response{}, err
	}
	return c.WaitForResponse(before, timeout)
}

// Generate requests a map. overrides is marshalled as the config object and
// may be nil.
func (c *TestClient) Generate(overrides any) (server.Response, error) {
	req := server.Request{Type: server.RequestGenerate}
	if overrides != nil {
		raw, err := json.Marshal(overrides)
		if err != nil {
			return server.Response{}, err
		}
		req.Config = raw
	}
	return c.Do(req, DefaultTimeout)
}

// Replay regenerates an archived run
func (c *TestClient) Replay(runID int64) (server.Response, error) {
	return c.Do(server.Request{Type: server.RequestReplay, RunID: runID}, DefaultTimeout)
}

// List fetches recent archived runs
func (c *TestClient) List(limit int) (server.Response, error) {
	return c.Do(server.Request{Type: server.RequestList, Limit: limit}, DefaultTimeout)
}

// ResponseCount returns how many responses have arrived so far
func (c *TestClient) ResponseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.responses)
}

// WaitForResponse waits for the response at index n (with timeout)
func (c *TestClient) WaitForResponse(n int, timeout time.Duration) (server.Response, error) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		c.mu.Lock()
		if n < len(c.responses) {
			resp := c.responses[n]
			c.mu.Unlock()
			return resp, nil
		}
		readErr := c.readErr
		c.mu.Unlock()

		if readErr != nil {
			return server.Response{}, fmt.Errorf("connection closed: %w", readErr)
		}
		time.Sleep(10 * time.Millisecond)
	}

	return server.Response{}, ErrTimeout
}

// GetResponses returns all responses received so far
func (c *TestClient) GetResponses() []server.Response {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Return a copy
	result := make([]server.Response, len(c.responses))
	copy(result, c.responses)
	return result
}

// Close closes the client connection
func (c *TestClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// PrintResponses prints all responses (for debugging)
func (c *TestClient) PrintResponses() {
	responses := c.GetResponses()
	fmt.Printf("\n=== Responses for %s ===\n", c.Name)
	for i, resp := range responses {
		switch resp.Type {
		case server.ResponseMap:
			if resp.Map == nil {
				fmt.Printf("[%d] map (empty)\n", i)
				continue
			}
			fmt.Printf("[%d] map seed=%s %dx%d run=%d\n", i, resp.Map.Seed, resp.Map.Width, resp.Map.Height, resp.RunID)
		case server.ResponseRuns:
			fmt.Printf("[%d] runs count=%d\n", i, len(resp.Runs))
		default:
			fmt.Printf("[%d] %s %s\n", i, resp.Type, resp.Error)
		}
	}
	fmt.Println("======================")
}
