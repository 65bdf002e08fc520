package test

import (
	"time"

	"github.com/m7alleus/mazer/internal/server"
	"github.com/m7alleus/mazer/internal/testclient"
)

// =============================================================================
// Group 1: Connection & Protocol
// =============================================================================

// TestBasicConnection tests that a client can connect and get an answer
func TestBasicConnection(serverAddr string) TestResult {
	const testName = "Basic Connection"

	logAction(testName, "Connecting...")
	client, err := testclient.NewTestClient("basic", serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	logAction(testName, "Requesting run list")
	resp, err := client.List(1)
	if err != nil {
		return fail(testName, "No response: %v", err)
	}
	logResult(testName, true, "Received "+resp.Type)

	// A service without an archive answers list with an error
	if resp.Type != server.ResponseRuns && resp.Type != server.ResponseError {
		return fail(testName, "Unexpected response type %q", resp.Type)
	}

	return pass(testName, "Connected successfully, got %q response", resp.Type)
}

// TestMalformedRequest tests that bad JSON is answered and the connection survives
func TestMalformedRequest(serverAddr string) TestResult {
	const testName = "Malformed Request"

	client, err := testclient.NewTestClient("malformed", serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	logAction(testName, "Sending invalid JSON")
	before := client.ResponseCount()
	if err := client.SendRaw("{not json"); err != nil {
		return fail(testName, "Send failed: %v", err)
	}
	resp, err := client.WaitForResponse(before, 2*time.Second)
	if err != nil {
		return fail(testName, "No response: %v", err)
	}
	logResult(testName, resp.Type == server.ResponseError, resp.Error)
	if resp.Type != server.ResponseError {
		return fail(testName, "Expected error response, got %q", resp.Type)
	}

	logAction(testName, "Checking the connection is still usable")
	if _, err := client.Generate(map[string]any{"seed": uniqueSeed("malformed"), "width": 20, "height": 15}); err != nil {
		return fail(testName, "Connection unusable after malformed request: %v", err)
	}

	return pass(testName, "Malformed request rejected with %q", resp.Error)
}

// TestUnknownRequestType tests that unknown request types are rejected
func TestUnknownRequestType(serverAddr string) TestResult {
	const testName = "Unknown Request Type"

	client, err := testclient.NewTestClient("unknown", serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	resp, err := client.Do(server.Request{Type: "teleport"}, testclient.DefaultTimeout)
	if err != nil {
		return fail(testName, "No response: %v", err)
	}
	if resp.Type != server.ResponseError {
		return fail(testName, "Expected error response, got %q", resp.Type)
	}

	return pass(testName, "Rejected with %q", resp.Error)
}
