package test

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// uniqueCounter provides unique IDs for test seeds within a single run
var uniqueCounter uint64

// runStamp keeps seeds from separate runs apart in a shared archive
var runStamp = time.Now().Unix()

// uniqueSeed generates a seed that no earlier test in this run has used
func uniqueSeed(base string) string {
	counter := atomic.AddUint64(&uniqueCounter, 1)
	return fmt.Sprintf("%s-%d-%d", base, runStamp, counter)
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: false, Message: fmt.Sprintf(format, args...)}
}

func pass(testName, format string, args ...any) TestResult {
	return TestResult{Name: testName, Passed: true, Message: fmt.Sprintf(format, args...)}
}

// RunAllTests runs every scenario against the service at serverAddr
func RunAllTests(serverAddr string) []TestResult {
	results := make([]TestResult, 0)
	for _, t := range getAllTests() {
		results = append(results, t.Func(serverAddr))
	}
	return results
}

// testEntry holds a test function and its name
type testEntry struct {
	Name string
	Func func(string) TestResult
}

// getAllTests returns all test entries in order
func getAllTests() []testEntry {
	return []testEntry{
		// Group 1: Connection & Protocol
		{"Basic Connection", TestBasicConnection},
		{"Malformed Request", TestMalformedRequest},
		{"Unknown Request Type", TestUnknownRequestType},

		// Group 2: Generation
		{"Generate Defaults", TestGenerateDefaults},
		{"Deterministic Seed", TestDeterministicSeed},
		{"Border Walls", TestBorderWalls},
		{"Floor Connectivity", TestFloorConnectivity},
		{"Invalid Config", TestInvalidConfig},
		{"Size Limit", TestSizeLimit},

		// Group 3: Run Archive
		{"Replay Run", TestReplayRun},
		{"List Runs", TestListRuns},
		{"Replay Missing Run", TestReplayMissingRun},

		// Group 4: Concurrency
		{"Multiple Clients", TestMultipleClients},
	}
}

// GetTestNames returns the names of all available tests
func GetTestNames() []string {
	tests := getAllTests()
	names := make([]string, len(tests))
	for i, t := range tests {
		names[i] = t.Name
	}
	return names
}

// RunFilteredTests runs only tests whose names contain the filter string (case-insensitive)
func RunFilteredTests(serverAddr string, filter string) []TestResult {
	results := make([]TestResult, 0)
	filterLower := strings.ToLower(filter)

	for _, t := range getAllTests() {
		if strings.Contains(strings.ToLower(t.Name), filterLower) {
			results = append(results, t.Func(serverAddr))
		}
	}

	return results
}

// PrintResults prints all test results in a formatted way
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
