package health

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPChecker_HealthyEndpoint(t *testing.T) {
	// Create test HTTP server that returns 200 OK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("healthy"))
	}))
	defer server.Close()

	checker := NewHTTPChecker().WithPath("/")
	endpoint := strings.TrimPrefix(server.URL, "http://")

	result := checker.Check(context.Background(), endpoint)

	if !result.Healthy {
		t.Errorf("Expected healthy, got unhealthy: %s", result.Message)
	}

	if result.Duration <= 0 {
		t.Error("Expected positive duration")
	}
}

func TestHTTPChecker_UnhealthyEndpoint(t *testing.T) {
	// Create test HTTP server that returns 500 Internal Server Error
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("error"))
	}))
	defer server.Close()

	checker := NewHTTPChecker().WithPath("/")
	endpoint := strings.TrimPrefix(server.URL, "http://")

	result := checker.Check(context.Background(), endpoint)

	if result.Healthy {
		t.Errorf("Expected unhealthy, got healthy: %s", result.Message)
	}
}

func TestHTTPChecker_CustomStatusRange(t *testing.T) {
	// Create test HTTP server that returns 201 Created
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	// Only 200 is acceptable
	checker := NewHTTPChecker().WithPath("/").WithStatusRange(200, 200)
	endpoint := strings.TrimPrefix(server.URL, "http://")

	result := checker.Check(context.Background(), endpoint)

	if result.Healthy {
		t.Errorf("Expected unhealthy for 201 with range 200-200, got healthy: %s", result.Message)
	}
}

func TestHTTPChecker_ProbePath(t *testing.T) {
	// Verify the checker hits the configured path
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewHTTPChecker().WithPath("/livez")
	endpoint := strings.TrimPrefix(server.URL, "http://")

	result := checker.Check(context.Background(), endpoint)

	if !result.Healthy {
		t.Errorf("Expected healthy, got: %s", result.Message)
	}
	if gotPath != "/livez" {
		t.Errorf("Expected probe path /livez, got %s", gotPath)
	}
}

func TestHTTPChecker_UnreachableEndpoint(t *testing.T) {
	checker := NewHTTPChecker().WithTimeout(500 * time.Millisecond)

	result := checker.Check(context.Background(), "127.0.0.1:1")

	if result.Healthy {
		t.Error("Expected unhealthy for unreachable endpoint")
	}
}

func TestTCPChecker_OpenPort(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to create listener: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	checker := NewTCPChecker()
	result := checker.Check(context.Background(), listener.Addr().String())

	if !result.Healthy {
		t.Errorf("Expected healthy, got: %s", result.Message)
	}
}

func TestTCPChecker_ClosedPort(t *testing.T) {
	checker := NewTCPChecker().WithTimeout(500 * time.Millisecond)

	result := checker.Check(context.Background(), "127.0.0.1:1")

	if result.Healthy {
		t.Error("Expected unhealthy for closed port")
	}
}

func TestStatus_ThresholdEdge(t *testing.T) {
	config := Config{Interval: time.Second, Timeout: time.Second, Threshold: 3}
	status := NewStatus()

	fail := Result{Healthy: false, CheckedAt: time.Now()}
	ok := Result{Healthy: true, CheckedAt: time.Now()}

	// Two failures stay under the threshold
	if status.Update(fail, config) {
		t.Error("First failure should not cross the threshold")
	}
	if status.Update(fail, config) {
		t.Error("Second failure should not cross the threshold")
	}
	if !status.Healthy {
		t.Error("Still healthy under the threshold")
	}

	// Third failure crosses
	if !status.Update(fail, config) {
		t.Error("Third failure should cross the threshold")
	}
	if status.Healthy {
		t.Error("Unhealthy after crossing the threshold")
	}

	// Staying broken reports no further edges
	if status.Update(fail, config) {
		t.Error("Repeat failures should not report the edge again")
	}

	// Recovery resets the counter and re-arms the edge
	if status.Update(ok, config) {
		t.Error("Recovery is not a failure edge")
	}
	if !status.Healthy {
		t.Error("Healthy after recovery")
	}
	if status.ConsecutiveFailures != 0 {
		t.Errorf("Expected counter reset, got %d", status.ConsecutiveFailures)
	}

	status.Update(fail, config)
	status.Update(fail, config)
	if !status.Update(fail, config) {
		t.Error("Edge should fire again after recovery")
	}
}
