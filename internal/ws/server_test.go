package ws

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tvanlaerhoven/cavy-cli/internal/agent"
	"github.com/tvanlaerhoven/cavy-cli/internal/console"
	"github.com/tvanlaerhoven/cavy-cli/internal/event"
	"github.com/tvanlaerhoven/cavy-cli/internal/exitcodes"
	"github.com/tvanlaerhoven/cavy-cli/internal/metrics"
	"github.com/tvanlaerhoven/cavy-cli/internal/run"
	"github.com/tvanlaerhoven/cavy-cli/internal/screenshot"
)

// recordingSink captures what the server forwards, without a coordinator.
type recordingSink struct {
	mu        sync.Mutex
	connected []string
	frames    []string
	closed    int
}

func (s *recordingSink) Connected(_ context.Context, remote string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = append(s.connected, remote)
	return nil
}

func (s *recordingSink) Deliver(_ context.Context, _ string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, string(data))
	return nil
}

func (s *recordingSink) Disconnected(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *recordingSink) Status(context.Context) (run.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return run.Status{AppBooted: len(s.connected) > 0}, nil
}

func (s *recordingSink) snapshot() (connected, frames []string, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.connected...), append([]string(nil), s.frames...), s.closed
}

func newTestServer(t *testing.T, sink Sink, capturer *screenshot.Capturer, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	s := NewServer(context.Background(), sink, capturer, m, log.New(io.Discard))
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
}

func TestFramesForwardedInOrder(t *testing.T) {
	sink := &recordingSink{}
	srv := newTestServer(t, sink, nil, nil)

	c, err := agent.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)

	want := []string{`{"event":"notify"}`, `garbage`, `{"event":"message","data":{"message":"hi","level":"log"}}`}
	for _, f := range want {
		require.NoError(t, c.SendRaw([]byte(f)))
	}
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		_, _, closed := sink.snapshot()
		return closed == 1
	}, 2*time.Second, 10*time.Millisecond)

	connected, frames, _ := sink.snapshot()
	assert.Len(t, connected, 1)
	assert.Equal(t, want, frames)
}

func TestRootWithoutUpgrade(t *testing.T) {
	srv := newTestServer(t, &recordingSink{}, nil, nil)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	sink := &recordingSink{}
	srv := newTestServer(t, sink, nil, nil)

	c, err := agent.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer c.Close()

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var st run.Status
		if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
			return false
		}
		return resp.StatusCode == http.StatusOK && st.AppBooted
	}, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/healthz", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestScreenshotEndpoint(t *testing.T) {
	srv := newTestServer(t, &recordingSink{}, nil, nil)

	resp, err := http.Get(srv.URL + "/screenshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/screenshot?platform=android", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestScreenshotEndpointAccepted(t *testing.T) {
	var logs bytes.Buffer
	capturer := screenshot.NewCapturer(t.TempDir(), log.New(&logs))
	srv := newTestServer(t, &recordingSink{}, capturer, nil)

	resp, err := http.Post(srv.URL+"/screenshot?platform=android", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// Whether or not adb exists here, the capture finishes and is logged.
	capturer.Wait()
	assert.NotEmpty(t, logs.String())
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	m.RecordConnection()
	srv := newTestServer(t, &recordingSink{}, nil, m)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "cavy_agent_connections_total 1")
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:8081", true},
		{"http://127.0.0.1", true},
		{"http://[::1]:19006", true},
		{"http://cavy.test:8082", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
		{"http://127.0.0.1.evil.example:8082", false},
		{"http://cavy.test:9999", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "http://cavy.test:8082/", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, checkOrigin(r), "origin %q", tt.origin)
	}
}

func TestAgentRunThroughCoordinator(t *testing.T) {
	var out bytes.Buffer
	coord := run.NewCoordinator(run.Options{ReportDir: t.TempDir(), KeepAliveTimeout: time.Minute},
		console.NewPrinter(&out), log.New(io.Discard), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type result struct {
		code int
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := coord.Run(ctx)
		done <- result{code, err}
	}()

	srv := newTestServer(t, coord, nil, nil)
	c, err := agent.Dial(context.Background(), wsURL(srv))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Send(event.Result{Message: "logs in", Passed: true}))
	require.NoError(t, c.Send(event.Result{Message: "fails signup"}))
	require.NoError(t, c.Send(event.Report{
		Results: []event.Result{{Passed: true}, {}},
		FullResults: event.ResultTree{TestCases: []event.TestCase{
			{Description: "logs in", Passed: true, Time: 1.2},
			{Description: "fails signup", Time: 0.5},
		}},
		ErrorCount: 1,
		Duration:   1.7,
	}))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, exitcodes.TestFailure, r.code)
	case <-time.After(5 * time.Second):
		t.Fatal("coordinator did not finish")
	}

	got := stripansi.Strip(out.String())
	assert.Contains(t, got, "Received notification.")
	assert.Contains(t, got, "1) logs in\n2) fails signup\n")
	assert.Contains(t, got, "2 examples, 1 failure\n")
}
