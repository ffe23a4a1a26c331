package server

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"riftterm/internal/generator"
	"riftterm/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(t *testing.T, body io.Reader) []sseEvent {
	t.Helper()
	var out []sseEvent
	var cur sseEvent
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			cur.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			cur.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		case line == "" && cur.name != "":
			out = append(out, cur)
			cur = sseEvent{}
		}
	}
	require.NoError(t, sc.Err())
	return out
}

func instantConfig() generator.Config {
	cfg := generator.DefaultConfig()
	cfg.WarmUp, cfg.ConnectDelay, cfg.ConnectedDelay, cfg.ScanDelay = 0, 0, 0, 0
	cfg.MinWait, cfg.MaxWait, cfg.DecisionDelay, cfg.ClosingDelay = 0, 0, 0, 0
	cfg.MaxDetections = 4
	cfg.ProcessingThreshold = 2
	return cfg
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	srv := httptest.NewServer(NewRouter(opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_ProceduralRunsToDone(t *testing.T) {
	srv := newTestServer(t, Options{BasePath: "/api/terminal/", Simulation: instantConfig()})

	resp, err := http.Get(srv.URL + "/api/terminal/stream?seed=7")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
	assert.NotEmpty(t, resp.Header.Get("X-Session-Id"))

	events := readEvents(t, resp.Body)
	require.NotEmpty(t, events)

	counts := map[string]int{}
	for _, e := range events {
		counts[e.name]++
	}
	assert.Equal(t, 4, counts["detection"])
	assert.Equal(t, 3, counts["phase"])
	assert.Equal(t, 1, counts["done"])

	last := events[len(events)-1]
	require.Equal(t, "done", last.name)
	var done doneResp
	require.NoError(t, json.Unmarshal([]byte(last.data), &done))
	assert.Equal(t, 4, done.Detections)
	assert.Equal(t, 4, done.MaxDetections)
	assert.Empty(t, done.Error)

	require.Equal(t, "line", events[0].name)
	var first struct {
		Text  string `json:"text"`
		Kind  string `json:"kind"`
		Phase string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal([]byte(events[0].data), &first))
	assert.Equal(t, "Initializing Rift Protocol mempool monitor...", first.Text)
	assert.Equal(t, "info", first.Kind)
	assert.Equal(t, "init", first.Phase)
}

func TestStream_SameSeedSameTranscript(t *testing.T) {
	srv := newTestServer(t, Options{Simulation: instantConfig()})

	texts := func() []string {
		resp, err := http.Get(srv.URL + "/stream?seed=99")
		require.NoError(t, err)
		defer resp.Body.Close()
		var out []string
		for _, e := range readEvents(t, resp.Body) {
			if e.name != "line" {
				continue
			}
			var l struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.Unmarshal([]byte(e.data), &l))
			out = append(out, l.Text)
		}
		return out
	}
	a, b := texts(), texts()
	assert.Equal(t, a, b)
	assert.NotEmpty(t, a)
}

func TestStream_Scripted(t *testing.T) {
	srv := newTestServer(t, Options{Script: []generator.ScriptLine{
		{Text: "one"},
		{Text: "two", EmitAfter: 5 * time.Millisecond},
	}})

	resp, err := http.Get(srv.URL + "/stream?mode=scripted")
	require.NoError(t, err)
	defer resp.Body.Close()

	events := readEvents(t, resp.Body)
	require.Len(t, events, 3)
	assert.Equal(t, "line", events[0].name)
	assert.Contains(t, events[1].data, `"text":"two"`)
	assert.Equal(t, "done", events[2].name)
}

func TestStream_BadRequests(t *testing.T) {
	srv := newTestServer(t, Options{})

	for _, q := range []string{"?mode=laser", "?seed=abc"} {
		resp, err := http.Get(srv.URL + "/stream" + q)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.Contains(t, string(body), "error")
	}
}

func TestScriptAndHealth(t *testing.T) {
	h := NewRouter(Options{BasePath: "terminal"}).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/terminal/script", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var lines []scriptLineResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lines))
	require.Len(t, lines, 5)
	assert.Equal(t, int64(1200), lines[2].EmitAfterMs)
	assert.Equal(t, "success", lines[2].Kind)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics are off without a gatherer")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, metrics.Register(reg))
	srv := newTestServer(t, Options{Simulation: instantConfig(), Gatherer: reg})

	resp, err := http.Get(srv.URL + "/stream?seed=3")
	require.NoError(t, err)
	_, _ = io.ReadAll(resp.Body)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "riftterm_session_started_total")
	assert.Contains(t, string(body), "riftterm_terminal_detections_total")
}

func TestSanitizeBase(t *testing.T) {
	assert.Equal(t, "", sanitizeBase(""))
	assert.Equal(t, "", sanitizeBase("/"))
	assert.Equal(t, "/abc", sanitizeBase("abc/"))
	assert.Equal(t, "/a/b", sanitizeBase(" /a/b "))
}
