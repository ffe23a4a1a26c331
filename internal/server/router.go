package server

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"riftterm/internal/generator"
	"riftterm/internal/metrics"
	"riftterm/internal/session"
	"riftterm/internal/terminal"
)

// Router serves independent terminal simulations over Server-Sent Events.
// Endpoints:
//
//	GET {basePath}/stream   query: mode=procedural|scripted, seed=N (optional)
//	GET {basePath}/script   the scripted terminal lines as JSON
//	GET /healthz
//	GET /metrics            when a gatherer is configured
//
// Every stream request gets its own session; it is stopped when the client
// goes away. Viewers never share state.
type Router struct {
	basePath   string
	simulation generator.Config
	script     []generator.ScriptLine
	seed       uint64
	gatherer   prometheus.Gatherer
	logger     *slog.Logger
}

type Options struct {
	BasePath   string
	Simulation generator.Config
	Script     []generator.ScriptLine
	// Seed, when non-zero, seeds every session that does not pass its own.
	Seed     uint64
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

func NewRouter(opts Options) *Router {
	script := opts.Script
	if len(script) == 0 {
		script = generator.DefaultScript()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Router{
		basePath:   sanitizeBase(opts.BasePath),
		simulation: opts.Simulation,
		script:     script,
		seed:       opts.Seed,
		gatherer:   opts.Gatherer,
		logger:     log,
	}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	g.GET("/healthz", func(c *gin.Context) { writeJSON(c, http.StatusOK, okResp{OK: true}) })
	if r.gatherer != nil {
		g.GET("/metrics", gin.WrapH(metrics.Handler(r.gatherer)))
	}
	group := g.Group(r.basePath)
	group.GET("/stream", r.handleStream)
	group.GET("/script", r.handleScript)
	return g
}

// NewServer wraps h in an http.Server. WriteTimeout stays zero because
// streams outlive any fixed deadline.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type lineResp struct {
	terminal.Line
	Phase string `json:"phase,omitempty"`
}

type phaseResp struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type doneResp struct {
	Detections    int    `json:"detections"`
	MaxDetections int    `json:"maxDetections"`
	Lines         int    `json:"lines"`
	Error         string `json:"error,omitempty"`
}

type scriptLineResp struct {
	Text        string `json:"text"`
	Kind        string `json:"kind"`
	EmitAfterMs int64  `json:"emitAfterMs"`
}

func (r *Router) handleStream(c *gin.Context) {
	mode, err := session.ParseMode(c.Query("mode"))
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: err.Error()})
		return
	}
	seed := r.seed
	if raw := c.Query("seed"); raw != "" {
		seed, err = strconv.ParseUint(raw, 10, 64)
		if err != nil {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid seed: " + raw})
			return
		}
	}

	opts := session.Options{
		Mode:       mode,
		Simulation: r.simulation,
		Script:     r.script,
		Logger:     r.logger.With("remote", c.ClientIP()),
	}
	if seed != 0 {
		opts.Source = generator.NewSource(seed)
	}
	s, err := session.Start(c.Request.Context(), opts)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	defer s.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Session-Id", s.ID())
	c.Header("Content-Type", "text/event-stream")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-s.Events()
		if !ok {
			return false
		}
		switch e := ev.(type) {
		case session.LinesUpdated:
			if len(e.Lines) > 0 {
				c.SSEvent("line", lineResp{Line: e.Lines[len(e.Lines)-1], Phase: e.Phase})
			}
		case session.PhaseChanged:
			c.SSEvent("phase", phaseResp{From: e.From.String(), To: e.To.String()})
		case session.DetectionFound:
			c.SSEvent("detection", e.Detection)
		case session.Totals:
			if !e.Done {
				return true
			}
			resp := doneResp{Detections: e.Detections, MaxDetections: e.MaxDetections, Lines: e.Lines}
			if e.Err != nil {
				resp.Error = e.Err.Error()
			}
			c.SSEvent("done", resp)
			return false
		}
		return true
	})
}

func (r *Router) handleScript(c *gin.Context) {
	out := make([]scriptLineResp, 0, len(r.script))
	for _, l := range r.script {
		out = append(out, scriptLineResp{Text: l.Text, Kind: l.Kind.String(), EmitAfterMs: l.EmitAfter.Milliseconds()})
	}
	writeJSON(c, http.StatusOK, out)
}

func writeJSON(c *gin.Context, code int, v any) {
	c.JSON(code, v)
}

func sanitizeBase(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/")
}
