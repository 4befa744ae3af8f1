package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/stagehand/internal/metrics"
	"github.com/loykin/stagehand/internal/orchestrator"
	"github.com/loykin/stagehand/internal/process"
)

// Router provides embeddable read-only HTTP handlers over an orchestrator.
// Endpoints:
//
//	GET {basePath}/status   current phase, per-unit states, process snapshots
//	GET {basePath}/order    units in dependency order
//	GET {basePath}/healthz  liveness of the server itself
//	GET {basePath}/metrics  prometheus exposition
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	orch     *orchestrator.Orchestrator
	basePath string
}

func NewRouter(orch *orchestrator.Orchestrator, basePath string) *Router {
	return &Router{orch: orch, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server or mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/order", r.handleOrder)
	group.GET("/healthz", r.handleHealthz)
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
// Callers shut it down via the returned http.Server.
func NewServer(addr, basePath string, orch *orchestrator.Orchestrator) (*http.Server, error) {
	r := NewRouter(orch, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

type statusResp struct {
	Host      string            `json:"host"`
	Phase     string            `json:"phase,omitempty"`
	Units     map[string]string `json:"units"`
	Processes []process.Status  `json:"processes"`
}

func (r *Router) handleStatus(c *gin.Context) {
	resp := statusResp{
		Host:      r.orch.Host(),
		Units:     map[string]string{},
		Processes: r.orch.ProcessStatuses(),
	}
	if run := r.orch.LastRun(); run != nil {
		resp.Phase = run.Phase.String()
		for name, st := range run.States() {
			resp.Units[name] = st.String()
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (r *Router) handleOrder(c *gin.Context) {
	ordered, err := r.orch.Order()
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	names := make([]string, 0, len(ordered))
	for i := range ordered {
		names = append(names, ordered[i].Name)
	}
	c.JSON(http.StatusOK, gin.H{"order": names})
}

func (r *Router) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
