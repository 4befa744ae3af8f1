package stagehand

import (
	"context"
	"io"
	"net/http"

	cfg "github.com/loykin/stagehand/internal/config"
	"github.com/loykin/stagehand/internal/journal"
	"github.com/loykin/stagehand/internal/journal/factory"
	"github.com/loykin/stagehand/internal/logger"
	"github.com/loykin/stagehand/internal/metrics"
	"github.com/loykin/stagehand/internal/orchestrator"
	"github.com/loykin/stagehand/internal/process"
	iapi "github.com/loykin/stagehand/internal/server"
	"github.com/loykin/stagehand/internal/topology"
	"github.com/loykin/stagehand/internal/unit"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Unit = unit.Unit

type ProcessSpec = unit.ProcessSpec

type ProcessStatus = process.Status

type Phase = orchestrator.Phase

type Topology = topology.Topology

type JournalSink = journal.Sink

type Config = cfg.Config

const (
	PhaseInstall   = orchestrator.PhaseInstall
	PhaseConfigure = orchestrator.PhaseConfigure
	PhaseInit      = orchestrator.PhaseInit
	PhaseStart     = orchestrator.PhaseStart
	PhaseStop      = orchestrator.PhaseStop
	PhaseCleanup   = orchestrator.PhaseCleanup
)

// Orchestrator is a thin facade over internal/orchestrator.Orchestrator.
// It provides a stable public API for embedding.
type Orchestrator struct{ inner *orchestrator.Orchestrator }

// New builds an orchestrator from a loaded config. A journal sink is opened
// when the config declares a DSN; pass it to Close when done.
func New(c *Config) (*Orchestrator, func() error, error) {
	closeSink := func() error { return nil }
	var sink journal.Sink
	if c.JournalDSN != "" {
		s, err := factory.NewSinkFromDSN(c.JournalDSN)
		if err != nil {
			return nil, nil, err
		}
		sink = s
		if cl, ok := s.(io.Closer); ok {
			closeSink = cl.Close
		}
	}
	inner, err := orchestrator.New(orchestrator.Options{
		Host:         c.Host,
		Topology:     c.Topology,
		Units:        c.Units,
		IdentityFile: c.IdentityFile,
		Logger:       logger.New(false),
		Journal:      sink,
	})
	if err != nil {
		_ = closeSink()
		return nil, nil, err
	}
	return &Orchestrator{inner: inner}, closeSink, nil
}

func (o *Orchestrator) Run(ctx context.Context, phase Phase, unitName string) error {
	return o.inner.Run(ctx, phase, unitName)
}

func (o *Orchestrator) Order() ([]Unit, error) { return o.inner.Order() }

func (o *Orchestrator) Statuses() []ProcessStatus { return o.inner.ProcessStatuses() }

func ParsePhase(s string) (Phase, error) { return orchestrator.ParsePhase(s) }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the status API for the given
// orchestrator.
func NewHTTPServer(addr, basePath string, o *Orchestrator) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, o.inner)
}

// StatusHandler returns the embeddable status API handler for mounting in any
// mux or framework.
func StatusHandler(basePath string, o *Orchestrator) http.Handler {
	return iapi.NewRouter(o.inner, basePath).Handler()
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
