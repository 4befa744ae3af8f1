package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/loykin/stagehand/internal/detector"
	"github.com/loykin/stagehand/internal/errdefs"
	"github.com/loykin/stagehand/internal/health"
	"github.com/loykin/stagehand/internal/identity"
	"github.com/loykin/stagehand/internal/journal"
	"github.com/loykin/stagehand/internal/metrics"
	"github.com/loykin/stagehand/internal/process"
	"github.com/loykin/stagehand/internal/topology"
	"github.com/loykin/stagehand/internal/unit"
)

// Options configures an Orchestrator.
type Options struct {
	Host         string
	Topology     *topology.Topology
	Units        []unit.Unit
	IdentityFile string
	Logger       *slog.Logger
	Journal      journal.Sink
}

// Orchestrator executes lifecycle phases over the units placed on one host.
// A single run is active at a time; phases never overlap.
type Orchestrator struct {
	host         string
	topo         *topology.Topology
	units        []unit.Unit
	identityFile string
	logger       *slog.Logger
	sink         journal.Sink

	mu      sync.Mutex
	handles map[string][]*process.Handle
	lastRun *Run
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Topology == nil {
		return nil, fmt.Errorf("%w: topology is required", errdefs.ErrConfigInvalid)
	}
	if _, ok := opts.Topology.Host(opts.Host); !ok {
		return nil, fmt.Errorf("%w: host %q not in topology", errdefs.ErrConfigInvalid, opts.Host)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		host:         opts.Host,
		topo:         opts.Topology,
		units:        opts.Units,
		identityFile: opts.IdentityFile,
		logger:       log,
		sink:         opts.Journal,
		handles:      make(map[string][]*process.Handle),
	}, nil
}

func (o *Orchestrator) Host() string { return o.host }

// Order returns all units in dependency order, name-ascending among peers.
func (o *Orchestrator) Order() ([]unit.Unit, error) {
	return unit.TopologicalOrder(o.units)
}

// LastRun returns the most recent run, or nil before the first phase.
func (o *Orchestrator) LastRun() *Run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastRun
}

// ProcessStatuses snapshots every handle the orchestrator has touched.
func (o *Orchestrator) ProcessStatuses() []process.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	names := make([]string, 0, len(o.handles))
	for name := range o.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []process.Status
	for _, name := range names {
		for _, h := range o.handles[name] {
			out = append(out, h.Snapshot())
		}
	}
	return out
}

// Run executes one phase across the selected units placed on the local host.
// selector is a unit name, or "" / "all" for every local unit. Forward phases
// walk the dependency order; stop and cleanup walk it in reverse.
func (o *Orchestrator) Run(ctx context.Context, phase Phase, selector string) error {
	ordered, err := unit.TopologicalOrder(o.units)
	if err != nil {
		return err
	}
	selected, err := o.selectUnits(ordered, selector)
	if err != nil {
		return err
	}
	if !phase.Forward() {
		selected = unit.Reverse(selected)
	}

	run := newRun(phase, o.host, selected)
	o.mu.Lock()
	o.lastRun = run
	o.mu.Unlock()

	o.journalPhase(journal.EventPhaseBegin, phase, "")
	err = o.runPhase(ctx, run, phase, selected)
	outcome := "ok"
	detail := ""
	if err != nil {
		outcome = "error"
		detail = err.Error()
	}
	metrics.IncPhaseRun(phase.String(), outcome)
	o.journalPhase(journal.EventPhaseEnd, phase, detail)
	return err
}

func (o *Orchestrator) runPhase(ctx context.Context, run *Run, phase Phase, selected []unit.Unit) error {
	// Install tolerates per-unit failure: the failing unit and its transitive
	// dependents are skipped, independent units still run, and the partial
	// result is reported.
	var installErrs []error
	skip := make(map[string]bool)

	for i := range selected {
		u := &selected[i]
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: before unit %s", errdefs.ErrCancelled, u.Name)
		}
		if u.Host != o.host {
			continue
		}
		if skip[u.Name] {
			o.logger.Warn("skipping unit: dependency unavailable", "unit", u.Name, "phase", phase)
			continue
		}

		var err error
		switch phase {
		case PhaseInstall:
			err = o.install(ctx, u)
			if err != nil {
				installErrs = append(installErrs, err)
				for dep := range unit.Dependents(o.units, u.Name) {
					skip[dep] = true
				}
				o.logger.Error("install failed", "unit", u.Name, "error", err)
				continue
			}
		case PhaseConfigure:
			err = o.configure(ctx, u)
		case PhaseInit:
			err = o.initialize(ctx, u)
		case PhaseStart:
			err = o.start(ctx, run, u)
		case PhaseStop:
			err = o.stop(ctx, run, u)
		case PhaseCleanup:
			// Teardown keeps going past a failing unit.
			if err = o.cleanup(ctx, run, u); err != nil {
				o.logger.Error("cleanup failed, continuing", "unit", u.Name, "error", err)
				err = nil
			}
		default:
			return fmt.Errorf("%w: unknown phase %q", errdefs.ErrConfigInvalid, phase)
		}
		if err != nil {
			return fmt.Errorf("unit %s: %w", u.Name, err)
		}
	}
	return errors.Join(installErrs...)
}

func (o *Orchestrator) selectUnits(ordered []unit.Unit, selector string) ([]unit.Unit, error) {
	if selector == "" || selector == "all" {
		return ordered, nil
	}
	for i := range ordered {
		if ordered[i].Name == selector {
			return ordered[i : i+1], nil
		}
	}
	return nil, fmt.Errorf("%w: unknown unit %q", errdefs.ErrConfigInvalid, selector)
}

// install runs the unit's install hooks. A declared check_command that
// already succeeds short-circuits the whole phase for the unit.
func (o *Orchestrator) install(ctx context.Context, u *unit.Unit) error {
	if u.CheckCommand != "" && commandSucceeds(ctx, u.CheckCommand) {
		o.logger.Info("install: artifacts present, skipping", "unit", u.Name)
		return nil
	}
	for i := range u.Hooks.Install {
		h := &u.Hooks.Install[i]
		if err := runHook(ctx, h, nil); err != nil {
			if errors.Is(err, errdefs.ErrCancelled) {
				return err
			}
			return fmt.Errorf("%w: %v", errdefs.ErrDependencyUnavailable, err)
		}
	}
	return nil
}

// configure materializes the persisted identity, renders remote connection
// strings from the topology, and runs the unit's configure hooks with both in
// the environment. Re-running is a no-op apart from re-reading the identity.
func (o *Orchestrator) configure(ctx context.Context, u *unit.Unit) error {
	env, err := o.renderEnv(u)
	if err != nil {
		return err
	}
	for i := range u.Hooks.Configure {
		if err := runHook(ctx, &u.Hooks.Configure[i], env); err != nil {
			return err
		}
	}
	return nil
}

// initialize resets runtime state, then runs init hooks. Reset is destructive
// and strictly opt-in: only declared reset_paths of resettable units go.
func (o *Orchestrator) initialize(ctx context.Context, u *unit.Unit) error {
	if u.Resettable {
		for _, p := range u.ResetPaths {
			o.logger.Info("init: removing runtime state", "unit", u.Name, "path", p)
			if err := os.RemoveAll(p); err != nil {
				return fmt.Errorf("reset %s: %w", p, err)
			}
		}
	}
	env, err := o.renderEnv(u)
	if err != nil {
		return err
	}
	for i := range u.Hooks.Init {
		if err := runHook(ctx, &u.Hooks.Init[i], env); err != nil {
			return err
		}
	}
	return nil
}

// start spawns the unit's processes and gates on readiness. A timeout marks
// the unit Failed and aborts the remaining starts; units already Up stay
// running, stopping them is the operator's call.
func (o *Orchestrator) start(ctx context.Context, run *Run, u *unit.Unit) error {
	env, err := o.renderEnv(u)
	if err != nil {
		return err
	}
	o.setState(run, u.Name, unit.StateStarting)
	gate := health.Gate{Timeout: u.GateTimeout(), Interval: u.GateInterval()}
	for _, h := range o.ensureHandles(u) {
		if err := h.Start(env); err != nil {
			o.setState(run, u.Name, unit.StateFailed)
			return fmt.Errorf("spawn %s: %w", h.Spec().Name, err)
		}
		spec := h.Spec()
		checks := spec.Checks()
		if len(checks) == 0 {
			continue
		}
		began := time.Now()
		err := gate.Await(ctx, allChecks(checks))
		metrics.ObserveReadyWait(u.Name, time.Since(began).Seconds())
		if err != nil {
			o.setState(run, u.Name, unit.StateFailed)
			return err
		}
	}
	o.setState(run, u.Name, unit.StateUp)
	metrics.IncUnitStart(u.Name)
	o.logger.Info("unit up", "unit", u.Name)
	return nil
}

// stop signals each process and moves on without waiting for exit. Handles
// without a live pid are recovered from pidfiles, so a fresh orchestrator can
// stop daemons started by an earlier one.
func (o *Orchestrator) stop(ctx context.Context, run *Run, u *unit.Unit) error {
	o.setState(run, u.Name, unit.StateStopping)
	for _, h := range o.ensureHandles(u) {
		if alive, _ := h.Alive(); !alive {
			if pidFile := h.Spec().PIDFile; pidFile != "" {
				if pid, err := process.ReadPIDFile(pidFile); err == nil {
					h.SeedPID(pid)
				}
			}
		}
		if err := h.SignalStop(); err != nil {
			o.logger.Error("stop signal failed, continuing", "unit", u.Name, "process", h.Spec().Name, "error", err)
		}
	}
	o.setState(run, u.Name, unit.StateStopped)
	metrics.IncUnitStop(u.Name)
	return nil
}

// cleanup runs the unit's cleanup hooks and drops pidfiles unconditionally,
// whatever stop did or failed to do.
func (o *Orchestrator) cleanup(ctx context.Context, run *Run, u *unit.Unit) error {
	var errs []error
	for i := range u.Hooks.Cleanup {
		if err := runHook(ctx, &u.Hooks.Cleanup[i], nil); err != nil {
			if errors.Is(err, errdefs.ErrCancelled) {
				return err
			}
			errs = append(errs, err)
		}
	}
	for _, h := range o.ensureHandles(u) {
		h.RemovePIDFile()
	}
	return errors.Join(errs...)
}

// renderEnv builds the env entries handed to hooks and spawned processes:
// the persisted system identity plus the unit's remote_env references
// resolved against the topology.
func (o *Orchestrator) renderEnv(u *unit.Unit) ([]string, error) {
	var env []string
	if o.identityFile != "" {
		id, err := identity.Ensure(o.identityFile)
		if err != nil {
			return nil, fmt.Errorf("identity: %w", err)
		}
		env = append(env, identity.EnvVar+"="+id)
	}
	keys := make([]string, 0, len(u.RemoteEnv))
	for k := range u.RemoteEnv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		remote, err := o.topo.Remote(u.RemoteEnv[k])
		if err != nil {
			return nil, err
		}
		env = append(env, k+"="+remote)
	}
	return env, nil
}

func (o *Orchestrator) ensureHandles(u *unit.Unit) []*process.Handle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hs, ok := o.handles[u.Name]; ok {
		return hs
	}
	hs := make([]*process.Handle, 0, len(u.Processes))
	for i := range u.Processes {
		hs = append(hs, process.New(u.Processes[i]))
	}
	o.handles[u.Name] = hs
	return hs
}

func (o *Orchestrator) setState(run *Run, name string, s unit.State) {
	run.setState(name, s)
	o.journal(journal.Event{
		Type:       journal.EventUnitState,
		OccurredAt: time.Now(),
		Host:       o.host,
		Phase:      run.Phase.String(),
		Unit:       name,
		State:      s.String(),
	})
}

func (o *Orchestrator) journalPhase(t journal.EventType, phase Phase, detail string) {
	o.journal(journal.Event{
		Type:       t,
		OccurredAt: time.Now(),
		Host:       o.host,
		Phase:      phase.String(),
		Detail:     detail,
	})
}

// journal records an event best-effort on a detached context, so teardown of
// a cancelled run still reaches the sink.
func (o *Orchestrator) journal(e journal.Event) {
	if o.sink == nil {
		return
	}
	jctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := o.sink.Send(jctx, e); err != nil {
		o.logger.Warn("journal send failed", "error", err)
	}
}

// allChecks folds several detectors into one readiness predicate that is
// ready only when every member is.
type allChecks []detector.Detector

func (a allChecks) Ready() (bool, error) {
	var lastErr error
	for _, c := range a {
		ok, err := c.Ready()
		if err != nil {
			lastErr = err
		}
		if !ok {
			return false, lastErr
		}
	}
	return true, lastErr
}

func (a allChecks) Describe() string {
	if len(a) == 1 {
		return a[0].Describe()
	}
	s := a[0].Describe()
	for _, c := range a[1:] {
		s += "+" + c.Describe()
	}
	return s
}
