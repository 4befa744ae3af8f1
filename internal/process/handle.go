package process

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/loykin/stagehand/internal/unit"
)

// Status is a point-in-time snapshot of a handle.
type Status struct {
	Name       string    `json:"name"`
	PID        int       `json:"pid"`
	Running    bool      `json:"running"`
	StartedAt  time.Time `json:"started_at"`
	StoppedAt  time.Time `json:"stopped_at"`
	ExitErr    error     `json:"-"`
	DetectedBy string    `json:"detected_by,omitempty"`
}

// Handle wraps one externally launched daemon. It is owned exclusively by the
// orchestrator that spawned (or recovered) it; daemons are started in their
// own session so they survive orchestrator exit.
type Handle struct {
	spec unit.ProcessSpec

	mu        sync.Mutex
	cmd       *exec.Cmd
	status    Status
	outCloser io.WriteCloser
	errCloser io.WriteCloser
}

func New(spec unit.ProcessSpec) *Handle {
	return &Handle{spec: spec, status: Status{Name: spec.Name}}
}

func (h *Handle) Spec() unit.ProcessSpec { return h.spec }

// Start spawns the daemon. extraEnv entries are appended after the process
// env so orchestrator-rendered values (identity, remotes) win.
func (h *Handle) Start(extraEnv []string) error {
	cmd := h.spec.BuildCommand()
	if h.spec.WorkDir != "" {
		cmd.Dir = h.spec.WorkDir
	}
	env := os.Environ()
	env = append(env, h.spec.Env...)
	env = append(env, extraEnv...)
	cmd.Env = env
	// New session: the daemon must not die with the orchestrator, and the
	// session gives us a process group to signal.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	outW, errW, _ := h.spec.Log.Writers(h.spec.Name)
	if h.spec.Log.Dir != "" {
		_ = os.MkdirAll(h.spec.Log.Dir, 0o750)
	}
	var devNull *os.File
	if outW == nil || errW == nil {
		devNull, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if outW != nil {
		cmd.Stdout = outW
	} else {
		cmd.Stdout = devNull
	}
	if errW != nil {
		cmd.Stderr = errW
	} else {
		cmd.Stderr = devNull
	}

	err := cmd.Start()
	// The child holds its own descriptor once started; keeping ours open
	// would leak one per spawn in serve mode.
	if devNull != nil {
		_ = devNull.Close()
	}
	if err != nil {
		closeIf(outW)
		closeIf(errW)
		return err
	}

	h.mu.Lock()
	h.cmd = cmd
	h.outCloser = outW
	h.errCloser = errW
	h.status.PID = cmd.Process.Pid
	h.status.Running = true
	h.status.StartedAt = time.Now()
	h.mu.Unlock()

	h.writePIDFile(cmd.Process.Pid)

	// Reap on exit so a short-lived child never lingers as a zombie while the
	// orchestrator stays up (serve mode).
	go func() {
		err := cmd.Wait()
		h.mu.Lock()
		h.status.Running = false
		h.status.StoppedAt = time.Now()
		h.status.ExitErr = err
		h.mu.Unlock()
		h.closeWriters()
	}()
	return nil
}

// SeedPID adopts a daemon recovered from its pidfile (stop/cleanup run in a
// fresh orchestrator process).
func (h *Handle) SeedPID(pid int) {
	h.mu.Lock()
	h.status.PID = pid
	h.status.Running = pidExists(pid)
	h.mu.Unlock()
}

func (h *Handle) Snapshot() Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Alive probes liveness: the seeded/spawned pid first, then the spec's
// readiness detectors.
func (h *Handle) Alive() (bool, string) {
	h.mu.Lock()
	pid := h.status.PID
	h.mu.Unlock()

	if pid > 0 && pidExists(pid) {
		return true, "pid"
	}
	for _, d := range h.spec.Checks() {
		if ok, _ := d.Ready(); ok {
			return true, d.Describe()
		}
	}
	return false, ""
}

// SignalStop sends SIGTERM to the daemon's process group and returns without
// waiting for exit. Teardown is signal-and-continue.
func (h *Handle) SignalStop() error {
	return h.signal(syscall.SIGTERM)
}

// Kill sends SIGKILL.
func (h *Handle) Kill() error {
	return h.signal(syscall.SIGKILL)
}

func (h *Handle) signal(sig syscall.Signal) error {
	h.mu.Lock()
	pid := h.status.PID
	h.mu.Unlock()
	if pid <= 0 {
		return nil
	}
	// Group first (setsid makes pgid == pid); a recovered daemon may lead a
	// different group, so fall back to the pid itself.
	if err := syscall.Kill(-pid, sig); err == nil {
		return nil
	}
	err := syscall.Kill(pid, sig)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}

func (h *Handle) writePIDFile(pid int) {
	if h.spec.PIDFile == "" || pid <= 0 {
		return
	}
	WritePIDFile(h.spec.PIDFile, pid)
}

// RemovePIDFile is best-effort.
func (h *Handle) RemovePIDFile() {
	if h.spec.PIDFile != "" {
		_ = os.Remove(h.spec.PIDFile)
	}
}

func (h *Handle) closeWriters() {
	h.mu.Lock()
	out, errw := h.outCloser, h.errCloser
	h.outCloser, h.errCloser = nil, nil
	h.mu.Unlock()
	closeIf(out)
	closeIf(errw)
}

func closeIf(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

func pidExists(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
