package process

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/stagehand/internal/unit"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", d)
}

func TestStartWritesPIDFileAndReports(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "sleep.pid")
	h := New(unit.ProcessSpec{Name: "sleeper", Command: "sleep 5", PIDFile: pf})
	if err := h.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = h.Kill() }()

	st := h.Snapshot()
	if st.PID <= 0 || !st.Running {
		t.Fatalf("unexpected status after start: %+v", st)
	}
	pid, err := ReadPIDFile(pf)
	if err != nil || pid != st.PID {
		t.Fatalf("pidfile pid=%d err=%v, want %d", pid, err, st.PID)
	}
	if alive, by := h.Alive(); !alive || by != "pid" {
		t.Fatalf("expected alive via pid, got alive=%v by=%q", alive, by)
	}
}

// countFDs reads the process fd table; only available with procfs.
func countFDs(t *testing.T) int {
	t.Helper()
	ents, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skipf("no fd table: %v", err)
	}
	return len(ents)
}

func TestStartWithoutLogDoesNotLeakDescriptors(t *testing.T) {
	before := countFDs(t)
	handles := make([]*Handle, 0, 8)
	for i := 0; i < 8; i++ {
		h := New(unit.ProcessSpec{Name: "null", Command: "/bin/true"})
		if err := h.Start(nil); err != nil {
			t.Fatalf("Start %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		waitFor(t, 3*time.Second, func() bool { return !h.Snapshot().Running })
	}
	// ReadDir holds one fd of its own; anything beyond slack is a leak.
	if after := countFDs(t); after > before+2 {
		t.Fatalf("fd count grew from %d to %d after 8 spawns", before, after)
	}
}

func TestSignalStopTerminates(t *testing.T) {
	h := New(unit.ProcessSpec{Name: "sleeper", Command: "sleep 30"})
	if err := h.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.SignalStop(); err != nil {
		t.Fatalf("SignalStop: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool {
		alive, _ := h.Alive()
		return !alive
	})
}

func TestReaperRecordsExit(t *testing.T) {
	h := New(unit.ProcessSpec{Name: "quick", Command: "/bin/true"})
	if err := h.Start(nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, 3*time.Second, func() bool { return !h.Snapshot().Running })
	st := h.Snapshot()
	if st.StoppedAt.IsZero() {
		t.Fatalf("StoppedAt not recorded: %+v", st)
	}
}

func TestSeedPIDRecovery(t *testing.T) {
	h := New(unit.ProcessSpec{Name: "adopted"})
	h.SeedPID(os.Getpid())
	if alive, _ := h.Alive(); !alive {
		t.Fatalf("seeded live pid should report alive")
	}
	h2 := New(unit.ProcessSpec{Name: "gone"})
	h2.SeedPID(1 << 30) // certainly not a live pid
	if alive, _ := h2.Alive(); alive {
		t.Fatalf("seeded dead pid should not report alive")
	}
}

func TestSignalStopOnDeadProcessIsNil(t *testing.T) {
	h := New(unit.ProcessSpec{Name: "never-started"})
	if err := h.SignalStop(); err != nil {
		t.Fatalf("SignalStop on unstarted handle: %v", err)
	}
	h.SeedPID(1 << 30)
	if err := h.SignalStop(); err != nil {
		t.Fatalf("SignalStop on dead pid: %v", err)
	}
}

func TestRemovePIDFile(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "x.pid")
	WritePIDFile(pf, 1234)
	h := New(unit.ProcessSpec{Name: "x", PIDFile: pf})
	h.RemovePIDFile()
	if _, err := os.Stat(pf); !os.IsNotExist(err) {
		t.Fatalf("pidfile still present: %v", err)
	}
}

func TestReadPIDFileIgnoresTrailingLines(t *testing.T) {
	dir := t.TempDir()
	pf := filepath.Join(dir, "multi.pid")
	if err := os.WriteFile(pf, []byte("4321\nsome daemon metadata\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	pid, err := ReadPIDFile(pf)
	if err != nil || pid != 4321 {
		t.Fatalf("pid=%d err=%v, want 4321", pid, err)
	}
}
