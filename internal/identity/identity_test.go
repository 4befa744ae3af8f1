package identity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestEnsureMintsThenReuses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "system-id")

	first, err := Ensure(path)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if _, err := uuid.Parse(first); err != nil {
		t.Fatalf("minted identity is not a UUID: %q", first)
	}

	second, err := Ensure(path)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if second != first {
		t.Fatalf("identity regenerated: %q then %q", first, second)
	}
}

func TestEnsureRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "system-id")
	if err := os.WriteFile(path, []byte("not-a-uuid\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Ensure(path); err == nil {
		t.Fatalf("corrupt identity accepted")
	}
}
