package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EnvVar is exported into hook and daemon environments during configure and
// start so external tools can tag their state with the host identity.
const EnvVar = "STAGEHAND_SYSTEM_ID"

// Ensure returns the persisted system identity at path, minting and writing a
// new UUID only when none exists. Re-running configure re-reads the existing
// token rather than regenerating it.
func Ensure(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(b))
		if _, perr := uuid.Parse(id); perr != nil {
			return "", fmt.Errorf("identity file %s is corrupt: %w", path, perr)
		}
		return id, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", err
	}
	return id, nil
}
