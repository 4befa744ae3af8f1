package process

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WritePIDFile writes pid to path, creating parent directories.
func WritePIDFile(path string, pid int) {
	_ = os.MkdirAll(filepath.Dir(path), 0o750)
	_ = os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600)
}

// ReadPIDFile returns the pid recorded at path. Extra lines after the first
// are ignored so pidfiles written by the daemons themselves still parse.
func ReadPIDFile(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	first, _, _ := strings.Cut(string(b), "\n")
	return strconv.Atoi(strings.TrimSpace(first))
}
