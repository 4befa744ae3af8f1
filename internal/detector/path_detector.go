package detector

import "os"

// PathDetector reports ready once Path exists. Control-plane daemons signal
// readiness by materializing a unix socket or database file at a known path,
// so existence is the readiness marker.
type PathDetector struct {
	Path string
}

func (d PathDetector) Ready() (bool, error) {
	_, err := os.Stat(d.Path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (d PathDetector) Describe() string { return "path:" + d.Path }
