package config

import (
	"fmt"

	"github.com/loykin/stagehand/internal/detector"
	"github.com/loykin/stagehand/internal/errdefs"
	"github.com/loykin/stagehand/internal/logger"
	"github.com/loykin/stagehand/internal/topology"
	"github.com/loykin/stagehand/internal/unit"
	"github.com/spf13/viper"
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Host         string         `mapstructure:"host"`
	IdentityFile string         `mapstructure:"identity_file"`
	Log          logger.Config  `mapstructure:"log"`
	Journal      JournalConfig  `mapstructure:"journal"`
	Topology     TopologyConfig `mapstructure:"topology"`
	Units        []unit.Unit    `mapstructure:"units"`
}

type JournalConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TopologyConfig struct {
	Hosts map[string]topology.Host `mapstructure:"hosts"`
}

// Config is the loaded, validated form handed to the orchestrator.
type Config struct {
	Host         string
	IdentityFile string
	Log          logger.Config
	JournalDSN   string
	Topology     *topology.Topology
	Units        []unit.Unit
}

// Load parses the TOML file at path, resolves readiness detectors, merges
// per-process log config with the top-level one, and validates the whole:
// known hosts, valid units, acyclic dependencies. All failures wrap
// ErrConfigInvalid.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", errdefs.ErrConfigInvalid, path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", errdefs.ErrConfigInvalid, path, err)
	}
	return build(&fc)
}

func build(fc *FileConfig) (*Config, error) {
	topo, err := topology.New(fc.Topology.Hosts)
	if err != nil {
		return nil, err
	}
	if fc.Host == "" {
		return nil, fmt.Errorf("%w: host is required", errdefs.ErrConfigInvalid)
	}
	if _, ok := topo.Host(fc.Host); !ok {
		return nil, fmt.Errorf("%w: host %q not in topology", errdefs.ErrConfigInvalid, fc.Host)
	}

	units := make([]unit.Unit, len(fc.Units))
	copy(units, fc.Units)
	for i := range units {
		u := &units[i]
		if err := u.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", errdefs.ErrConfigInvalid, err)
		}
		if _, ok := topo.Host(u.Host); !ok {
			return nil, fmt.Errorf("%w: unit %s placed on unknown host %q", errdefs.ErrConfigInvalid, u.Name, u.Host)
		}
		for _, ref := range u.RemoteEnv {
			if _, err := topo.Remote(ref); err != nil {
				return nil, fmt.Errorf("unit %s: %w", u.Name, err)
			}
		}
		for j := range u.Processes {
			p := &u.Processes[j]
			dets, err := buildDetectors(u.Name, p.ReadinessConfigs)
			if err != nil {
				return nil, err
			}
			p.Readiness = dets
			p.Log = p.Log.Merge(fc.Log)
		}
	}

	// Surfaces duplicate names, unknown dependencies and cycles at load time
	// rather than mid-run.
	if _, err := unit.TopologicalOrder(units); err != nil {
		return nil, err
	}

	return &Config{
		Host:         fc.Host,
		IdentityFile: fc.IdentityFile,
		Log:          fc.Log,
		JournalDSN:   fc.Journal.DSN,
		Topology:     topo,
		Units:        units,
	}, nil
}

func buildDetectors(unitName string, rcs []unit.ReadinessConfig) ([]detector.Detector, error) {
	dets := make([]detector.Detector, 0, len(rcs))
	for _, rc := range rcs {
		switch rc.Type {
		case "path":
			if rc.Path == "" {
				return nil, fmt.Errorf("%w: unit %s: readiness path requires path", errdefs.ErrConfigInvalid, unitName)
			}
			dets = append(dets, detector.PathDetector{Path: rc.Path})
		case "pidfile":
			if rc.Path == "" {
				return nil, fmt.Errorf("%w: unit %s: readiness pidfile requires path", errdefs.ErrConfigInvalid, unitName)
			}
			dets = append(dets, detector.PIDFileDetector{PIDFile: rc.Path})
		case "command":
			if rc.Command == "" {
				return nil, fmt.Errorf("%w: unit %s: readiness command requires command", errdefs.ErrConfigInvalid, unitName)
			}
			dets = append(dets, detector.CommandDetector{Command: rc.Command})
		default:
			return nil, fmt.Errorf("%w: unit %s: unknown readiness type %q", errdefs.ErrConfigInvalid, unitName, rc.Type)
		}
	}
	return dets, nil
}
