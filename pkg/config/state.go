package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

const (
	// StateDir holds the files that setups-sync writes between runs.
	StateDir = "~/.setups-sync"

	mappingFile     = "car-mapping.yaml"
	stateFile       = "state.yaml"
	fingerprintFile = "fingerprints.yaml"

	// SupportedStateVersion is the version of the files in StateDir.
	SupportedStateVersion = "v1"
)

// Mappings records the answers to unknown car folder prompts, keyed by the
// lower-cased folder name.
type Mappings struct {
	Version  string            `json:"version,omitempty"`
	Mappings map[string]string `json:"mappings"`
}

func (m Mappings) getVersion() string {
	return m.Version
}

// State records what the previous run applied.
type State struct {
	Version string `json:"version,omitempty"`

	// Drivers is the roster whose folders currently exist. It's what the next
	// run compares against to decide which driver folders to remove.
	Drivers []string `json:"drivers,omitempty"`

	// DriversApplied is false until a run has reconciled driver folders. A run
	// without a previous roster never removes anything.
	DriversApplied bool `json:"driversApplied,omitempty"`

	LastRunID string    `json:"lastRunId,omitempty"`
	LastRun   time.Time `json:"lastRun,omitempty"`
}

func (s State) getVersion() string {
	return s.Version
}

// MappingPath returns the expanded path of the car mapping file.
func MappingPath() (string, error) {
	return homedirExpand(filepath.Join(StateDir, mappingFile))
}

// StatePath returns the expanded path of the run state file.
func StatePath() (string, error) {
	return homedirExpand(filepath.Join(StateDir, stateFile))
}

// FingerprintCachePath returns the expanded path of the fingerprint cache.
func FingerprintCachePath() (string, error) {
	return homedirExpand(filepath.Join(StateDir, fingerprintFile))
}

// ReadMappings reads the car mapping file at `path`. A missing file results in
// an empty mapping.
func ReadMappings(path string) (map[string]string, error) {
	mappings := Mappings{Version: SupportedStateVersion}
	if err := parseStateFile(path, &mappings); err != nil {
		return nil, err
	}

	if mappings.Mappings == nil {
		mappings.Mappings = map[string]string{}
	}
	return mappings.Mappings, nil
}

// WriteMappings writes the car mapping file.
func WriteMappings(path string, mappings map[string]string) error {
	return writeConfig(path, Mappings{
		Version:  SupportedStateVersion,
		Mappings: mappings,
	})
}

// ReadState reads the run state at `path`. A missing file results in the zero
// State.
func ReadState(path string) (State, error) {
	state := State{Version: SupportedStateVersion}
	if err := parseStateFile(path, &state); err != nil {
		return State{}, err
	}
	return state, nil
}

// WriteState writes the run state.
func WriteState(path string, state State) error {
	state.Version = SupportedStateVersion
	return writeConfig(path, state)
}

func parseStateFile(path string, config configInterface) error {
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		return nil
	}

	if err := parseConfig(path, config, SupportedStateVersion); err != nil {
		return errors.WithContext(err, "parse")
	}
	return nil
}
