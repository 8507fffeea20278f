package config

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatePaths(t *testing.T) {
	homedirExpand = func(path string) (string, error) {
		return "/home/user/" + path[2:], nil
	}

	path, err := MappingPath()
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/.setups-sync/car-mapping.yaml", path)

	path, err = StatePath()
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/.setups-sync/state.yaml", path)

	path, err = FingerprintCachePath()
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/.setups-sync/fingerprints.yaml", path)
}

func TestMappingsRoundTrip(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/home/user/.setups-sync/car-mapping.yaml"

	// A missing file isn't an error.
	mappings, err := ReadMappings(path)
	assert.NoError(t, err)
	assert.Empty(t, mappings)

	require.NoError(t, WriteMappings(path, map[string]string{
		"my gt3 folder": "bmwm4gt3",
	}))

	mappings, err = ReadMappings(path)
	assert.NoError(t, err)
	assert.Equal(t, map[string]string{"my gt3 folder": "bmwm4gt3"}, mappings)
}

func TestReadMappingsWrongVersion(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/state/car-mapping.yaml"
	require.NoError(t, afero.WriteFile(fs, path, []byte("version: v9\nmappings: {}\n"), 0644))

	_, err := ReadMappings(path)
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/home/user/.setups-sync/state.yaml"

	state, err := ReadState(path)
	assert.NoError(t, err)
	assert.False(t, state.DriversApplied)
	assert.Empty(t, state.Drivers)

	lastRun := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	exp := State{
		Drivers:        []string{"Alice", "Bob"},
		DriversApplied: true,
		LastRunID:      "run-id",
		LastRun:        lastRun,
	}
	require.NoError(t, WriteState(path, exp))

	state, err = ReadState(path)
	assert.NoError(t, err)

	exp.Version = SupportedStateVersion
	assert.Equal(t, exp.Drivers, state.Drivers)
	assert.True(t, state.DriversApplied)
	assert.Equal(t, "run-id", state.LastRunID)
	assert.True(t, lastRun.Equal(state.LastRun))
	assert.Equal(t, SupportedStateVersion, state.Version)
}
