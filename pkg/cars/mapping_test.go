package cars

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
)

func TestMappingCache(t *testing.T) {
	fs := afero.NewMemMapFs()
	config.SetFs(fs)
	path := "/state/car-mapping.yaml"

	cache, err := LoadMappingCache(path)
	require.NoError(t, err)

	_, ok := cache.Get("My GT3")
	assert.False(t, ok)

	// Nothing is written if nothing changed.
	require.NoError(t, cache.Save(path))
	exists, err := afero.Exists(fs, path)
	require.NoError(t, err)
	assert.False(t, exists)

	cache.Set("My GT3", "bmwm4gt3")
	target, ok := cache.Get("my gt3 ")
	assert.True(t, ok)
	assert.Equal(t, "bmwm4gt3", target)
	require.NoError(t, cache.Save(path))

	reloaded, err := LoadMappingCache(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"my gt3": "bmwm4gt3"}, reloaded.Mappings())
}
