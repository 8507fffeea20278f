package logfile

import (
	"io/ioutil"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

func TestHook(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/logs/setups-sync.log"
	require.NoError(t, afero.WriteFile(fs, path, []byte("previous run\n"), 0644))

	hook, err := NewHook(path)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(ioutil.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(hook)

	mockTime := time.Date(2024, 3, 1, 18, 30, 5, 0, time.UTC)
	logger.WithFields(logrus.Fields{
		"car":    "ferrari296gt3",
		"copied": 3,
	}).WithTime(mockTime).Info("Synced car")
	logger.WithError(errors.New("permission denied")).
		WithTime(mockTime).Warn("Failed to copy file")
	logger.WithTime(mockTime).Debug("Done")

	contents, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "previous run\n"+
		"[2024-03-01 18:30:05] INFO Synced car car=ferrari296gt3 copied=3\n"+
		"[2024-03-01 18:30:05] WARNING Failed to copy file error=permission denied\n"+
		"[2024-03-01 18:30:05] DEBUG Done\n",
		string(contents))
}

func TestHookCreatesFile(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, err := NewHook("/new/dir/sync.log")
	assert.NoError(t, err)

	exists, err := afero.Exists(fs, "/new/dir/sync.log")
	assert.NoError(t, err)
	assert.True(t, exists)
}

func TestHookUnwritable(t *testing.T) {
	fs = afero.NewReadOnlyFs(afero.NewMemMapFs())

	_, err := NewHook("/logs/sync.log")
	assert.Error(t, err)
}

func TestHookNeverFails(t *testing.T) {
	fs = afero.NewMemMapFs()
	h, err := NewHook("/logs/sync.log")
	require.NoError(t, err)

	// Break the filesystem after the hook was created.
	fs = afero.NewReadOnlyFs(afero.NewMemMapFs())
	assert.NoError(t, h.Fire(logrus.NewEntry(logrus.New())))
}
