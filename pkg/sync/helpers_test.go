package sync

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/fingerprint"
)

var testLayout = Layout{SourceName: "Source", DestName: "Destination"}

type mockFile struct {
	path     string
	contents string
	mode     os.FileMode
	modTime  time.Time
}

func (f mockFile) write(t *testing.T, fs afero.Fs) {
	if f.mode == 0 {
		f.mode = 0644
	}
	if f.modTime.IsZero() {
		f.modTime = time.Date(2019, 11, 10, 12, 0, 0, 0, time.UTC)
	}
	require.NoError(t, afero.WriteFile(fs, f.path, []byte(f.contents), f.mode))
	require.NoError(t, fs.Chtimes(f.path, time.Now(), f.modTime))
}

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	for path, contents := range files {
		mockFile{path: path, contents: contents}.write(t, fs)
	}
}

// listFiles returns the contents of every file under `root`, keyed by the path
// relative to `root`.
func listFiles(t *testing.T, fs afero.Fs, root string) map[string]string {
	files := map[string]string{}
	exists, err := afero.DirExists(fs, root)
	require.NoError(t, err)
	if !exists {
		return files
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil || fi.IsDir() {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		contents, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		files[rel] = string(contents)
		return nil
	})
	require.NoError(t, err)
	return files
}

func assertNotExist(t *testing.T, fs afero.Fs, path string) {
	exists, err := afero.Exists(fs, path)
	assert.NoError(t, err)
	assert.False(t, exists, path)
}

func newTestMerger(fs afero.Fs) *Merger {
	return NewMerger(fs, fingerprint.NewStore(fs, fingerprint.MD5, fingerprint.Options{}))
}

// failOpenFs fails to open the files in `unreadable`.
type failOpenFs struct {
	afero.Fs
	unreadable map[string]struct{}
}

func newFailOpenFs(fs afero.Fs, unreadable ...string) failOpenFs {
	paths := map[string]struct{}{}
	for _, path := range unreadable {
		paths[path] = struct{}{}
	}
	return failOpenFs{Fs: fs, unreadable: paths}
}

func (fs failOpenFs) Open(name string) (afero.File, error) {
	if _, ok := fs.unreadable[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return fs.Fs.Open(name)
}
