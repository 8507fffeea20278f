package runner

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	for path, contents := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
	}
}

// listFiles returns the contents of every file under `root`, keyed by the
// slash separated path relative to `root`.
func listFiles(t *testing.T, fs afero.Fs, root string) map[string]string {
	files := map[string]string{}
	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
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
		files[filepath.ToSlash(rel)] = string(contents)
		return nil
	})
	require.NoError(t, err)
	return files
}

func writeZip(t *testing.T, fs afero.Fs, path string, files map[string]string) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, contents := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(contents))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

// failWriteFs refuses to create files or directories under `prefix`.
type failWriteFs struct {
	afero.Fs
	prefix string
}

func (fs failWriteFs) denied(name string) bool {
	return strings.HasPrefix(name, fs.prefix)
}

func (fs failWriteFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE) != 0 && fs.denied(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return fs.Fs.OpenFile(name, flag, perm)
}

func (fs failWriteFs) MkdirAll(name string, perm os.FileMode) error {
	if fs.denied(name) {
		if _, err := fs.Fs.Stat(name); err == nil {
			return nil
		}
		return &os.PathError{Op: "mkdir", Path: name, Err: os.ErrPermission}
	}
	return fs.Fs.MkdirAll(name, perm)
}
