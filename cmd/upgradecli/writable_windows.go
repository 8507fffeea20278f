//go:build windows

package upgradecli

import (
	"os"
	"path/filepath"
)

// checkWritable returns true if the user can replace the file. Windows
// doesn't expose Unix permission bits, and a running binary can't be opened
// for writing, so it checks whether a file can be created next to it.
func checkWritable(path string) (bool, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".setups-sync-*")
	if err != nil {
		if os.IsPermission(err) {
			return false, nil
		}
		return false, err
	}
	f.Close()
	return true, os.Remove(f.Name())
}
