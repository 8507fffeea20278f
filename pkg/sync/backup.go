package sync

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Snapshot replaces `destination` with a full copy of `root`. Anything that
// was previously in `destination` is removed first, so reusing a destination
// replaces the prior snapshot.
func Snapshot(fs afero.Fs, root, destination string) (Report, error) {
	var report Report

	root = filepath.Clean(root)
	destination = filepath.Clean(destination)
	if destination == root || isWithin(root, destination) {
		return report, errors.InvalidFieldError{
			Field:  "backup path",
			Value:  destination,
			Reason: "must be outside of the setups root",
		}
	}

	if isWithin(destination, root) {
		return report, errors.InvalidFieldError{
			Field:  "backup path",
			Value:  destination,
			Reason: "can't contain the setups root",
		}
	}

	if _, err := fs.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return report, errors.PathNotFound{Path: root, What: "setups root"}
		}
		return report, errors.ReadFailure{Path: root, Err: err}
	}

	if err := fs.RemoveAll(destination); err != nil {
		return report, errors.WriteFailure{Path: destination, Err: err}
	}

	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			report.fail(errors.ReadFailure{Path: path, Err: err})
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		dstPath := filepath.Join(destination, relPath)

		if fi.IsDir() {
			if err := fs.MkdirAll(dstPath, 0755); err != nil {
				return errors.WriteFailure{Path: dstPath, Err: err}
			}
			return nil
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		switch err := copyFile(fs, path, dstPath).(type) {
		case nil:
			report.Copied++
		case errors.ReadFailure:
			report.fail(err)
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return report, err
	}

	log.WithFields(log.Fields{
		"root":        root,
		"destination": destination,
		"files":       report.Copied,
	}).Info("Backed up setups")
	return report, nil
}

// isWithin returns whether `path` is strictly inside `dir`.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != "." && rel != ".." &&
		!strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
