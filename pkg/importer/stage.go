// Package importer brings setups from a supplier download into the car
// directories of the setups root.
package importer

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

const scratchPrefix = "setups-sync-import-"

const badArchiveTemplate = "The import archive at %s couldn't be read: %s\n\n" +
	"Check that it's a complete zip file, or download it again."

// Staged is an import tree that's ready to be identified.
type Staged struct {
	// Dir contains one folder per car.
	Dir string

	// scratch is set when Dir was created by Stage, and should be removed
	// once the import is applied.
	scratch bool
}

// Stage prepares the import tree for `mode`. Archives are extracted into a
// scratch directory outside the setups root. Folders are used as is. Staging
// never modifies the setups root.
func Stage(fs afero.Fs, mode config.ImportMode, path string) (Staged, error) {
	switch mode {
	case config.ImportNone, "":
		return Staged{}, nil
	case config.ImportFolder:
		if err := requireExists(fs, path, "import folder", true); err != nil {
			return Staged{}, err
		}
		return Staged{Dir: path}, nil
	case config.ImportZip:
		if err := requireExists(fs, path, "import archive", false); err != nil {
			return Staged{}, err
		}

		dir, err := afero.TempDir(fs, "", scratchPrefix)
		if err != nil {
			return Staged{}, errors.WithContext(err, "make scratch directory")
		}

		staged := Staged{Dir: dir, scratch: true}
		if err := extract(fs, path, dir); err != nil {
			staged.Cleanup(fs)
			return Staged{}, err
		}
		return staged, nil
	default:
		return Staged{}, errors.InvalidFieldError{
			Field:  "importMode",
			Value:  string(mode),
			Reason: "must be zip, folder or none",
		}
	}
}

// Empty returns whether there's nothing to import.
func (s Staged) Empty() bool {
	return s.Dir == ""
}

// Cleanup removes the scratch directory, if any.
func (s Staged) Cleanup(fs afero.Fs) error {
	if !s.scratch {
		return nil
	}
	return fs.RemoveAll(s.Dir)
}

func requireExists(fs afero.Fs, path, what string, isDir bool) error {
	info, err := fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.PathNotFound{Path: path, What: what}
		}
		return errors.ReadFailure{Path: path, Err: err}
	}

	if info.IsDir() != isDir {
		return errors.InvalidFieldError{
			Field:  what,
			Value:  path,
			Reason: "has the wrong file type",
		}
	}
	return nil
}

// extract writes the contents of the zip archive at `archive` into `dir`.
func extract(fs afero.Fs, archive, dir string) error {
	f, err := fs.Open(archive)
	if err != nil {
		return errors.ReadFailure{Path: archive, Err: err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.ReadFailure{Path: archive, Err: err}
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return errors.NewFriendlyError(badArchiveTemplate, archive, err)
	}

	for _, zf := range zr.File {
		dst, ok := extractPath(dir, zf.Name)
		if !ok {
			log.WithField("entry", zf.Name).Warn("Skipping archive entry outside the archive root")
			continue
		}

		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(dst, 0755); err != nil {
				return errors.WriteFailure{Path: dst, Err: err}
			}
			continue
		}

		if err := extractFile(fs, zf, dst); err != nil {
			if _, ok := err.(errors.WriteFailure); ok {
				return err
			}
			return errors.NewFriendlyError(badArchiveTemplate, archive, err)
		}
	}

	log.WithFields(log.Fields{
		"archive": archive,
		"entries": len(zr.File),
	}).Debug("Extracted import archive")
	return nil
}

// extractPath returns where the entry called `name` should be extracted.
// Entries that would end up outside `dir` are rejected.
func extractPath(dir, name string) (string, bool) {
	rel := filepath.Clean(filepath.FromSlash(name))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." ||
		strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(dir, rel), true
}

func extractFile(fs afero.Fs, zf *zip.File, dst string) error {
	src, err := zf.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WriteFailure{Path: dst, Err: err}
	}

	mode := zf.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return errors.WriteFailure{Path: dst, Err: err}
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}

	if err := out.Close(); err != nil {
		return errors.WriteFailure{Path: dst, Err: err}
	}

	if modTime := zf.Modified; !modTime.IsZero() {
		if err := fs.Chtimes(dst, modTime, modTime); err != nil {
			return errors.WriteFailure{Path: dst, Err: err}
		}
	}
	return nil
}
