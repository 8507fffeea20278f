package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/fingerprint"
)

// SetupExtension is the extension of iRacing setup files.
const SetupExtension = ".sto"

// Filter decides whether the file at the given relative path takes part in a
// merge.
type Filter func(relPath string) bool

// SetupFiles only matches setup files.
func SetupFiles(relPath string) bool {
	return strings.EqualFold(filepath.Ext(relPath), SetupExtension)
}

// AllFiles matches every file.
func AllFiles(string) bool {
	return true
}

// FilterFor returns the filter selected by the copyAllFileTypes setting.
func FilterFor(copyAll bool) Filter {
	if copyAll {
		return AllFiles
	}
	return SetupFiles
}

// Policy decides what happens to destination files that already exist.
type Policy int

const (
	// Overwrite replaces destination files whose contents differ from the
	// source. It's used for destinations that mirror their source.
	Overwrite Policy = iota

	// Protective never replaces a destination file, even a stale one. It's
	// used for driver folders, where an existing file is assumed to be a
	// deliberate customization.
	Protective

	// Newest replaces a destination file whose contents differ only if the
	// source file was modified more recently. It's used between peers, such
	// as the variants of a car, where neither side is authoritative.
	Newest
)

func (p Policy) String() string {
	switch p {
	case Protective:
		return "protective"
	case Newest:
		return "newest"
	default:
		return "overwrite"
	}
}

// MergeOptions configures a single merge.
type MergeOptions struct {
	// Filter selects the files to merge. Nil means SetupFiles.
	Filter Filter

	Policy Policy

	// IgnoreDirs are directory names directly under the source root that
	// aren't merged.
	IgnoreDirs []string
}

// Merger copies files between directory trees. It never deletes anything at
// the destination. It's safe for concurrent use as long as concurrent merges
// don't write to the same destination.
type Merger struct {
	fs    afero.Fs
	store *fingerprint.Store
}

// NewMerger returns a Merger that detects changes with `store`.
func NewMerger(fs afero.Fs, store *fingerprint.Store) *Merger {
	return &Merger{fs: fs, store: store}
}

// Merge copies the files in `src` that are missing or, depending on the
// policy, different in `dst`. A missing `src` results in an empty report.
//
// Files that can't be read are counted as failed, and the merge continues.
// If a destination file can't be written, the merge stops and an
// errors.WriteFailure is returned along with the report so far.
func (m *Merger) Merge(src, dst string, opts MergeOptions) (Report, error) {
	var report Report

	srcInfo, err := m.fs.Stat(src)
	if err != nil || !srcInfo.IsDir() {
		if err != nil && !os.IsNotExist(err) {
			report.fail(errors.ReadFailure{Path: src, Err: err})
		}
		return report, nil
	}

	filter := opts.Filter
	if filter == nil {
		filter = SetupFiles
	}

	ignored := map[string]struct{}{}
	for _, dir := range opts.IgnoreDirs {
		ignored[dir] = struct{}{}
	}

	err = afero.Walk(m.fs, src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			report.fail(errors.ReadFailure{Path: path, Err: err})
			return nil
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
			return fmt.Errorf("%s is outside of %s", path, src)
		}

		if fi.IsDir() {
			if _, ok := ignored[relPath]; ok {
				return filepath.SkipDir
			}
			return nil
		}

		if !fi.Mode().IsRegular() || !filter(relPath) {
			return nil
		}

		dstPath := filepath.Join(dst, relPath)
		if !m.needsCopy(path, dstPath, opts.Policy) {
			report.Skipped++
			return nil
		}

		switch err := copyFile(m.fs, path, dstPath).(type) {
		case nil:
			m.store.Forget(dstPath)
			report.Copied++
			report.CopiedPaths = append(report.CopiedPaths, dstPath)
		case errors.ReadFailure:
			log.WithError(err).WithField("path", path).Warn("Failed to copy file. Skipping.")
			report.fail(err)
		default:
			return err
		}
		return nil
	})

	if err != nil {
		return report, err
	}

	if report.Copied > 0 {
		log.WithFields(log.Fields{
			"src":    src,
			"dst":    dst,
			"policy": opts.Policy,
			"report": report,
		}).Debug("Merged tree")
	}
	return report, nil
}

func (m *Merger) needsCopy(src, dst string, policy Policy) bool {
	dstInfo, err := m.fs.Stat(dst)
	if err != nil {
		// If the destination can't be inspected, try to copy anyways so that
		// the failure gets reported.
		return true
	}

	if policy == Protective {
		return false
	}

	same, err := m.store.Same(src, dst)
	if err != nil {
		log.WithError(err).WithField("path", src).Warn(
			"Failed to compare files. Treating the file as changed.")
		return true
	}

	if same || policy != Newest {
		return !same
	}

	srcInfo, err := m.fs.Stat(src)
	if err != nil {
		return true
	}
	return srcInfo.ModTime().After(dstInfo.ModTime())
}
