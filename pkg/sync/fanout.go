package sync

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Fanout replicates the canonical content of `destination` into the shared
// Common Setups folder and into each driver's folder. The canonical content
// is everything in `destination` except the fan-out folders themselves.
//
// Common Setups mirrors the canonical content. Driver folders only receive
// files they don't have yet, so that a driver's edits are never replaced.
func (m *Merger) Fanout(destination string, drivers []string, filter Filter) (Report, error) {
	var report Report
	ignore := []string{CommonSetupsDir, DriversDir}

	commonReport, err := m.Merge(destination, filepath.Join(destination, CommonSetupsDir),
		MergeOptions{Filter: filter, Policy: Overwrite, IgnoreDirs: ignore})
	report.Add(commonReport)
	if err != nil {
		return report, err
	}

	for _, driver := range drivers {
		if !isCleanFolderName(driver) {
			log.WithField("driver", driver).Warn("Ignoring driver with an invalid folder name")
			continue
		}

		driverReport, err := m.Merge(destination, filepath.Join(destination, DriversDir, driver),
			MergeOptions{Filter: filter, Policy: Protective, IgnoreDirs: ignore})
		report.Add(driverReport)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// ReconcileDrivers makes the driver folders under `destination` match the
// `current` roster. Folders are created for new drivers, and the folders of
// drivers that were in the `previous` roster but aren't in `current` are
// removed along with their contents. Nothing outside the Drivers folder is
// ever removed, and folders that weren't created for a previous roster are
// left alone.
func (m *Merger) ReconcileDrivers(destination string, previous, current []string) (
	created, removed []string, err error) {

	driversDir := filepath.Join(destination, DriversDir)

	keep := map[string]struct{}{}
	for _, driver := range current {
		if !isCleanFolderName(driver) {
			log.WithField("driver", driver).Warn("Ignoring driver with an invalid folder name")
			continue
		}
		keep[driver] = struct{}{}

		folder := filepath.Join(driversDir, driver)
		exists, err := dirExists(m, folder)
		if err != nil {
			return created, removed, errors.WithContext(err, "check driver folder")
		}
		if exists {
			continue
		}

		if err := m.fs.MkdirAll(folder, 0755); err != nil {
			return created, removed, errors.WriteFailure{Path: folder, Err: err}
		}
		created = append(created, driver)
	}

	for _, driver := range previous {
		if _, ok := keep[driver]; ok {
			continue
		}

		if !isCleanFolderName(driver) {
			log.WithField("driver", driver).Warn(
				"Refusing to remove driver folder with an invalid name")
			continue
		}

		folder := filepath.Join(driversDir, driver)
		if filepath.Dir(folder) != driversDir {
			continue
		}

		exists, err := dirExists(m, folder)
		if err != nil {
			return created, removed, errors.WithContext(err, "check driver folder")
		}
		if !exists {
			continue
		}

		if err := m.fs.RemoveAll(folder); err != nil {
			return created, removed, errors.WriteFailure{Path: folder, Err: err}
		}
		log.WithFields(log.Fields{
			"driver": driver,
			"path":   folder,
		}).Info("Removed folder of driver that left the roster")
		removed = append(removed, driver)
	}
	return created, removed, nil
}

func dirExists(m *Merger, path string) (bool, error) {
	fi, err := m.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return fi.IsDir(), nil
}

// isCleanFolderName returns whether `name` can be used as a single folder name
// without escaping its parent.
func isCleanFolderName(name string) bool {
	return name != "" && name != "." && name != ".." &&
		strings.TrimSpace(name) == name &&
		!strings.ContainsAny(name, `<>:"/\|?*`)
}
