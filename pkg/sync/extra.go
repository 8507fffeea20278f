package sync

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// IngestExtraFolders folds the extra folders of the car directory at `car`
// into its Source tree, so that they flow through the main merge like any
// other setups. Folders that live inside the Destination tree are moved
// rather than copied. A folder whose files couldn't all be copied is left in
// place.
//
// Every file type is copied, even when the main merge only syncs setup files,
// since the original folder may be removed afterwards.
func (m *Merger) IngestExtraFolders(car string, layout Layout, specs []config.ExtraFolder) (Report, error) {
	var report Report
	for _, spec := range specs {
		src := filepath.Join(car, spec.Name)
		if spec.Origin == config.OriginDestination {
			src = filepath.Join(layout.Destination(car), spec.Name)
		}

		exists, err := dirExists(m, src)
		if err != nil {
			return report, errors.WithContext(err, "check extra folder")
		}
		if !exists {
			continue
		}

		dst := filepath.Join(layout.Source(car), spec.Name)
		folderReport, err := m.Merge(src, dst, MergeOptions{Filter: AllFiles, Policy: Overwrite})
		report.Add(folderReport)
		if err != nil {
			return report, err
		}

		if spec.Origin != config.OriginDestination {
			continue
		}

		logger := log.WithFields(log.Fields{
			"folder": spec.Name,
			"car":    filepath.Base(car),
		})
		if folderReport.Failed > 0 {
			logger.Warn("Some files in the extra folder couldn't be copied. " +
				"Leaving it in place.")
			continue
		}

		if err := m.fs.RemoveAll(src); err != nil {
			return report, errors.WriteFailure{Path: src, Err: err}
		}
		logger.Debug("Moved extra folder into the source tree")
	}
	return report, nil
}
