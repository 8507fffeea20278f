package sync

import (
	log "github.com/sirupsen/logrus"
)

// ShareAmongVariants cross merges the Source trees of the car directories in
// `members`, so that afterwards every member's Source contains every file
// that any member had, in its most recently modified version. The Data packs
// folders are merged separately, after the rest of the Source trees.
//
// Each ordered pair is merged once with the newest policy. Copies keep their
// modification time, so the newest version of a file reaches every member in
// a single round.
func (m *Merger) ShareAmongVariants(members []string, layout Layout, filter Filter) (Report, error) {
	var report Report

	sourceOpts := MergeOptions{
		Filter:     filter,
		Policy:     Newest,
		IgnoreDirs: []string{DataPacksDir},
	}
	for _, src := range members {
		for _, dst := range members {
			if src == dst {
				continue
			}

			pairReport, err := m.Merge(layout.Source(src), layout.Source(dst), sourceOpts)
			report.Add(pairReport)
			if err != nil {
				return report, err
			}
		}
	}

	dataPackOpts := MergeOptions{Filter: filter, Policy: Newest}
	for _, src := range members {
		for _, dst := range members {
			if src == dst {
				continue
			}

			pairReport, err := m.Merge(layout.DataPacks(src), layout.DataPacks(dst), dataPackOpts)
			report.Add(pairReport)
			if err != nil {
				return report, err
			}
		}
	}

	if report.Copied > 0 {
		log.WithFields(log.Fields{
			"members": members,
			"copied":  report.Copied,
		}).Info("Shared setups among variants")
	}
	return report, nil
}
