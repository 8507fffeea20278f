package importer

import (
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/cars"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/sync"
)

// Entry is a folder of the import tree, and the car directory it's imported
// into.
type Entry struct {
	// Name is the name of the imported folder, e.g. "VRS - Porsche GT3".
	Name string
	Path string

	// Car is the name of the car directory in the setups root.
	Car string
}

// Plan lists the folders that will be imported.
type Plan struct {
	Entries []Entry

	// Skipped are the folders that couldn't be identified.
	Skipped []string
}

// Identifier matches imported folders to car directories.
type Identifier struct {
	Cache    *cars.MappingCache
	Resolver cars.Resolver
}

// Identify builds the plan for importing `staged`. Every top level folder is
// looked up in the mapping cache, then in the car table, and finally handed
// to the resolver. Folders that remain unidentified are skipped.
func (id Identifier) Identify(fs afero.Fs, staged Staged) (Plan, error) {
	if staged.Empty() {
		return Plan{}, nil
	}

	entries, err := afero.ReadDir(fs, staged.Dir)
	if err != nil {
		return Plan{}, errors.ReadFailure{Path: staged.Dir, Err: err}
	}

	var plan Plan
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		car, ok := id.identify(name)
		if !ok {
			log.WithField("folder", name).Warn("Couldn't identify the car of an imported folder. Skipping it.")
			plan.Skipped = append(plan.Skipped, name)
			continue
		}

		plan.Entries = append(plan.Entries, Entry{
			Name: name,
			Path: filepath.Join(staged.Dir, name),
			Car:  car,
		})
	}

	sort.Slice(plan.Entries, func(i, j int) bool {
		return plan.Entries[i].Name < plan.Entries[j].Name
	})
	return plan, nil
}

func (id Identifier) identify(name string) (string, bool) {
	if id.Cache != nil {
		if car, ok := id.Cache.Get(name); ok {
			return car, true
		}
	}

	if car, ok := cars.Identify(name); ok {
		return car, true
	}

	if id.Resolver == nil {
		return "", false
	}

	log.WithError(errors.UnknownCarDirectory{Name: name}).Debug("Resolving imported folder")
	car, ok := id.Resolver.Resolve(name)
	if !ok || car == "" {
		return "", false
	}

	if id.Cache != nil && id.Resolver.Remember() {
		id.Cache.Set(name, car)
	}
	return car, true
}

// Targets returns the folders inside a car directory that imported setups
// are copied into: the personal and the team folder, each organized by
// supplier and season.
func Targets(cfg config.Run) []string {
	personal := filepath.Join(cfg.PersonalFolderName, cfg.SupplierFolderName, cfg.SeasonFolderName)
	team := filepath.Join(cfg.TeamFolderName, cfg.SupplierFolderName, cfg.SeasonFolderName)
	if personal == team {
		return []string{personal}
	}
	return []string{personal, team}
}

// Apply copies every entry of the plan into its car directory under `root`.
// Existing files with different contents are overwritten.
func Apply(merger *sync.Merger, plan Plan, root string, targets []string,
	filter sync.Filter) (sync.Report, error) {

	var report sync.Report
	for _, entry := range plan.Entries {
		for _, target := range targets {
			dst := filepath.Join(root, entry.Car, target)
			merged, err := merger.Merge(entry.Path, dst, sync.MergeOptions{
				Filter: filter,
				Policy: sync.Overwrite,
			})
			report.Add(merged)
			if err != nil {
				return report, errors.WithContext(err, "import "+entry.Name)
			}
		}

		log.WithFields(log.Fields{
			"folder": entry.Name,
			"car":    entry.Car,
		}).Info("Imported setups")
	}
	return report, nil
}
