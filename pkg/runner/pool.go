package runner

import (
	"context"
	goSync "sync"

	log "github.com/sirupsen/logrus"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/cars"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/roster"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/sync"
)

// syncCars syncs every car on a pool of workers. Cars don't depend on each
// other once their variant group has been shared, so they can be synced in
// any order.
func (r *Runner) syncCars(ctx context.Context, discovered []cars.Car,
	failedGroups map[string]error, rost roster.Roster, res *Result) {

	numWorkers := r.cfg.Workers
	if len(discovered) < numWorkers {
		numWorkers = len(discovered)
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	var workers goSync.WaitGroup
	toSync := make(chan cars.Car, numWorkers*2)
	results := make(chan CarResult, numWorkers)
	for i := 0; i < numWorkers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for car := range toSync {
				if err := failedGroups[car.Group]; err != nil {
					results <- CarResult{Name: car.Name, Folder: car.Folder, Err: err}
					continue
				}

				// Cars that haven't started yet are skipped once the run
				// is cancelled.
				if err := ctx.Err(); err != nil {
					results <- CarResult{Name: car.Name, Folder: car.Folder, Err: err}
					continue
				}
				results <- r.syncCar(car, rost)
			}
		}()
	}

	// Feed the workers.
	go func() {
		for _, car := range discovered {
			toSync <- car
		}
		close(toSync)

		workers.Wait()
		close(results)
	}()

	for carRes := range results {
		res.Cars[carRes.Name] = carRes
	}
}

// syncCar ingests the car's extra folders, merges its Source tree into its
// Destination tree, and then fans the Destination out to the drivers. The
// steps run in order, and a step that can't write stops the car.
func (r *Runner) syncCar(car cars.Car, rost roster.Roster) (res CarResult) {
	res = CarResult{Name: car.Name, Folder: car.Folder}
	carLog := r.runLog.WithField("car", car.Name)
	defer func() {
		if res.Err != nil {
			carLog.WithError(res.Err).Error("Failed to sync car")
			return
		}

		total := res.Total()
		if total.Failed != 0 {
			carLog.WithField("failed", total.Failed).Warn("Some files couldn't be read")
		}
		carLog.WithFields(log.Fields{
			"copied":  total.Copied,
			"skipped": total.Skipped,
		}).Debug("Synced car")
	}()

	var err error
	if r.cfg.ExtraFoldersEnabled && len(r.cfg.ExtraFolderSpecs) != 0 {
		res.Extra, err = r.merger.IngestExtraFolders(car.Path, r.layout, r.cfg.ExtraFolderSpecs)
		if err != nil {
			res.Err = errors.WithContext(err, "ingest extra folders")
			return res
		}
	}

	var ignore []string
	if r.cfg.DriverFoldersEnabled {
		ignore = []string{sync.CommonSetupsDir, sync.DriversDir}
	}

	destination := r.layout.Destination(car.Path)
	res.Merge, err = r.merger.Merge(r.layout.Source(car.Path), destination, sync.MergeOptions{
		Filter:     r.filter,
		Policy:     sync.Overwrite,
		IgnoreDirs: ignore,
	})
	if err != nil {
		res.Err = errors.WithContext(err, "merge")
		return res
	}

	if !r.cfg.DriverFoldersEnabled {
		return res
	}

	// Cars without a Destination tree have nothing to fan out, so don't
	// create driver folders for them.
	if exists, err := r.isDir(destination); err != nil || !exists {
		return res
	}

	// Only remove driver folders when the roster is known to be current.
	var previous []string
	if rost.Authoritative && r.previous.DriversApplied {
		previous = r.previous.Drivers
	}
	res.CreatedDrivers, res.RemovedDrivers, err = r.merger.ReconcileDrivers(
		destination, previous, rost.Names)
	if err != nil {
		res.Err = errors.WithContext(err, "reconcile driver folders")
		return res
	}

	res.Fanout, err = r.merger.Fanout(destination, rost.Names, r.filter)
	if err != nil {
		res.Err = errors.WithContext(err, "fan out")
	}
	return res
}

func (r *Runner) isDir(path string) (bool, error) {
	info, err := r.opts.Fs.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
