// Package runner sequences a complete sync of the setups root: importing new
// setups, taking backups, sharing setups between car variants, and syncing
// every car directory.
package runner

import (
	"context"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/cars"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/fingerprint"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/importer"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/roster"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/sync"
)

// Options contains the collaborators of a run.
type Options struct {
	Fs    afero.Fs
	Clock clockwork.Clock

	// Resolver is asked about unrecognized car folders. Nil means that
	// unrecognized folders are used as is.
	Resolver cars.Resolver

	// Fetcher fetches the remote driver roster.
	Fetcher roster.Fetcher

	// MappingPath, StatePath and FingerprintPath are where the persisted
	// state is read from, and written back to at the end of the run. An
	// empty path disables the corresponding persistence.
	MappingPath     string
	StatePath       string
	FingerprintPath string
}

// Runner runs a sync with a fixed configuration.
type Runner struct {
	cfg    config.Run
	opts   Options
	layout sync.Layout
	filter sync.Filter

	// Set while running.
	runLog   *log.Entry
	store    *fingerprint.Store
	merger   *sync.Merger
	cache    *cars.MappingCache
	previous config.State
}

// New returns a Runner for `cfg`. The configuration must already be
// validated.
func New(cfg config.Run, opts Options) *Runner {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Runner{
		cfg:  cfg,
		opts: opts,
		layout: sync.Layout{
			SourceName: cfg.SyncSourceName,
			DestName:   cfg.SyncDestName,
		},
		filter: sync.FilterFor(cfg.CopyAllFileTypes),
	}
}

// Run syncs the setups root. Faults that affect the whole run are returned
// in Result.Err with the state set to Aborted. Faults that only affect a
// single car are reported in that car's result. `ctx` is checked between
// cars, so a cancelled run finishes the cars that are already in progress.
func (r *Runner) Run(ctx context.Context) (res Result) {
	res = Result{
		RunID:     uuid.New().String(),
		State:     Idle,
		Cars:      map[string]CarResult{},
		StartedAt: r.opts.Clock.Now(),
	}
	r.runLog = log.WithField("runID", res.RunID)

	mutated := false
	defer func() {
		res.FinishedAt = r.opts.Clock.Now()
		r.persist(&res, mutated)
		r.runLog.WithFields(log.Fields{
			"state":    res.State,
			"duration": res.Duration(),
		}).Debug("Finished run")
	}()

	abort := func(err error) Result {
		r.runLog.WithError(err).WithField("state", res.State).Error("Aborting run")
		res.Err = err
		res.State = Aborted
		return res
	}

	r.transition(&res, Importing)
	staged, plan, rost, err := r.prepare(ctx)
	if err != nil {
		return abort(err)
	}
	defer func() {
		if err := staged.Cleanup(r.opts.Fs); err != nil {
			r.runLog.WithError(err).Warn("Failed to remove the extracted import")
		}
	}()
	res.SkippedImports = plan.Skipped
	res.Drivers = rost.Names
	res.RosterErr = rost.Err

	r.transition(&res, PreBackup)
	if r.cfg.BackupEnabled && r.cfg.BackupBeforePath != "" {
		res.BackupBefore, err = sync.Snapshot(r.opts.Fs, r.cfg.RootPath, r.cfg.BackupBeforePath)
		if err != nil {
			return abort(errors.WithContext(err, "backup before sync"))
		}
		r.runLog.WithField("path", r.cfg.BackupBeforePath).Info("Backed up setups")
	}

	mutated = true
	r.transition(&res, ImportApplying)
	res.Import, err = importer.Apply(r.merger, plan, r.cfg.RootPath, importer.Targets(r.cfg), r.filter)
	if err != nil {
		return abort(err)
	}

	r.transition(&res, VariantSharing)
	discovered, err := cars.Discover(r.opts.Fs, r.cfg.RootPath, cars.DiscoverOptions{
		Excluded: r.cfg.ExcludedCars,
		Skip:     []string{r.cfg.BackupBeforePath, r.cfg.BackupAfterPath},
		Cache:    r.cache,
		Resolver: r.opts.Resolver,
	})
	if err != nil {
		return abort(err)
	}
	failedGroups := r.shareVariants(discovered, &res)

	r.transition(&res, PerCarMerging)
	r.syncCars(ctx, discovered, failedGroups, rost, &res)
	if err := ctx.Err(); err != nil {
		return abort(errors.WithContext(err, "sync cars"))
	}

	r.transition(&res, PostBackup)
	if r.cfg.BackupEnabled && r.cfg.BackupAfterPath != "" {
		res.BackupAfter, err = sync.Snapshot(r.opts.Fs, r.cfg.RootPath, r.cfg.BackupAfterPath)
		if err != nil {
			res.Err = errors.WithContext(err, "backup after sync")
			r.runLog.WithError(res.Err).Error("Failed to back up setups")
		} else {
			r.runLog.WithField("path", r.cfg.BackupAfterPath).Info("Backed up setups")
		}
	}

	r.transition(&res, Done)
	return res
}

func (r *Runner) transition(res *Result, state State) {
	r.runLog.WithField("state", state).Debug("Entering state")
	res.State = state
}

// prepare checks the required paths, loads the persisted state, and stages
// the import. It doesn't modify the setups root.
func (r *Runner) prepare(ctx context.Context) (importer.Staged, importer.Plan,
	roster.Roster, error) {

	if err := r.requireRoot(); err != nil {
		return importer.Staged{}, importer.Plan{}, roster.Roster{}, err
	}

	if err := r.load(); err != nil {
		return importer.Staged{}, importer.Plan{}, roster.Roster{}, err
	}

	var importPath string
	switch r.cfg.ImportMode {
	case config.ImportZip:
		importPath = r.cfg.ArchivePath
	case config.ImportFolder:
		importPath = r.cfg.ImportFolderPath
	}

	staged, err := importer.Stage(r.opts.Fs, r.cfg.ImportMode, importPath)
	if err != nil {
		return importer.Staged{}, importer.Plan{}, roster.Roster{},
			errors.WithContext(err, "stage import")
	}

	id := importer.Identifier{Cache: r.cache, Resolver: r.opts.Resolver}
	plan, err := id.Identify(r.opts.Fs, staged)
	if err != nil {
		staged.Cleanup(r.opts.Fs)
		return importer.Staged{}, importer.Plan{}, roster.Roster{},
			errors.WithContext(err, "identify import")
	}

	return staged, plan, roster.Resolve(ctx, r.cfg, r.previous, r.opts.Fetcher), nil
}

func (r *Runner) requireRoot() error {
	info, err := r.opts.Fs.Stat(r.cfg.RootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.PathNotFound{Path: r.cfg.RootPath, What: "setups root"}
		}
		return errors.ReadFailure{Path: r.cfg.RootPath, Err: err}
	}

	if !info.IsDir() {
		return errors.InvalidFieldError{
			Field:  "rootPath",
			Value:  r.cfg.RootPath,
			Reason: "must be a directory",
		}
	}
	return nil
}

// load reads the state persisted by previous runs.
func (r *Runner) load() error {
	algo, err := fingerprint.ParseAlgorithm(r.cfg.HashAlgorithm)
	if err != nil {
		return err
	}
	r.store = fingerprint.NewStore(r.opts.Fs, algo, fingerprint.Options{
		TrustModTime: r.cfg.TrustModTime,
	})
	r.merger = sync.NewMerger(r.opts.Fs, r.store)

	if r.opts.FingerprintPath != "" {
		// The cache only makes runs faster, so a broken cache isn't fatal.
		if err := r.store.Load(r.opts.FingerprintPath); err != nil {
			r.runLog.WithError(err).Warn("Ignoring the fingerprint cache")
		}
	}

	r.cache = cars.NewMappingCache(nil)
	if r.opts.MappingPath != "" {
		r.cache, err = cars.LoadMappingCache(r.opts.MappingPath)
		if err != nil {
			return errors.WithContext(err, "load car mappings")
		}
	}

	if r.opts.StatePath != "" {
		r.previous, err = config.ReadState(r.opts.StatePath)
		if err != nil {
			return errors.WithContext(err, "load state")
		}
	}
	return nil
}

// shareVariants shares the Source trees within each variant group. It
// returns the groups that couldn't be shared, along with the error.
func (r *Runner) shareVariants(discovered []cars.Car, res *Result) map[string]error {
	groups := cars.GroupMembers(discovered)

	var names []string
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := map[string]error{}
	for _, name := range names {
		report, err := r.merger.ShareAmongVariants(groups[name], r.layout, r.filter)
		res.Variants.Add(report)
		if err != nil {
			r.runLog.WithError(err).WithField("group", name).Error(
				"Failed to share setups between variants")
			failed[name] = errors.WithContext(err, "share "+name)
		}
	}
	return failed
}

// persist writes back the state that the next run depends on.
func (r *Runner) persist(res *Result, mutated bool) {
	if r.cache != nil && r.opts.MappingPath != "" {
		if err := r.cache.Save(r.opts.MappingPath); err != nil {
			r.runLog.WithError(err).Warn("Failed to save car mappings")
		}
	}

	if !mutated {
		return
	}

	if r.opts.FingerprintPath != "" {
		if err := r.store.Save(r.opts.FingerprintPath); err != nil {
			r.runLog.WithError(err).Warn("Failed to save the fingerprint cache")
		}
	}

	if r.opts.StatePath == "" {
		return
	}

	state := r.previous
	state.LastRunID = res.RunID
	state.LastRun = res.FinishedAt
	// A car that failed may still have the folders of drivers that left the
	// roster, so keep the previous roster on record until every car caught up.
	if r.cfg.DriverFoldersEnabled && res.RosterErr == nil && res.State != Aborted &&
		!res.carFailed() {
		state.Drivers = res.Drivers
		state.DriversApplied = true
	}
	if err := config.WriteState(r.opts.StatePath, state); err != nil {
		r.runLog.WithError(err).Warn("Failed to save the run state")
	}
}
