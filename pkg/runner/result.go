package runner

import (
	"sort"
	"time"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/sync"
)

// State is a step of a run. A run moves through the states in the order
// they're declared, unless it's aborted.
type State string

const (
	Idle           State = "idle"
	Importing      State = "importing"
	PreBackup      State = "pre-backup"
	ImportApplying State = "import-applying"
	VariantSharing State = "variant-sharing"
	PerCarMerging  State = "per-car-merging"
	PostBackup     State = "post-backup"
	Done           State = "done"

	// Aborted runs stopped early because of a fault that affects the whole
	// run, such as a missing setups root.
	Aborted State = "aborted"
)

// CarResult is the outcome of syncing a single car directory.
type CarResult struct {
	Name   string
	Folder string

	// Extra, Merge and Fanout are the reports of the extra folder
	// ingestion, the Source to Destination merge, and the driver fan-out.
	Extra  sync.Report
	Merge  sync.Report
	Fanout sync.Report

	// CreatedDrivers and RemovedDrivers are the driver folders that were
	// created and removed while reconciling the roster.
	CreatedDrivers []string
	RemovedDrivers []string

	// Err is set if the car couldn't be synced completely. It only affects
	// this car.
	Err error
}

// Total returns the combined report of every step.
func (c CarResult) Total() sync.Report {
	var total sync.Report
	total.Add(c.Extra)
	total.Add(c.Merge)
	total.Add(c.Fanout)
	return total
}

// Result is the outcome of a run.
type Result struct {
	RunID string
	State State

	// Cars is keyed by the name of the car directory.
	Cars map[string]CarResult

	Import       sync.Report
	Variants     sync.Report
	BackupBefore sync.Report
	BackupAfter  sync.Report

	// Drivers is the roster that was fanned out to.
	Drivers []string

	// RosterErr is set when the remote roster couldn't be fetched.
	RosterErr error

	// SkippedImports are the imported folders that couldn't be identified.
	SkippedImports []string

	StartedAt  time.Time
	FinishedAt time.Time

	// Err is the fault that aborted the run, or that happened after every
	// car was synced.
	Err error
}

// Failed returns whether the run, or any car of the run, failed.
func (r Result) Failed() bool {
	return r.Err != nil || r.carFailed()
}

func (r Result) carFailed() bool {
	for _, car := range r.Cars {
		if car.Err != nil {
			return true
		}
	}
	return false
}

// Total returns the combined report of every car and stage of the run.
func (r Result) Total() sync.Report {
	var total sync.Report
	total.Add(r.Import)
	total.Add(r.Variants)
	for _, name := range r.CarNames() {
		total.Add(r.Cars[name].Total())
	}
	return total
}

// CarNames returns the names of the synced cars in alphabetical order.
func (r Result) CarNames() []string {
	var names []string
	for name := range r.Cars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Duration returns how long the run took.
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
