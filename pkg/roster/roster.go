// Package roster decides which drivers get their own folder under
// `Destination/Drivers`.
package roster

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
)

// invalidChars can't appear in folder names on Windows, where the simulator
// runs.
const invalidChars = `<>:"/\|?*`

// CleanName returns `name` stripped of surrounding whitespace and characters
// that aren't allowed in folder names.
func CleanName(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidChars, r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

// Fetcher fetches the drivers of a team from a remote service.
type Fetcher interface {
	Fetch(ctx context.Context, teamID, apiKey string) ([]string, error)
}

// Roster is the list of drivers for a run.
type Roster struct {
	Names []string

	// Authoritative is false when the remote roster couldn't be fetched, and
	// Names is the roster applied by the previous run. Driver folders must not
	// be removed based on a roster that isn't authoritative.
	Authoritative bool

	// Err is the RosterFetchFailure that caused the fallback, if any.
	Err error
}

// Resolve returns the driver roster for the run. When the remote roster is
// enabled, the manual list is ignored, and a failure to fetch falls back to
// the roster recorded in `previous`.
func Resolve(ctx context.Context, cfg config.Run, previous config.State,
	fetcher Fetcher) Roster {

	if !cfg.DriverFoldersEnabled {
		return Roster{Authoritative: true}
	}

	if !cfg.RemoteRosterEnabled || fetcher == nil {
		return Roster{Names: clean(cfg.DriverNames), Authoritative: true}
	}

	names, err := fetcher.Fetch(ctx, cfg.TeamID, cfg.APIKey)
	if err != nil {
		log.WithError(err).WithField("drivers", previous.Drivers).Warn(
			"Failed to fetch the driver roster. Reusing the previous roster, " +
				"and leaving the driver folders as they are.")
		return Roster{Names: clean(previous.Drivers), Err: err}
	}

	log.WithField("count", len(names)).Info("Fetched driver roster")
	return Roster{Names: clean(names), Authoritative: true}
}

// clean cleans every name, and drops duplicates and names that can't be
// folder names while preserving the order.
func clean(names []string) []string {
	var cleaned []string
	seen := map[string]struct{}{}
	for _, name := range names {
		name = CleanName(name)
		if strings.Trim(name, ".") == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		cleaned = append(cleaned, name)
	}
	return cleaned
}
