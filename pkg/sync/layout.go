package sync

import (
	"path/filepath"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
)

const (
	// DataPacksDir is the folder of shared reference data that's nested in a
	// Source tree.
	DataPacksDir = config.DataPacksFolder

	// CommonSetupsDir is the shared fan-out folder under Destination.
	CommonSetupsDir = config.CommonSetupsFolder

	// DriversDir holds one fan-out folder per driver under Destination.
	DriversDir = config.DriversFolder
)

// Layout names the folders inside a car directory.
type Layout struct {
	SourceName string
	DestName   string
}

// Source returns the Source tree of the car directory at `car`.
func (l Layout) Source(car string) string {
	return filepath.Join(car, l.SourceName)
}

// Destination returns the Destination tree of the car directory at `car`.
func (l Layout) Destination(car string) string {
	return filepath.Join(car, l.DestName)
}

// DataPacks returns the Data packs folder of the car directory at `car`.
func (l Layout) DataPacks(car string) string {
	return filepath.Join(l.Source(car), DataPacksDir)
}
