package config

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/fingerprint"
)

const (
	// DefaultRunConfigPath is the default path to the setups-sync config.
	DefaultRunConfigPath = "~/.setups-sync.yaml"

	// InitialRunConfigVersion is the first version of the config. Config
	// files that do not specify a version will default to this version.
	InitialRunConfigVersion = "v1"

	// SupportedRunConfigVersion is the config version supported by this
	// binary.
	SupportedRunConfigVersion = "v1"
)

// ImportMode selects where new setups are imported from before syncing.
type ImportMode string

const (
	ImportNone   ImportMode = "none"
	ImportZip    ImportMode = "zip"
	ImportFolder ImportMode = "folder"
)

// Origin is where an extra folder lives inside a car directory.
type Origin string

const (
	// OriginCar folders are direct children of the car directory. They're
	// copied into the Source tree and left in place.
	OriginCar Origin = "car"

	// OriginDestination folders live inside the Destination tree. They're
	// moved into the Source tree so that the Destination is left clean.
	OriginDestination Origin = "destination"
)

// Folders inside a car directory that are managed by the sync.
const (
	DataPacksFolder    = "Data packs"
	CommonSetupsFolder = "Common Setups"
	DriversFolder      = "Drivers"
)

// ExtraFolder is a folder written by another tool that should be folded into
// the Source tree before syncing.
type ExtraFolder struct {
	Name   string `json:"name"`
	Origin Origin `json:"origin"`
}

// UnmarshalJSON accepts the formats written by older releases: a bare folder
// name, or an object that uses `folder` and `location` instead of `name` and
// `origin`.
func (ef *ExtraFolder) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err == nil {
		*ef = ExtraFolder{Name: name, Origin: OriginCar}
		return nil
	}

	var fields map[string]string
	if err := json.Unmarshal(b, &fields); err != nil {
		return errors.WithContext(err, "extra folder must be a string or an object")
	}

	var parsed ExtraFolder
	for key, value := range fields {
		switch key {
		case "name", "folder":
			parsed.Name = value
		case "origin", "location":
			parsed.Origin = Origin(value)
		default:
			return errors.NewFriendlyError("Unknown extra folder field %q", key)
		}
	}

	switch strings.ToLower(string(parsed.Origin)) {
	case "", "car":
		parsed.Origin = OriginCar
	case "dest", "destination":
		parsed.Origin = OriginDestination
	default:
		return errors.InvalidFieldError{
			Field:  "extraFolderSpecs.origin",
			Value:  string(parsed.Origin),
			Reason: "must be car or destination",
		}
	}

	*ef = parsed
	return nil
}

// Profile is a named set of import settings. The profile selected by
// CurrentProfile is overlaid on the top level settings when the config is
// parsed.
type Profile struct {
	Name               string     `json:"name,omitempty"`
	ImportMode         ImportMode `json:"importMode,omitempty"`
	ArchivePath        string     `json:"archivePath,omitempty"`
	ImportFolderPath   string     `json:"importFolderPath,omitempty"`
	TeamFolderName     string     `json:"teamFolderName,omitempty"`
	PersonalFolderName string     `json:"personalFolderName,omitempty"`
	SupplierFolderName string     `json:"supplierFolderName,omitempty"`
	SeasonFolderName   string     `json:"seasonFolderName,omitempty"`
}

// Run contains everything a sync run needs. It's parsed once at the start of
// the run and passed around by value.
type Run struct {
	Version  string `json:"version,omitempty"`
	RootPath string `json:"rootPath"`

	ImportMode       ImportMode `json:"importMode,omitempty"`
	ArchivePath      string     `json:"archivePath,omitempty"`
	ImportFolderPath string     `json:"importFolderPath,omitempty"`

	TeamFolderName     string `json:"teamFolderName,omitempty"`
	PersonalFolderName string `json:"personalFolderName,omitempty"`
	SupplierFolderName string `json:"supplierFolderName,omitempty"`
	SeasonFolderName   string `json:"seasonFolderName,omitempty"`
	SyncSourceName     string `json:"syncSourceName,omitempty"`
	SyncDestName       string `json:"syncDestName,omitempty"`

	DriverFoldersEnabled bool     `json:"driverFoldersEnabled,omitempty"`
	DriverNames          []string `json:"driverNames,omitempty"`
	RemoteRosterEnabled  bool     `json:"remoteRosterEnabled,omitempty"`
	TeamID               string   `json:"teamId,omitempty"`
	APIKey               string   `json:"apiKey,omitempty"`

	ExtraFoldersEnabled bool          `json:"extraFoldersEnabled,omitempty"`
	ExtraFolderSpecs    []ExtraFolder `json:"extraFolderSpecs,omitempty"`

	HashAlgorithm    string `json:"hashAlgorithm,omitempty"`
	TrustModTime     bool   `json:"trustModTime,omitempty"`
	CopyAllFileTypes bool   `json:"copyAllFileTypes,omitempty"`

	BackupEnabled    bool   `json:"backupEnabled,omitempty"`
	BackupBeforePath string `json:"backupBeforePath,omitempty"`
	BackupAfterPath  string `json:"backupAfterPath,omitempty"`

	LoggingEnabled bool   `json:"loggingEnabled,omitempty"`
	LogPath        string `json:"logPath,omitempty"`

	ExcludedCars []string `json:"excludedCars,omitempty"`
	Workers      int      `json:"workers,omitempty"`

	Profiles       []Profile `json:"profiles,omitempty"`
	CurrentProfile int       `json:"currentProfile,omitempty"`

	// Only populated and consumed by setups-sync. Never set by user.
	path string
}

// GetPath returns the filepath that the config was parsed from.
func (r Run) GetPath() string {
	return r.path
}

func (r Run) getVersion() string {
	return r.Version
}

// DefaultRun returns a config with every default filled in.
func DefaultRun() Run {
	return Run{
		Version:            InitialRunConfigVersion,
		ImportMode:         ImportNone,
		TeamFolderName:     "Example Team",
		PersonalFolderName: "My Personal Folder",
		SupplierFolderName: "Example Supplier",
		SeasonFolderName:   "Example Season",
		SyncSourceName:     "Example Source",
		SyncDestName:       "Example Destination",
		HashAlgorithm:      string(fingerprint.DefaultAlgorithm),
		LogPath:            "setups-sync.log",
		Workers:            4,
	}
}

// GetRunConfigPath returns the expanded path to the config file. An empty
// override selects DefaultRunConfigPath.
func GetRunConfigPath(override string) (string, error) {
	if override == "" {
		override = DefaultRunConfigPath
	}
	return homedirExpand(override)
}

// ParseRun parses the config at `path`. Missing fields get their defaults,
// the selected profile is applied, and paths are expanded. The result still
// needs to be validated.
func ParseRun(path string) (Run, error) {
	config := DefaultRun()
	config.path = path
	if err := parseConfig(path, &config, SupportedRunConfigVersion); err != nil {
		if _, ok := err.(errors.PathNotFound); ok {
			return Run{}, errors.NewFriendlyError("The setups-sync config "+
				"file doesn't exist at %q. Please run `setups-sync config` "+
				"to create it.", path)
		}
		return Run{}, errors.WithContext(err, "parse")
	}

	config.applyProfile()

	for _, field := range []*string{
		&config.RootPath,
		&config.ArchivePath,
		&config.ImportFolderPath,
		&config.BackupBeforePath,
		&config.BackupAfterPath,
		&config.LogPath,
	} {
		expanded, err := expandPath(path, *field)
		if err != nil {
			return Run{}, errors.WithContext(err, "expand path")
		}
		*field = expanded
	}
	return config, nil
}

// applyProfile overlays the selected profile. Out of range selections fall
// back to the first profile.
func (r *Run) applyProfile() {
	if len(r.Profiles) == 0 {
		return
	}

	if r.CurrentProfile < 1 || r.CurrentProfile > len(r.Profiles) {
		r.CurrentProfile = 1
	}
	p := r.Profiles[r.CurrentProfile-1]

	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}
	if p.ImportMode != "" {
		r.ImportMode = p.ImportMode
	}
	overlay(&r.ArchivePath, p.ArchivePath)
	overlay(&r.ImportFolderPath, p.ImportFolderPath)
	overlay(&r.TeamFolderName, p.TeamFolderName)
	overlay(&r.PersonalFolderName, p.PersonalFolderName)
	overlay(&r.SupplierFolderName, p.SupplierFolderName)
	overlay(&r.SeasonFolderName, p.SeasonFolderName)
}

// expandPath expands ~'s and evaluates relative paths relative to the config
// file.
func expandPath(configPath, path string) (string, error) {
	if path == "" {
		return "", nil
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return "", err
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	return filepath.Clean(path), nil
}

// Validate checks that the config describes a run that can be executed. It
// doesn't check whether any paths exist, since that's decided when the run
// starts.
func (r Run) Validate() error {
	if r.RootPath == "" {
		return errors.MissingFieldError{Field: "rootPath"}
	}

	if strings.TrimSpace(r.SyncSourceName) == "" {
		return errors.MissingFieldError{Field: "syncSourceName"}
	}

	if strings.TrimSpace(r.SyncDestName) == "" {
		return errors.MissingFieldError{Field: "syncDestName"}
	}

	if r.SyncSourceName == r.SyncDestName {
		return errors.InvalidFieldError{
			Field:  "syncDestName",
			Value:  r.SyncDestName,
			Reason: "must differ from syncSourceName",
		}
	}

	if _, err := fingerprint.ParseAlgorithm(r.HashAlgorithm); err != nil {
		return err
	}

	switch r.ImportMode {
	case ImportNone:
	case ImportZip:
		if r.ArchivePath == "" {
			return errors.MissingFieldError{Field: "archivePath"}
		}
	case ImportFolder:
		if r.ImportFolderPath == "" {
			return errors.MissingFieldError{Field: "importFolderPath"}
		}
	default:
		return errors.InvalidFieldError{
			Field:  "importMode",
			Value:  string(r.ImportMode),
			Reason: "must be zip, folder or none",
		}
	}

	if r.DriverFoldersEnabled && r.RemoteRosterEnabled && r.TeamID == "" {
		return errors.MissingFieldError{Field: "teamId"}
	}

	for _, name := range r.DriverNames {
		if strings.TrimSpace(name) == "" {
			return errors.InvalidFieldError{
				Field:  "driverNames",
				Value:  name,
				Reason: "driver names can't be empty",
			}
		}
	}

	if r.ExtraFoldersEnabled {
		for _, spec := range r.ExtraFolderSpecs {
			if !isSingleSegment(spec.Name) {
				return errors.InvalidFieldError{
					Field:  "extraFolderSpecs.name",
					Value:  spec.Name,
					Reason: "must be a single folder name",
				}
			}
			if r.isReservedFolder(spec.Name) {
				return errors.InvalidFieldError{
					Field:  "extraFolderSpecs.name",
					Value:  spec.Name,
					Reason: "is a folder that's managed by the sync",
				}
			}
		}
	}

	if r.BackupEnabled && r.BackupBeforePath == "" && r.BackupAfterPath == "" {
		return errors.MissingFieldError{Field: "backupBeforePath"}
	}

	if r.Workers < 1 {
		return errors.InvalidFieldError{
			Field:  "workers",
			Value:  strconv.Itoa(r.Workers),
			Reason: "must be at least 1",
		}
	}
	return nil
}

// isReservedFolder returns whether `name` is one of the folders that the sync
// itself manages inside a car directory.
func (r Run) isReservedFolder(name string) bool {
	reserved := []string{r.SyncSourceName, r.SyncDestName,
		DataPacksFolder, CommonSetupsFolder, DriversFolder}
	for _, folder := range reserved {
		if strings.EqualFold(strings.TrimSpace(name), strings.TrimSpace(folder)) {
			return true
		}
	}
	return false
}

func isSingleSegment(name string) bool {
	return name != "" && name != "." && name != ".." &&
		!strings.ContainsAny(name, `/\`)
}

// WriteRun writes the given config to `path`.
func WriteRun(path string, cfg Run) error {
	cfg.Version = SupportedRunConfigVersion
	return writeConfig(path, cfg)
}
