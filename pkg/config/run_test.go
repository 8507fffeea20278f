package config

import (
	"fmt"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

func TestParseRun(t *testing.T) {
	path := "/home/user/.setups-sync.yaml"

	withDefaults := func(modify func(*Run)) Run {
		run := DefaultRun()
		run.path = path
		run.LogPath = "/home/user/setups-sync.log"
		modify(&run)
		return run
	}

	tests := []struct {
		name      string
		input     string
		expConfig Run
		expError  error
	}{
		{
			name:  "MissingVersionDefaults",
			input: "rootPath: /setups\n",
			expConfig: withDefaults(func(r *Run) {
				r.RootPath = "/setups"
			}),
		},
		{
			name: "RelativePaths",
			input: `
version: v1
rootPath: setups
backupBeforePath: backups/before
logPath: /var/log/sync.log
`,
			expConfig: withDefaults(func(r *Run) {
				r.RootPath = "/home/user/setups"
				r.BackupBeforePath = "/home/user/backups/before"
				r.LogPath = "/var/log/sync.log"
			}),
		},
		{
			name: "LegacyExtraFolders",
			input: `
rootPath: /setups
extraFoldersEnabled: true
extraFolderSpecs:
- Garage 61
- folder: PitBox
  location: dest
- name: Coach
  origin: destination
`,
			expConfig: withDefaults(func(r *Run) {
				r.RootPath = "/setups"
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{
					{Name: "Garage 61", Origin: OriginCar},
					{Name: "PitBox", Origin: OriginDestination},
					{Name: "Coach", Origin: OriginDestination},
				}
			}),
		},
		{
			name: "ProfileOverlay",
			input: `
rootPath: /setups
teamFolderName: Top Team
profiles:
- name: default
  importMode: none
- name: vrs
  importMode: zip
  archivePath: /downloads/vrs.zip
  supplierFolderName: VRS
currentProfile: 2
`,
			expConfig: withDefaults(func(r *Run) {
				r.RootPath = "/setups"
				r.TeamFolderName = "Top Team"
				r.ImportMode = ImportZip
				r.ArchivePath = "/downloads/vrs.zip"
				r.SupplierFolderName = "VRS"
				r.CurrentProfile = 2
				r.Profiles = []Profile{
					{Name: "default", ImportMode: ImportNone},
					{
						Name:               "vrs",
						ImportMode:         ImportZip,
						ArchivePath:        "/downloads/vrs.zip",
						SupplierFolderName: "VRS",
					},
				}
			}),
		},
		{
			name: "OutOfRangeProfile",
			input: `
rootPath: /setups
profiles:
- name: only
  seasonFolderName: 2025 S1
currentProfile: 7
`,
			expConfig: withDefaults(func(r *Run) {
				r.RootPath = "/setups"
				r.SeasonFolderName = "2025 S1"
				r.CurrentProfile = 1
				r.Profiles = []Profile{{Name: "only", SeasonFolderName: "2025 S1"}}
			}),
		},
		{
			name:  "IncorrectVersion",
			input: "version: v0\nrootPath: /setups\n",
			expError: errors.WithContext(incompatibleVersionError{
				path:   path,
				exp:    SupportedRunConfigVersion,
				actual: "v0",
			}, "parse"),
		},
		{
			name:  "ExtraFields",
			input: fmt.Sprintf("version: %s\nextra: fields", SupportedRunConfigVersion),
			expError: errors.WithContext(
				errors.NewFriendlyError(parseConfigErrTemplate, path,
					errors.New("error unmarshaling JSON: while decoding JSON: "+
						`json: unknown field "extra"`)),
				"parse"),
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs = afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, path, []byte(test.input), 0644))

			config, err := ParseRun(path)
			assert.Equal(t, test.expError, err)
			if test.expError == nil {
				assert.Equal(t, test.expConfig, config)
			}
		})
	}
}

func TestParseRunMissing(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, err := ParseRun("/home/user/.setups-sync.yaml")
	_, isFriendly := errors.GetFriendlyError(err)
	assert.True(t, isFriendly)
}

func TestParseWrittenRun(t *testing.T) {
	fs = afero.NewMemMapFs()
	path := "/home/user/.setups-sync.yaml"

	run := DefaultRun()
	run.RootPath = "/setups"
	run.DriverFoldersEnabled = true
	run.DriverNames = []string{"Alice", "Bob"}
	run.ExtraFolderSpecs = []ExtraFolder{{Name: "PitBox", Origin: OriginDestination}}
	run.LogPath = "/home/user/setups-sync.log"

	// Write the config to disk, and assert that we get the same config when
	// we parse it.
	require.NoError(t, WriteRun(path, run))

	parsed, err := ParseRun(path)
	assert.NoError(t, err)

	run.path = path
	assert.Equal(t, run, parsed)
}

func TestGetRunConfigPath(t *testing.T) {
	homedirExpand = func(path string) (string, error) {
		return "/home/user/" + path[2:], nil
	}

	path, err := GetRunConfigPath("")
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/.setups-sync.yaml", path)

	path, err = GetRunConfigPath("~/other.yaml")
	assert.NoError(t, err)
	assert.Equal(t, "/home/user/other.yaml", path)
}

func TestValidate(t *testing.T) {
	valid := func(modify func(*Run)) Run {
		run := DefaultRun()
		run.RootPath = "/setups"
		modify(&run)
		return run
	}

	tests := []struct {
		name   string
		config Run
		expErr error
	}{
		{
			name:   "Defaults",
			config: valid(func(r *Run) {}),
		},
		{
			name:   "MissingRoot",
			config: valid(func(r *Run) { r.RootPath = "" }),
			expErr: errors.MissingFieldError{Field: "rootPath"},
		},
		{
			name:   "MissingSource",
			config: valid(func(r *Run) { r.SyncSourceName = " " }),
			expErr: errors.MissingFieldError{Field: "syncSourceName"},
		},
		{
			name: "SameSourceAndDestination",
			config: valid(func(r *Run) {
				r.SyncDestName = r.SyncSourceName
			}),
			expErr: errors.InvalidFieldError{
				Field:  "syncDestName",
				Value:  "Example Source",
				Reason: "must differ from syncSourceName",
			},
		},
		{
			name:   "UnknownAlgorithm",
			config: valid(func(r *Run) { r.HashAlgorithm = "rot13" }),
			expErr: errors.InvalidFieldError{
				Field:  "hashAlgorithm",
				Value:  "rot13",
				Reason: "must be one of crc32, md5, sha1, sha256, sha512, xxhash",
			},
		},
		{
			name:   "ZipWithoutArchive",
			config: valid(func(r *Run) { r.ImportMode = ImportZip }),
			expErr: errors.MissingFieldError{Field: "archivePath"},
		},
		{
			name:   "FolderWithoutPath",
			config: valid(func(r *Run) { r.ImportMode = ImportFolder }),
			expErr: errors.MissingFieldError{Field: "importFolderPath"},
		},
		{
			name:   "UnknownImportMode",
			config: valid(func(r *Run) { r.ImportMode = "ftp" }),
			expErr: errors.InvalidFieldError{
				Field:  "importMode",
				Value:  "ftp",
				Reason: "must be zip, folder or none",
			},
		},
		{
			name: "RemoteRosterWithoutTeam",
			config: valid(func(r *Run) {
				r.DriverFoldersEnabled = true
				r.RemoteRosterEnabled = true
			}),
			expErr: errors.MissingFieldError{Field: "teamId"},
		},
		{
			name: "EmptyDriverName",
			config: valid(func(r *Run) {
				r.DriverNames = []string{"Alice", "  "}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "driverNames",
				Value:  "  ",
				Reason: "driver names can't be empty",
			},
		},
		{
			name: "NestedExtraFolder",
			config: valid(func(r *Run) {
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{{Name: "a/b", Origin: OriginCar}}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "extraFolderSpecs.name",
				Value:  "a/b",
				Reason: "must be a single folder name",
			},
		},
		{
			name: "DriversExtraFolder",
			config: valid(func(r *Run) {
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{{Name: "drivers", Origin: OriginDestination}}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "extraFolderSpecs.name",
				Value:  "drivers",
				Reason: "is a folder that's managed by the sync",
			},
		},
		{
			name: "CommonSetupsExtraFolder",
			config: valid(func(r *Run) {
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{{Name: "Common Setups", Origin: OriginDestination}}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "extraFolderSpecs.name",
				Value:  "Common Setups",
				Reason: "is a folder that's managed by the sync",
			},
		},
		{
			name: "SourceExtraFolder",
			config: valid(func(r *Run) {
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{{Name: r.SyncSourceName, Origin: OriginCar}}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "extraFolderSpecs.name",
				Value:  "Example Source",
				Reason: "is a folder that's managed by the sync",
			},
		},
		{
			name: "DestinationExtraFolder",
			config: valid(func(r *Run) {
				r.ExtraFoldersEnabled = true
				r.ExtraFolderSpecs = []ExtraFolder{{Name: r.SyncDestName, Origin: OriginCar}}
			}),
			expErr: errors.InvalidFieldError{
				Field:  "extraFolderSpecs.name",
				Value:  "Example Destination",
				Reason: "is a folder that's managed by the sync",
			},
		},
		{
			name:   "BackupWithoutPaths",
			config: valid(func(r *Run) { r.BackupEnabled = true }),
			expErr: errors.MissingFieldError{Field: "backupBeforePath"},
		},
		{
			name:   "NoWorkers",
			config: valid(func(r *Run) { r.Workers = 0 }),
			expErr: errors.InvalidFieldError{
				Field:  "workers",
				Value:  "0",
				Reason: "must be at least 1",
			},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expErr, test.config.Validate())
		})
	}
}
