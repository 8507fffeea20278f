package config

import (
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
)

// Mocked out for unit testing. The tests swap in afero.NewMemMapFs() and a
// homedir expansion that doesn't depend on the machine running them.
var (
	fs            = afero.NewOsFs()
	homedirExpand = homedir.Expand
)

// SetFs replaces the filesystem used to read and write configuration files.
// It's meant for tests in other packages.
func SetFs(newFs afero.Fs) {
	fs = newFs
}
