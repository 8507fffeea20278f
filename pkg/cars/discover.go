package cars

import (
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Car is a car directory in the setups root.
type Car struct {
	// Name is the name of the directory.
	Name string

	// Path is the path to the directory.
	Path string

	// Folder is the iRacing folder that the directory stands for. It's the
	// same as Name unless the directory was mapped.
	Folder string

	// Group is the name of the variant group of Folder, if any.
	Group string
}

// DiscoverOptions configures Discover.
type DiscoverOptions struct {
	// Excluded are directory names that aren't car directories.
	Excluded []string

	// Skip are paths that aren't car directories, such as backup folders.
	Skip []string

	Cache    *MappingCache
	Resolver Resolver
}

// Discover lists the car directories in `root`. Directories that aren't known
// iRacing folders are looked up in the cache, and otherwise resolved with the
// resolver. Directories that can't be resolved are still returned, but don't
// belong to a variant group.
func Discover(fs afero.Fs, root string, opts DiscoverOptions) ([]Car, error) {
	entries, err := afero.ReadDir(fs, root)
	if err != nil {
		return nil, errors.WithContext(err, "list setups root")
	}

	excluded := map[string]struct{}{}
	for _, name := range opts.Excluded {
		excluded[strings.ToLower(name)] = struct{}{}
	}

	skip := map[string]struct{}{}
	for _, path := range opts.Skip {
		skip[filepath.Clean(path)] = struct{}{}
	}

	var cars []Car
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(root, name)
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		if _, ok := excluded[strings.ToLower(name)]; ok {
			continue
		}

		if _, ok := skip[path]; ok {
			continue
		}

		folder := resolve(name, opts.Cache, opts.Resolver)
		group, _ := GroupOf(folder)
		cars = append(cars, Car{
			Name:   name,
			Path:   path,
			Folder: folder,
			Group:  group,
		})
	}

	sort.Slice(cars, func(i, j int) bool {
		return cars[i].Name < cars[j].Name
	})
	return cars, nil
}

func resolve(name string, cache *MappingCache, resolver Resolver) string {
	if IsKnownFolder(name) {
		return strings.ToLower(name)
	}

	if cache != nil {
		if folder, ok := cache.Get(name); ok {
			return folder
		}
	}

	if resolver == nil {
		return name
	}

	log.WithError(errors.UnknownCarDirectory{Name: name}).Debug("Resolving car folder")
	answer, ok := resolver.Resolve(name)
	if !ok {
		return name
	}

	if answer == "" {
		answer = name
	}
	if cache != nil && resolver.Remember() {
		cache.Set(name, answer)
	}
	return answer
}

// GroupMembers groups the paths of the cars that belong to a variant group,
// keyed by the group name.
func GroupMembers(cars []Car) map[string][]string {
	groups := map[string][]string{}
	for _, car := range cars {
		if car.Group != "" {
			groups[car.Group] = append(groups[car.Group], car.Path)
		}
	}
	return groups
}
