package cars

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/cars"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Mocked for unit testing.
var (
	fs                = afero.NewOsFs()
	stdout  io.Writer = os.Stdout
	mapPath           = config.MappingPath
)

// New creates a new `cars` command.
func New() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "cars",
		Short: "Inspect and map the car folders in the setups folder",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"The path to the config file. Defaults to "+config.DefaultRunConfigPath+".")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the car folders, and the iRacing folders they stand for",
		Run: func(_ *cobra.Command, _ []string) {
			if err := list(configPath); err != nil {
				util.HandleFatalError(err)
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "map FOLDER TARGET",
		Short: "Remember that FOLDER contains setups for the iRacing folder TARGET",
		Long: "Remember that FOLDER contains setups for the iRacing folder TARGET.\n" +
			"Mapped folders share setups with the other variants of TARGET, and\n" +
			"imported folders with the same name are synced into TARGET.",
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			if err := mapFolder(args[0], args[1]); err != nil {
				util.HandleFatalError(err)
			}
		},
	})
	return cmd
}

func list(configPath string) error {
	path, err := config.GetRunConfigPath(configPath)
	if err != nil {
		return errors.WithContext(err, "get config path")
	}

	cfg, err := config.ParseRun(path)
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	cachePath, err := mapPath()
	if err != nil {
		return errors.WithContext(err, "get mapping path")
	}

	cache, err := cars.LoadMappingCache(cachePath)
	if err != nil {
		return errors.WithContext(err, "load mappings")
	}

	// Listing never prompts, so unrecognized folders are shown as is.
	discovered, err := cars.Discover(fs, cfg.RootPath, cars.DiscoverOptions{
		Excluded: cfg.ExcludedCars,
		Skip:     []string{cfg.BackupBeforePath, cfg.BackupAfterPath},
		Cache:    cache,
	})
	if err != nil {
		return errors.WithContext(err, "discover cars")
	}

	out := tabwriter.NewWriter(stdout, 0, 10, 5, ' ', 0)
	defer out.Flush()

	fmt.Fprintln(out, "FOLDER\tIRACING FOLDER\tVARIANT GROUP")
	for _, car := range discovered {
		folder := car.Folder
		if !cars.IsKnownFolder(folder) {
			folder += " (unrecognized)"
		}

		group := car.Group
		if group == "" {
			group = "-"
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", car.Name, folder, group)
	}
	return nil
}

func mapFolder(folder, target string) error {
	folder = strings.TrimSpace(folder)
	target = strings.ToLower(strings.TrimSpace(target))
	if folder == "" || target == "" {
		return errors.NewFriendlyError("Both the folder and the target must be non-empty.")
	}

	if !cars.IsKnownFolder(target) {
		log.WithField("target", target).Warn("Target isn't a known iRacing " +
			"folder. Setups will be synced into it, but it won't share setups " +
			"with any variants.")
	}

	cachePath, err := mapPath()
	if err != nil {
		return errors.WithContext(err, "get mapping path")
	}

	cache, err := cars.LoadMappingCache(cachePath)
	if err != nil {
		return errors.WithContext(err, "load mappings")
	}

	cache.Set(folder, target)
	if err := cache.Save(cachePath); err != nil {
		return errors.WithContext(err, "save mappings")
	}

	fmt.Fprintf(stdout, "Mapped %q to %s\n", folder, target)
	return nil
}
