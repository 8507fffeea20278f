package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/cars"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/logfile"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/roster"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/runner"
)

// Mocked for unit testing.
var (
	fs         = afero.NewOsFs()
	stdin      io.Reader = os.Stdin
	stdout     io.Writer = os.Stdout
	isTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	newFetcher           = func() roster.Fetcher { return roster.NewGarage61() }
	addLogHook           = log.AddHook
)

const failedCarsTemplate = "%d car(s) failed to sync. Their setups were " +
	"left untouched where possible. Please review the errors above."

// New creates a new `sync` command.
func New() *cobra.Command {
	var configPath string
	var headless bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync the team setups into every car folder",
		Long: "Imports new setups, shares setups between car variants, and " +
			"copies the team setups into every car folder.\n" +
			"Nothing is removed from the personal setup folders.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(configPath, headless); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "",
		"The path to the config file. Defaults to "+config.DefaultRunConfigPath+".")
	cmd.Flags().BoolVar(&headless, "headless", false,
		"Never prompt. Unrecognized car folders are synced as is, "+
			"and unrecognized imports are skipped.")
	return cmd
}

func run(configPath string, headless bool) error {
	path, err := config.GetRunConfigPath(configPath)
	if err != nil {
		return errors.WithContext(err, "get config path")
	}

	cfg, err := config.ParseRun(path)
	if err != nil {
		return errors.WithContext(err, "read config")
	}

	if err := cfg.Validate(); err != nil {
		return errors.NewFriendlyError("Invalid config %q:\n%s", path, err)
	}

	if cfg.LoggingEnabled {
		hook, err := logfile.NewHook(cfg.LogPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.LogPath).
				Warn("Failed to open log file. Continuing without it.")
		} else {
			addLogHook(hook)
		}
	}

	opts := runner.Options{Fs: fs, Fetcher: newFetcher()}
	if headless || !isTerminal() {
		opts.Resolver = cars.Headless{}
	} else {
		opts.Resolver = cars.NewPrompt(stdin, stdout)
	}

	for _, p := range []struct {
		field *string
		fn    func() (string, error)
	}{
		{&opts.MappingPath, config.MappingPath},
		{&opts.StatePath, config.StatePath},
		{&opts.FingerprintPath, config.FingerprintCachePath},
	} {
		if *p.field, err = p.fn(); err != nil {
			return errors.WithContext(err, "get state path")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	res := runner.New(cfg, opts).Run(ctx)
	printSummary(stdout, res)

	// Aborted runs, and runs that failed after every car was synced.
	if res.Err != nil {
		return res.Err
	}

	var failed int
	for _, name := range res.CarNames() {
		if res.Cars[name].Err != nil {
			failed++
		}
	}
	if failed != 0 {
		return errors.NewFriendlyError(failedCarsTemplate, failed)
	}
	return nil
}

func printSummary(out io.Writer, res runner.Result) {
	fmt.Fprintf(out, "Run %s finished (%s) in %s\n", res.RunID, res.State,
		res.Duration().Round(time.Millisecond))
	if res.State == runner.Aborted {
		fmt.Fprintln(out, goterm.Color("Nothing was synced.", goterm.RED))
		return
	}

	stages := []struct {
		name   string
		report fmt.Stringer
	}{
		{"Backup before", res.BackupBefore},
		{"Import", res.Import},
		{"Variants", res.Variants},
		{"Backup after", res.BackupAfter},
	}
	for _, stage := range stages {
		fmt.Fprintf(out, "  %-14s %s\n", stage.name+":", stage.report)
	}

	for _, name := range res.SkippedImports {
		fmt.Fprintf(out, "  %s\n", goterm.Color(
			fmt.Sprintf("Skipped unrecognized import %q", name), goterm.YELLOW))
	}

	if res.RosterErr != nil {
		fmt.Fprintf(out, "  %s\n", goterm.Color(
			"Failed to fetch the driver roster. Kept the existing driver folders.",
			goterm.YELLOW))
	}
	if len(res.Drivers) != 0 {
		fmt.Fprintf(out, "  Drivers:       %s\n", strings.Join(res.Drivers, ", "))
	}

	fmt.Fprintln(out)
	for _, name := range res.CarNames() {
		car := res.Cars[name]
		total := car.Total()

		color := goterm.GREEN
		switch {
		case car.Err != nil:
			color = goterm.RED
		case total.Failed != 0:
			color = goterm.YELLOW
		}

		label := name
		if car.Folder != "" && car.Folder != name {
			label = fmt.Sprintf("%s (%s)", name, car.Folder)
		}
		fmt.Fprintf(out, "%s: %s\n", label, goterm.Color(total.String(), color))
		if car.Err != nil {
			fmt.Fprintf(out, "  %s\n", goterm.Color(car.Err.Error(), goterm.RED))
		}
		for _, err := range total.Errors {
			fmt.Fprintf(out, "  %s\n", err)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Total: %s\n", res.Total())
	if res.Err != nil {
		fmt.Fprintln(out, goterm.Color(res.Err.Error(), goterm.RED))
	}
}
