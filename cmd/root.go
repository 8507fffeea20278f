package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	carsCmd "github.com/nishizumi-maho/nishizumi-setups-sync/cmd/cars"
	configCmd "github.com/nishizumi-maho/nishizumi-setups-sync/cmd/config"
	syncCmd "github.com/nishizumi-maho/nishizumi-setups-sync/cmd/sync"
	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/upgradecli"
	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "SETUPS_SYNC_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:          "setups-sync",
		Short:        "Keep the team's iRacing setups in sync with every car folder",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		carsCmd.New(),
		configCmd.New(),
		syncCmd.New(),
		upgradecli.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
