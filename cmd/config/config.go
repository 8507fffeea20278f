package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/config"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/fingerprint"
)

// defaultSetupsPath is where iRacing keeps car setups on a default install.
const defaultSetupsPath = "~/Documents/iRacing/setups"

// Mocked for unit testing.
var (
	stdout         io.Writer = os.Stdout
	stdin          io.Reader = os.Stdin
	guessDefaults            = guessDefaultsImpl
	parseRunConfig           = config.ParseRun
	stat                     = os.Stat
	homedirExpand            = homedir.Expand
)

// New creates a new `config` command.
func New() *cobra.Command {
	var configPath string
	var cliOpts config.Run
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the setups-sync configuration",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(configPath, cliOpts); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s", err)
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"The path to the config file. Defaults to "+config.DefaultRunConfigPath+".")
	cmd.Flags().StringVar(&cliOpts.RootPath, "root", "",
		"Set the setups folder in the config. "+
			"Optional: If not set, `setups-sync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.SyncSourceName, "source", "",
		"Set the source folder name in the config. "+
			"Optional: If not set, `setups-sync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.SyncDestName, "destination", "",
		"Set the destination folder name in the config. "+
			"Optional: If not set, `setups-sync config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.HashAlgorithm, "hash", "",
		"Set the hash algorithm in the config. "+
			"Optional: If not set, `setups-sync config` will interactively prompt.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Run) string
	}

	getters := []getterSpec{
		{
			use:   "get-root",
			short: "Get the currently configured setups folder",
			fn:    func(cfg config.Run) string { return cfg.RootPath },
		},
		{
			use:   "get-source",
			short: "Get the currently configured source folder name",
			fn:    func(cfg config.Run) string { return cfg.SyncSourceName },
		},
		{
			use:   "get-destination",
			short: "Get the currently configured destination folder name",
			fn:    func(cfg config.Run) string { return cfg.SyncDestName },
		},
		{
			use:   "get-log-path",
			short: "Get the path that run logs are written to",
			fn:    func(cfg config.Run) string { return cfg.LogPath },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				path, err := config.GetRunConfigPath(configPath)
				if err != nil {
					util.HandleFatalError(errors.WithContext(err, "get config path"))
				}

				cfg, err := parseRunConfig(path)
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig interactively generates the config and writes it to
// `configPath`.
func SetupConfig(configPath string, cliOpts config.Run) error {
	path, err := config.GetRunConfigPath(configPath)
	if err != nil {
		return errors.WithContext(err, "get config path")
	}

	cfg, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := config.WriteRun(path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", path)
	return nil
}

func rootValidationFn(root string) (string, bool) {
	if strings.TrimSpace(root) == "" {
		return "The setups folder can't be empty.", false
	}
	return "", true
}

func folderNameValidationFn(name string) (string, bool) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." {
		return "The folder name must be a single, non-empty folder name.", false
	}
	return "", true
}

func hashValidationFn(algo string) (string, bool) {
	if _, err := fingerprint.ParseAlgorithm(algo); err != nil {
		return "Unsupported hash algorithm. Please pick one of: " +
			strings.Join(fingerprint.Algorithms(), ", ") + ".", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. Settings that aren't prompted for are kept from the
// current config, or get their defaults.
func generateConfig(path string, cliOpts config.Run) (config.Run, error) {
	defaults := guessDefaults()
	cfg := config.DefaultRun()
	currConfig, err := parseRunConfig(path)
	if err == nil {
		cfg = currConfig
	} else {
		log.WithError(err).Debug("Failed to read current config")
		currConfig = config.Run{}
	}

	var prompts []prompt
	if cliOpts.RootPath == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the path to the iRacing setups folder.\n" +
				"It contains one folder per car.",
			prompt:        "Setups folder",
			defaultAnswer: defaults.RootPath,
			currAnswer:    currConfig.RootPath,
			field:         &cfg.RootPath,
			validationFn:  rootValidationFn,
		})
	} else {
		cfg.RootPath = cliOpts.RootPath
	}

	if cliOpts.SyncSourceName == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the name of the team folder that setups are synced from.\n" +
				"It's looked up inside each car folder.",
			prompt:        "Source folder name",
			defaultAnswer: defaults.SyncSourceName,
			currAnswer:    currConfig.SyncSourceName,
			field:         &cfg.SyncSourceName,
			validationFn:  folderNameValidationFn,
		})
	} else {
		cfg.SyncSourceName = cliOpts.SyncSourceName
	}

	if cliOpts.SyncDestName == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the name of the folder that setups are synced to.\n" +
				"It must be different from the source folder.",
			prompt:        "Destination folder name",
			defaultAnswer: defaults.SyncDestName,
			currAnswer:    currConfig.SyncDestName,
			field:         &cfg.SyncDestName,
			validationFn: func(name string) (string, bool) {
				if name == cfg.SyncSourceName {
					return "The destination folder must differ from the source folder.", false
				}
				return folderNameValidationFn(name)
			},
		})
	} else {
		cfg.SyncDestName = cliOpts.SyncDestName
	}

	if cliOpts.HashAlgorithm == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the hash algorithm used to compare setup files.\n" +
				"Supported algorithms: " + strings.Join(fingerprint.Algorithms(), ", ") + ".",
			prompt:        "Hash algorithm",
			defaultAnswer: defaults.HashAlgorithm,
			currAnswer:    currConfig.HashAlgorithm,
			field:         &cfg.HashAlgorithm,
			validationFn:  hashValidationFn,
		})
	} else {
		cfg.HashAlgorithm = cliOpts.HashAlgorithm
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Run{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	return cfg, nil
}

// guessDefaultsImpl tries to guess reasonable defaults for the prompted
// fields.
func guessDefaultsImpl() config.Run {
	cfg := config.DefaultRun()
	if root, err := guessRoot(); err == nil {
		cfg.RootPath = root
	} else {
		log.WithError(err).Info("Failed to guess setups folder")
	}
	return cfg
}

// guessRoot returns the default iRacing setups folder if it exists.
func guessRoot() (string, error) {
	path, err := homedirExpand(defaultSetupsPath)
	if err != nil {
		return "", errors.WithContext(err, "expand home directory")
	}

	if _, err := stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.WithContext(err, "stat")
	}
	return path, nil
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Display a new line at the end to separate different fields to make it
	// look clearer.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		// defaultAnswer or currAnswer exists.
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimSpace(choiceStr)

			// Default to the first choice if user doesn't enter anything.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					// Try again if the input is invalid.
					continue
				}
			}

			if choice == nOptions {
				// Enter manually.
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\r\n"), nil
}
