package upgradecli

import (
	"archive/tar"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"runtime"
	"time"

	goversion "github.com/hashicorp/go-version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/nishizumi-maho/nishizumi-setups-sync/cmd/util"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/version"
)

const binaryName = "setups-sync"

var (
	endpoint = "https://api.github.com/repos/nishizumi-maho/nishizumi-setups-sync/releases/latest"
	client   = &http.Client{Timeout: time.Minute}

	osToParam = map[string]string{
		"darwin":  "osx",
		"linux":   "linux",
		"windows": "windows",
	}

	fs                  = afero.NewOsFs()
	stdout    io.Writer = os.Stdout
	getwd               = os.Getwd
	promptYes           = util.PromptYesOrNo
)

// release is the subset of the release metadata that's needed to download
// it.
type release struct {
	TagName string  `json:"tag_name"`
	Assets  []asset `json:"assets"`
}

type asset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
}

// New creates a new `upgrade-cli` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade-cli",
		Short: "Upgrade the local setups-sync binary to the latest release",
		Run: func(_ *cobra.Command, _ []string) {
			if err := run(); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
}

func run() error {
	pp := util.NewProgressPrinter(stdout, "Checking for updates to setups-sync.")
	go pp.Run()
	latest, err := getLatestRelease()
	pp.Stop()
	if err != nil {
		return errors.WithContext(err, "get latest release")
	}

	latestVersion, err := goversion.NewVersion(latest.TagName)
	if err != nil {
		return errors.WithContext(err, "parse release version")
	}

	fmt.Fprintf(stdout, "Your setups-sync is at version: %s\n", version.Version)
	fmt.Fprintf(stdout, "The latest release is version: %s\n\n", latestVersion)

	shouldInstall, err := promptShouldInstall(latestVersion)
	if err != nil {
		return errors.WithContext(err, "prompt")
	} else if !shouldInstall {
		return nil
	}

	pp = util.NewProgressPrinter(stdout,
		fmt.Sprintf("Downloading setups-sync release: %s", latestVersion))
	go pp.Run()
	err = downloadRelease(latest)
	pp.Stop()
	if err != nil {
		return errors.WithContext(err, "download release")
	}
	fmt.Fprintln(stdout, "Release successfully downloaded.")
	fmt.Fprintln(stdout)

	installedPath, writableByUser, err := getInstalledPath()
	if err != nil {
		return errors.WithContext(err, "get installed path")
	}

	command := fmt.Sprintf("cp ./%s %s", binaryName, installedPath)
	if !writableByUser {
		command = "sudo " + command
	}

	fmt.Fprintf(stdout, "setups-sync has been downloaded to the current working directory.\n"+
		"Please execute the following command in your shell to install it:\n\n"+
		"\t %s \n\n", command)
	return nil
}

func getLatestRelease() (release, error) {
	resp, err := client.Get(endpoint)
	if err != nil {
		return release{}, errors.WithContext(err, "get")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return release{}, fmt.Errorf("server responded with %s", resp.Status)
	}

	var latest release
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		return release{}, errors.WithContext(err, "decode")
	}
	return latest, nil
}

// assetName returns the name of the release archive for this machine.
func assetName() (string, error) {
	osParam, ok := osToParam[runtime.GOOS]
	if !ok {
		return "", errors.New("invalid OS")
	}
	return fmt.Sprintf("%s_%s_%s.tar.gz", binaryName, osParam, runtime.GOARCH), nil
}

// downloadRelease downloads the archive for this machine from `rel`, and
// stores the binary in the current working directory.
func downloadRelease(rel release) error {
	name, err := assetName()
	if err != nil {
		return err
	}

	var url string
	for _, asset := range rel.Assets {
		if asset.Name == name {
			url = asset.URL
			break
		}
	}
	if url == "" {
		return errors.NewFriendlyError("Release %s doesn't include a build for "+
			"this machine (%s).", rel.TagName, name)
	}

	resp, err := client.Get(url)
	if err != nil {
		return errors.WithContext(err, "get")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server responded with %s", resp.Status)
	}

	switch ctype := resp.Header.Get("Content-Type"); ctype {
	case "application/x-gzip", "application/gzip", "application/octet-stream":
	default:
		return fmt.Errorf("incorrect content-type: %s", ctype)
	}

	err = extractRelease(resp.Body)
	if err != nil {
		return errors.WithContext(err, "extract file")
	}
	return nil
}

// extractRelease takes a .tar.gz Reader, and extracts the setups-sync binary
// to the current working directory.
func extractRelease(src io.Reader) error {
	gzr, err := gzip.NewReader(src)
	if err != nil {
		return errors.WithContext(err, "new gzip reader")
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)

	// Search for a header for the binary in the tar archive.
	var header *tar.Header
	for {
		header, err = tr.Next()

		switch {
		case err == io.EOF:
			return errors.WithContext(err, "find "+binaryName+" in tar")
		case err != nil:
			return errors.WithContext(err, "read tar header")
		case header == nil:
			continue
		}

		if header.Typeflag == tar.TypeReg && path.Base(header.Name) == binaryName {
			break
		}
	}

	dir, err := getwd()
	if err != nil {
		return errors.WithContext(err, "get working dir")
	}
	dPath := path.Join(dir, binaryName)
	file, err := fs.OpenFile(dPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, os.FileMode(header.Mode))
	if err != nil {
		return errors.WithContext(err, "create path")
	}
	defer file.Close()

	_, err = io.Copy(file, tr)
	if err != nil {
		return errors.WithContext(err, "io copy")
	}
	return nil
}

func promptShouldInstall(latestVersion *goversion.Version) (bool, error) {
	ownVersion, err := goversion.NewVersion(version.Version)
	if err != nil {
		return false, errors.NewFriendlyError("This build of setups-sync "+
			"has no release version (%s), so it can't be upgraded.", version.Version)
	}

	if !ownVersion.LessThan(latestVersion) {
		fmt.Fprintln(stdout, "Your setups-sync is already up to date.")
		return false, nil
	}

	doUpgrade, err := promptYes(fmt.Sprintf(
		"Would you like to upgrade to release %s?", latestVersion))
	if err != nil {
		return false, errors.WithContext(err, "prompt")
	}
	return doUpgrade, nil
}

func getInstalledPath() (string, bool, error) {
	path, err := os.Executable()
	if err != nil {
		return "", false, errors.WithContext(err, "get executable path")
	}

	// Resolve path with symlinks
	path, err = resolveLinks(path)
	if err != nil {
		return "", false, errors.WithContext(err, "resolve links")
	}

	isWritable, err := checkWritable(path)
	if err != nil {
		return "", false, errors.WithContext(err, "check permissions")
	}

	return path, isWritable, nil
}

// resolveLinks takes a path and resolves symlinks up to a depth of 5.
func resolveLinks(path string) (string, error) {
	maxDepth := 5

	for i := 0; i < maxDepth; i++ {
		info, err := os.Lstat(path)
		if err != nil {
			return "", errors.WithContext(err, "get lstat")
		}

		if info.Mode()&os.ModeSymlink == 0 {
			return path, nil
		}

		path, err = os.Readlink(path)
		if err != nil {
			return "", errors.WithContext(err, "follow link")
		}
	}

	return "", errors.New("maximum symlink traversal depth exceeded")
}
