// Package logfile appends log entries to a plain text file, so that runs
// started without a terminal (e.g. from a scheduled task) leave a trace.
package logfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

const timeFormat = "2006-01-02 15:04:05"

// Mocked out for unit testing.
var fs = afero.NewOsFs()

type hook struct {
	path string
	lock sync.Mutex
}

// NewHook creates a hook that appends every log entry to the file at `path`.
// It fails if the file can't be opened for writing, so that a bad log path is
// reported before the run starts.
func NewHook(path string) (logrus.Hook, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithContext(err, "make log directory")
	}

	f, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.WithContext(err, "open log file")
	}
	f.Close()

	return &hook{path: path}, nil
}

func (h *hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *hook) Fire(entry *logrus.Entry) error {
	line := format(entry)

	h.lock.Lock()
	defer h.lock.Unlock()

	// Never return an error because logrus prints hook errors directly to
	// stderr, and a broken log file shouldn't fail the run.
	f, err := fs.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil
	}
	defer f.Close()

	f.WriteString(line)
	return nil
}

// format formats the entry as
// `[YYYY-MM-DD HH:MM:SS] LEVEL message key=value`, with the fields sorted by
// key.
func format(entry *logrus.Entry) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %s %s", entry.Time.Format(timeFormat),
		strings.ToUpper(entry.Level.String()), entry.Message)

	var keys []string
	for key := range entry.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		fmt.Fprintf(&sb, " %s=%v", key, entry.Data[key])
	}
	sb.WriteString("\n")
	return sb.String()
}
