package util

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Mocked out for unit testing.
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
	exit             = os.Exit
)

// HandleFatalError handles errors that are severe enough to terminate the
// program. Friendly errors are printed as is, and everything else is logged
// along with its context.
func HandleFatalError(err error) {
	if friendlyErr, ok := errors.GetFriendlyError(err); ok {
		fmt.Fprintln(os.Stderr, friendlyErr.FriendlyMessage())
		log.WithError(err).Debug("Fatal error")
	} else {
		log.WithError(err).Error("Fatal error")
	}
	exit(1)
}

// HandlePanic logs the panic along with its stack trace before exiting. It
// must be deferred at the top of each goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).
			Errorf("Unexpected panic: %v", r)
		exit(1)
	}
}

// PromptYesOrNo asks the user the given question, and returns whether they
// answered yes. Anything other than an explicit yes is treated as no.
func PromptYesOrNo(prompt string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N] ", prompt)
	resp, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, errors.WithContext(err, "read response")
	}

	switch strings.ToLower(strings.TrimSpace(resp)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ProgressPrinter prints a message followed by a growing line of dots until
// it's stopped.
type ProgressPrinter struct {
	out      io.Writer
	msg      string
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewProgressPrinter creates a ProgressPrinter. Run must be called to start
// printing.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:      out,
		msg:      msg,
		interval: time.Second,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run prints the progress until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)
	fmt.Fprint(pp.out, pp.msg)

	ticker := time.NewTicker(pp.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			fmt.Fprint(pp.out, ".")
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		}
	}
}

// Stop stops the printer and waits for it to finish writing.
func (pp *ProgressPrinter) Stop() {
	close(pp.stop)
	<-pp.done
}
