package cars

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Resolver decides which real iRacing folder an unrecognized folder stands
// for.
type Resolver interface {
	// Resolve returns the answer for the folder `name`. The answer may be
	// empty, which means that the folder should be used as is. `ok` is false
	// if no answer could be obtained.
	Resolve(name string) (answer string, ok bool)

	// Remember returns whether answers should be cached for future runs.
	Remember() bool
}

// Prompt asks the user on the terminal.
type Prompt struct {
	in   *bufio.Reader
	out  io.Writer
	lock sync.Mutex
}

// NewPrompt returns a Prompt that reads answers from `in`, and writes
// questions to `out`.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

// Resolve implements Resolver.
func (p *Prompt) Resolve(name string) (string, bool) {
	p.lock.Lock()
	defer p.lock.Unlock()

	fmt.Fprintf(p.out, "Folder %q not recognised.\n"+
		"Enter the name of the target folder in iRacing setups "+
		"(leave empty to use it as is): ", name)
	resp, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || resp == "") {
		log.WithError(err).WithField("folder", name).Debug("Failed to read answer")
		return "", false
	}
	return strings.TrimSpace(resp), true
}

// Remember implements Resolver.
func (p *Prompt) Remember() bool {
	return true
}

// Headless is used when there's nobody to ask. It never has an answer, so
// unrecognized folders are synced on their own, and unrecognized imports are
// skipped.
type Headless struct{}

// Resolve implements Resolver.
func (Headless) Resolve(name string) (string, bool) {
	log.WithField("folder", name).Info(
		"Folder not recognised. Run setups-sync interactively or use " +
			"`setups-sync cars map` to map it to an iRacing folder.")
	return "", false
}

// Remember implements Resolver.
func (Headless) Remember() bool {
	return false
}
