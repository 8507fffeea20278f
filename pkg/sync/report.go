package sync

import (
	"fmt"
)

// Report summarizes the file operations of one or more merges.
type Report struct {
	// Copied is the number of files that were new or changed, and were copied.
	Copied int

	// Skipped is the number of files that were already up to date, or that
	// were protected from being overwritten.
	Skipped int

	// Failed is the number of files that couldn't be read.
	Failed int

	// CopiedPaths are the destination paths of the copied files.
	CopiedPaths []string

	// Errors are the file level errors that were counted in Failed.
	Errors []error
}

// Add merges `other` into the report.
func (r *Report) Add(other Report) {
	r.Copied += other.Copied
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.CopiedPaths = append(r.CopiedPaths, other.CopiedPaths...)
	r.Errors = append(r.Errors, other.Errors...)
}

func (r *Report) fail(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err)
}

func (r Report) String() string {
	return fmt.Sprintf("copied %d, skipped %d, failed %d", r.Copied, r.Skipped, r.Failed)
}
