package sync

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// sourceReader remembers whether a failed copy was caused by the source, so
// that unreadable files can be told apart from unwritable destinations.
type sourceReader struct {
	r   io.Reader
	err error
}

func (sr *sourceReader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if err != nil && err != io.EOF {
		sr.err = err
	}
	return n, err
}

// copyFile copies `src` to `dst`, creating the parent directories of `dst`.
// The mode and modification time are preserved. Problems with the source are
// returned as errors.ReadFailure, and problems with the destination as
// errors.WriteFailure.
func copyFile(fs afero.Fs, src, dst string) error {
	srcFile, err := fs.Open(src)
	if err != nil {
		return errors.ReadFailure{Path: src, Err: err}
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return errors.ReadFailure{Path: src, Err: err}
	}

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return errors.WriteFailure{Path: dst, Err: errors.WithContext(err, "make parent")}
	}

	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fileInfo.Mode().Perm())
	if err != nil {
		return errors.WriteFailure{Path: dst, Err: err}
	}

	reader := &sourceReader{r: srcFile}
	_, copyErr := io.Copy(dstFile, reader)
	closeErr := dstFile.Close()
	switch {
	case reader.err != nil:
		return errors.ReadFailure{Path: src, Err: reader.err}
	case copyErr != nil:
		return errors.WriteFailure{Path: dst, Err: copyErr}
	case closeErr != nil:
		return errors.WriteFailure{Path: dst, Err: closeErr}
	}

	if err := fs.Chmod(dst, fileInfo.Mode().Perm()); err != nil {
		return errors.WriteFailure{Path: dst, Err: errors.WithContext(err, "set file mode")}
	}

	// Change the modification time as the last step so that it doesn't get
	// reset by other file operations.
	if err := fs.Chtimes(dst, time.Now(), fileInfo.ModTime()); err != nil {
		return errors.WriteFailure{Path: dst, Err: errors.WithContext(err, "set file modtime")}
	}
	return nil
}
