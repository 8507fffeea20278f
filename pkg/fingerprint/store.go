package fingerprint

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ghodss/yaml"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Options tunes how eagerly the Store trusts file metadata.
type Options struct {
	// TrustModTime makes Same treat two files with the same size and
	// modification time as identical without hashing them. Copies made by
	// the merger preserve modification times, so this is safe for trees that
	// are only written by setups-sync.
	TrustModTime bool
}

type entry struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modTime"`
	Value   Value     `json:"value"`
}

type cacheFile struct {
	Algorithm Algorithm        `json:"algorithm"`
	Entries   map[string]entry `json:"entries"`
}

// Store computes fingerprints and caches them keyed by path. A cached
// fingerprint is reused as long as the file's size and modification time
// haven't changed. It's safe for concurrent use.
type Store struct {
	fs   afero.Fs
	algo Algorithm
	opts Options

	entries map[string]entry
	touched map[string]struct{}
	lock    sync.Mutex
}

// NewStore returns an empty Store.
func NewStore(fs afero.Fs, algo Algorithm, opts Options) *Store {
	return &Store{
		fs:      fs,
		algo:    algo,
		opts:    opts,
		entries: map[string]entry{},
		touched: map[string]struct{}{},
	}
}

// Algorithm returns the algorithm used by the store.
func (s *Store) Algorithm() Algorithm {
	return s.algo
}

// Fingerprint returns the fingerprint of the file at `path`. Unreadable files
// result in an errors.ReadFailure.
func (s *Store) Fingerprint(path string) (Value, error) {
	fi, err := s.fs.Stat(path)
	if err != nil {
		return "", errors.ReadFailure{Path: path, Err: err}
	}
	return s.fingerprint(path, fi)
}

func (s *Store) fingerprint(path string, fi os.FileInfo) (Value, error) {
	s.lock.Lock()
	cached, ok := s.entries[path]
	s.touched[path] = struct{}{}
	s.lock.Unlock()

	if ok && cached.Size == fi.Size() && cached.ModTime.Equal(fi.ModTime()) {
		return cached.Value, nil
	}

	// Hash without holding the lock so that workers don't serialize on I/O.
	value, err := HashFile(s.fs, s.algo, path)
	if err != nil {
		return "", err
	}

	s.lock.Lock()
	s.entries[path] = entry{Size: fi.Size(), ModTime: fi.ModTime(), Value: value}
	s.lock.Unlock()
	return value, nil
}

// Same returns whether the files at `a` and `b` have the same contents.
// Files of different sizes are never hashed.
func (s *Store) Same(a, b string) (bool, error) {
	aInfo, err := s.fs.Stat(a)
	if err != nil {
		return false, errors.ReadFailure{Path: a, Err: err}
	}

	bInfo, err := s.fs.Stat(b)
	if err != nil {
		return false, errors.ReadFailure{Path: b, Err: err}
	}

	if aInfo.Size() != bInfo.Size() {
		return false, nil
	}

	if s.opts.TrustModTime && aInfo.ModTime().Equal(bInfo.ModTime()) {
		return true, nil
	}

	aValue, err := s.fingerprint(a, aInfo)
	if err != nil {
		return false, err
	}

	bValue, err := s.fingerprint(b, bInfo)
	if err != nil {
		return false, err
	}
	return aValue == bValue, nil
}

// Forget drops the cached fingerprint for `path`. It's called after a file is
// overwritten.
func (s *Store) Forget(path string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.entries, path)
}

// Load reads a cache previously written by Save. A missing cache file isn't
// an error, and a cache computed with a different algorithm is ignored.
func (s *Store) Load(path string) error {
	cacheBytes, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WithContext(err, "read")
	}

	var cache cacheFile
	if err := yaml.Unmarshal(cacheBytes, &cache); err != nil {
		return errors.WithContext(err, "parse")
	}

	if cache.Algorithm != s.algo {
		log.WithFields(log.Fields{
			"cached":     cache.Algorithm,
			"configured": s.algo,
		}).Debug("Ignoring fingerprint cache computed with another algorithm")
		return nil
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	for path, e := range cache.Entries {
		s.entries[path] = e
	}
	return nil
}

// Save writes the fingerprints of the files that were looked at through this
// Store. Entries that were only loaded are dropped so that the cache doesn't
// grow with files that no longer exist.
func (s *Store) Save(path string) error {
	s.lock.Lock()
	cache := cacheFile{Algorithm: s.algo, Entries: map[string]entry{}}
	for p := range s.touched {
		if e, ok := s.entries[p]; ok {
			cache.Entries[p] = e
		}
	}
	s.lock.Unlock()

	cacheBytes, err := yaml.Marshal(cache)
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := s.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WithContext(err, "make cache directory")
	}
	return afero.WriteFile(s.fs, path, cacheBytes, 0644)
}
