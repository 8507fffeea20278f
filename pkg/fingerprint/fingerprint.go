// Package fingerprint computes content fingerprints for setup files, and
// caches them so that unchanged files aren't rehashed on every run.
package fingerprint

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"hash/crc32"
	"io"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/nishizumi-maho/nishizumi-setups-sync/pkg/errors"
)

// Algorithm names a content hash.
type Algorithm string

const (
	MD5    Algorithm = "md5"
	SHA1   Algorithm = "sha1"
	SHA256 Algorithm = "sha256"
	SHA512 Algorithm = "sha512"
	CRC32  Algorithm = "crc32"
	XXHash Algorithm = "xxhash"

	// DefaultAlgorithm is used when the configuration doesn't pick one.
	DefaultAlgorithm = MD5
)

var hashers = map[Algorithm]func() hash.Hash{
	MD5:    md5.New,
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA512: sha512.New,
	CRC32:  func() hash.Hash { return crc32.NewIEEE() },
	XXHash: func() hash.Hash { return xxhash.New() },
}

// ParseAlgorithm returns the Algorithm named by `name`. The empty string maps
// to DefaultAlgorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	if name == "" {
		return DefaultAlgorithm, nil
	}

	algo := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := hashers[algo]; !ok {
		return "", errors.InvalidFieldError{
			Field:  "hashAlgorithm",
			Value:  name,
			Reason: "must be one of " + strings.Join(Algorithms(), ", "),
		}
	}
	return algo, nil
}

// Algorithms returns the names of the supported algorithms.
func Algorithms() []string {
	var names []string
	for algo := range hashers {
		names = append(names, string(algo))
	}
	sort.Strings(names)
	return names
}

// Value is the hex encoded digest of a file's contents.
type Value string

// HashFile returns the fingerprint of the file at `path`.
func HashFile(fs afero.Fs, algo Algorithm, path string) (Value, error) {
	newHasher, ok := hashers[algo]
	if !ok {
		return "", errors.New("unsupported hash algorithm: " + string(algo))
	}

	f, err := fs.Open(path)
	if err != nil {
		return "", errors.ReadFailure{Path: path, Err: err}
	}
	defer f.Close()

	hasher := newHasher()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", errors.ReadFailure{Path: path, Err: err}
	}

	return Value(hex.EncodeToString(hasher.Sum(nil))), nil
}
