package sync

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShareAmongVariants(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/root/cup/Source/oval.sto":     "oval",
		"/root/xfinity/Source/road.sto": "road",
	})

	members := []string{"/root/cup", "/root/xfinity"}
	report, err := newTestMerger(fs).ShareAmongVariants(members, testLayout, SetupFiles)
	assert.NoError(t, err)
	assert.Equal(t, 2, report.Copied)

	exp := map[string]string{"oval.sto": "oval", "road.sto": "road"}
	assert.Equal(t, exp, listFiles(t, fs, "/root/cup/Source"))
	assert.Equal(t, exp, listFiles(t, fs, "/root/xfinity/Source"))
}

func TestShareAmongVariantsIsMonotonic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/root/a/Source/a.sto":              "a",
		"/root/a/Source/shared.sto":         "from a",
		"/root/a/Source/Data packs/dp1.sto": "dp1",
		"/root/b/Source/nested/b.sto":       "b",
		"/root/b/Source/shared.sto":         "from b",
		"/root/b/Source/Data packs/dp2.sto": "dp2",
		"/root/b/Source/notes.txt":          "notes",
	})

	// c has no Source tree yet.
	members := []string{"/root/a", "/root/b", "/root/c"}
	before := map[string]map[string]string{}
	union := map[string]struct{}{}
	for _, member := range members {
		before[member] = listFiles(t, fs, testLayout.Source(member))
		for path := range before[member] {
			if SetupFiles(path) {
				union[path] = struct{}{}
			}
		}
	}

	merger := newTestMerger(fs)
	_, err := merger.ShareAmongVariants(members, testLayout, SetupFiles)
	assert.NoError(t, err)

	for _, member := range members {
		after := listFiles(t, fs, testLayout.Source(member))
		for path := range union {
			assert.Contains(t, after, path, member)
		}

		// Files that existed before are never changed.
		for path, contents := range before[member] {
			assert.Equal(t, contents, after[path], member)
		}
	}

	// Differing files with the same modification time are left alone.
	assert.Equal(t, "from a", listFiles(t, fs, "/root/a/Source")["shared.sto"])
	assert.Equal(t, "from b", listFiles(t, fs, "/root/b/Source")["shared.sto"])
	assert.Equal(t, "from a", listFiles(t, fs, "/root/c/Source")["shared.sto"])

	// A second pass has nothing left to do.
	report, err := merger.ShareAmongVariants(members, testLayout, SetupFiles)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Copied)
}

func TestShareAmongVariantsNewestWins(t *testing.T) {
	fs := afero.NewMemMapFs()
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mockFile{path: "/root/cup/Source/oval.sto", contents: "v1", modTime: modTime}.write(t, fs)
	mockFile{path: "/root/xfinity/Source/road.sto", contents: "road", modTime: modTime}.write(t, fs)
	mockFile{path: "/root/trucks/Source/oval.sto", contents: "v1", modTime: modTime}.write(t, fs)

	members := []string{"/root/cup", "/root/xfinity", "/root/trucks"}
	merger := newTestMerger(fs)
	_, err := merger.ShareAmongVariants(members, testLayout, SetupFiles)
	require.NoError(t, err)

	// Update the setup in the last member, after it was shared.
	mockFile{
		path:     "/root/trucks/Source/oval.sto",
		contents: "v2-updated",
		modTime:  modTime.Add(time.Hour),
	}.write(t, fs)
	// A version older than the other members' is replaced.
	mockFile{
		path:     "/root/xfinity/Source/road.sto",
		contents: "stale",
		modTime:  modTime.Add(-time.Hour),
	}.write(t, fs)

	report, err := merger.ShareAmongVariants(members, testLayout, SetupFiles)
	assert.NoError(t, err)
	assert.Equal(t, 3, report.Copied)

	for _, member := range members {
		assert.Equal(t, map[string]string{
			"oval.sto": "v2-updated",
			"road.sto": "road",
		}, listFiles(t, fs, testLayout.Source(member)), member)
	}

	report, err = merger.ShareAmongVariants(members, testLayout, SetupFiles)
	assert.NoError(t, err)
	assert.Equal(t, 0, report.Copied)
}

func TestShareAmongVariantsEmptyGroup(t *testing.T) {
	fs := afero.NewMemMapFs()
	assert.NoError(t, fs.MkdirAll("/root/a", 0755))
	assert.NoError(t, fs.MkdirAll("/root/b", 0755))

	report, err := newTestMerger(fs).ShareAmongVariants(
		[]string{"/root/a", "/root/b"}, testLayout, SetupFiles)
	assert.NoError(t, err)
	assert.Equal(t, Report{}, report)
	assertNotExist(t, fs, "/root/a/Source")
}
