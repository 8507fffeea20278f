package version

// EmptyValue is the version of binaries that weren't built for a release,
// such as `go run` builds and unit tests. They can't be upgraded.
const EmptyValue = "set-by-make"

// Version is the release tag the binary was built from. Release builds set it
// with `-ldflags "-X .../pkg/version.Version=<tag>"`.
var Version = EmptyValue
