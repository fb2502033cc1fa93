// Package version reports the build of the running binary.
//
// Release builds stamp it through the linker:
//
//	go build -ldflags "-X github.com/kbukum/crudkit/version.Version=1.4.0 -X github.com/kbukum/crudkit/version.Commit=$(git rev-parse --short HEAD)"
//
// Without linker values, Get falls back to the module version and VCS
// settings recorded by the go command.
package version
