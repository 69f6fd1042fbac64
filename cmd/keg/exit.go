package main

import (
	"errors"

	"github.com/smartystreets/keg/contracts"
)

const (
	exitSuccess  = 0
	exitFailure  = 1
	exitNetwork  = 2
	exitChecksum = 3
	exitConflict = 4
	exitManifest = 5
)

// exitCode classifies err. When several packages failed, the first matching
// class below wins.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, contracts.ErrChecksumMismatch):
		return exitChecksum
	case errors.Is(err, contracts.ErrInstallConflict):
		return exitConflict
	case errors.Is(err, contracts.ErrMalformedManifest),
		errors.Is(err, contracts.ErrUnresolvedTemplate),
		errors.Is(err, contracts.ErrUnsupportedTargetKind):
		return exitManifest
	case errors.Is(err, contracts.ErrNetwork),
		errors.Is(err, contracts.ErrTimeout):
		return exitNetwork
	default:
		return exitFailure
	}
}
