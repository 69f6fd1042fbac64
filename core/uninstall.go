package core

import (
	"errors"
	"fmt"

	"github.com/smartystreets/keg/contracts"
)

// Uninstall removes every path written by an installation and then every
// cleanup path. Paths that are already gone are not an error, so running it
// twice is harmless.
func Uninstall(record contracts.InstalledRecord, cleanupPaths []string, delete func(string) error) error {
	var failures []error
	for x := len(record.Paths) - 1; x >= 0; x-- {
		if err := delete(record.Paths[x]); err != nil {
			failures = append(failures, fmt.Errorf("removing %q: %w", record.Paths[x], err))
		}
	}
	for _, path := range cleanupPaths {
		if err := delete(path); err != nil {
			failures = append(failures, fmt.Errorf("removing %q: %w", path, err))
		}
	}
	return errors.Join(failures...)
}
