package core

import (
	"errors"
	"fmt"
	"os"

	"github.com/smartystreets/keg/contracts"
)

type FileListingIntegrityChecker struct {
	fileSystem contracts.FileChecker
}

func NewFileListingIntegrityChecker(fileSystem contracts.FileChecker) *FileListingIntegrityChecker {
	return &FileListingIntegrityChecker{fileSystem: fileSystem}
}

func (this *FileListingIntegrityChecker) Verify(manifest contracts.PackageManifest, record contracts.InstalledRecord) error {
	if len(record.Paths) == 0 {
		return fmt.Errorf("no installed paths recorded for %s", manifest.Title())
	}
	for _, path := range record.Paths {
		_, err := this.fileSystem.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("installed path not found: %q", path)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
