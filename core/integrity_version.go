package core

import (
	"errors"

	"github.com/smartystreets/keg/contracts"
)

// VersionIntegrityCheck passes only when the record describes a completed
// installation of exactly the manifest's version and artifact.
type VersionIntegrityCheck struct{}

func NewVersionIntegrityCheck() *VersionIntegrityCheck {
	return &VersionIntegrityCheck{}
}

func (this *VersionIntegrityCheck) Verify(manifest contracts.PackageManifest, record contracts.InstalledRecord) error {
	if record.State != contracts.Installed {
		return errIncompleteInstallation
	}
	if record.Identifier != manifest.Identifier || record.Version != manifest.Version {
		return errVersionMismatch
	}
	if record.Checksum != manifest.Checksum {
		return errChecksumChanged
	}
	return nil
}

var (
	errIncompleteInstallation = errors.New("installation incomplete")
	errVersionMismatch        = errors.New("version mismatch")
	errChecksumChanged        = errors.New("artifact checksum changed")
)
