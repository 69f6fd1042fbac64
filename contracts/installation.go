package contracts

import (
	"context"
	"time"
)

type InstallState string

const (
	NotInstalled InstallState = "not-installed"
	Fetched      InstallState = "fetched"
	Verified     InstallState = "verified"
	Installed    InstallState = "installed"
)

type VerifiedArtifact struct {
	Path     string
	Checksum string
}

// InstalledRecord lists every path written while installing a package so the
// installation can be reversed.
type InstalledRecord struct {
	Identifier  string       `json:"identifier"`
	Version     string       `json:"version"`
	Checksum    string       `json:"checksum"`
	PackageURL  string       `json:"package_url,omitempty"`
	State       InstallState `json:"state"`
	InstalledAt time.Time    `json:"installed_at"`
	Paths       []string     `json:"paths"`
}

func (this InstalledRecord) Owns(path string) bool {
	for _, item := range this.Paths {
		if item == path {
			return true
		}
	}
	return false
}

type InstallationRequest struct {
	Artifact        VerifiedArtifact
	Manifest        ResolvedManifest
	DestinationRoot string
	Prior           *InstalledRecord
}

type Fetcher interface {
	Fetch(ctx context.Context, manifest ResolvedManifest) (localPath string, err error)
}

type ArtifactVerifier interface {
	Verify(localPath, expectedChecksum string) (VerifiedArtifact, error)
}

type IntegrityCheck interface {
	Verify(manifest PackageManifest, record InstalledRecord) error
}

// PendingInstallation holds placed install targets until their record has
// been persisted. Commit discards whatever the targets replaced; Abort removes
// the targets and puts the replaced paths back.
type PendingInstallation interface {
	Record() InstalledRecord
	Commit()
	Abort()
}

type PackageInstaller interface {
	Install(request InstallationRequest) (PendingInstallation, error)
	Uninstall(record InstalledRecord, cleanupPaths []string) error
}

// ArtifactOpener exposes the contents of a fetched artifact as a directory.
// The returned release function undoes whatever opening required (removing an
// extraction directory, detaching a disk image).
type ArtifactOpener interface {
	Open(artifactPath string) (root string, release func() error, err error)
}

type RecordStore interface {
	Load(identifier string) (InstalledRecord, error)
	Save(record InstalledRecord) error
	Delete(identifier string) error
	List() ([]InstalledRecord, error)
}
