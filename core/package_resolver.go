package core

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/smartystreets/keg/contracts"
)

type manifestResolver interface {
	Resolve(manifest contracts.PackageManifest) (contracts.ResolvedManifest, error)
}

type updateChecker interface {
	CheckForUpdate(ctx context.Context, manifest contracts.PackageManifest) (string, bool)
}

// PackageResolver drives one package through resolve, fetch, verify and
// install. A failure at any step leaves the package as it was before.
type PackageResolver struct {
	resolver        manifestResolver
	fetcher         contracts.Fetcher
	verifier        contracts.ArtifactVerifier
	installer       contracts.PackageInstaller
	records         contracts.RecordStore
	integrity       contracts.IntegrityCheck
	updates         updateChecker
	destinationRoot string
	logger          *log.Logger
}

func NewPackageResolver(
	resolver manifestResolver,
	fetcher contracts.Fetcher,
	verifier contracts.ArtifactVerifier,
	installer contracts.PackageInstaller,
	records contracts.RecordStore,
	integrity contracts.IntegrityCheck,
	updates updateChecker,
	destinationRoot string,
	logger *log.Logger,
) *PackageResolver {
	return &PackageResolver{
		resolver:        resolver,
		fetcher:         fetcher,
		verifier:        verifier,
		installer:       installer,
		records:         records,
		integrity:       integrity,
		updates:         updates,
		destinationRoot: destinationRoot,
		logger:          logger,
	}
}

// Install installs the manifest's version unless exactly that version is
// already installed and intact.
func (this *PackageResolver) Install(ctx context.Context, manifest contracts.PackageManifest) (contracts.InstalledRecord, error) {
	prior, err := this.loadPrior(manifest)
	if err != nil {
		return contracts.InstalledRecord{}, err
	}
	if this.isInstalledCorrectly(manifest, prior) {
		this.logger.Info("already installed", "package", manifest.Identifier, "version", manifest.Version)
		return *prior, nil
	}
	return this.install(ctx, manifest, prior)
}

// Upgrade installs the manifest's version when nothing, an older version or a
// damaged copy of the same version is installed. A newer installed version is
// left alone.
func (this *PackageResolver) Upgrade(ctx context.Context, manifest contracts.PackageManifest) (contracts.InstalledRecord, error) {
	prior, err := this.loadPrior(manifest)
	if err != nil {
		return contracts.InstalledRecord{}, err
	}
	if prior != nil && CompareVersions(prior.Version, manifest.Version) > 0 {
		this.logger.Info("installed version is newer", "package", manifest.Identifier, "version", manifest.Version, "installed", prior.Version)
		return *prior, nil
	}
	if this.isInstalledCorrectly(manifest, prior) {
		this.logger.Info("already up to date", "package", manifest.Identifier, "version", manifest.Version)
		return *prior, nil
	}
	return this.install(ctx, manifest, prior)
}

// Uninstall removes the recorded installation and the manifest's cleanup
// paths. Without a record only the cleanup paths are removed.
func (this *PackageResolver) Uninstall(_ context.Context, manifest contracts.PackageManifest) error {
	resolved, err := this.resolver.Resolve(manifest)
	if err != nil {
		return this.failure(contracts.PhaseResolve, manifest, err)
	}
	prior, err := this.loadPrior(manifest)
	if err != nil {
		return err
	}
	record := contracts.InstalledRecord{Identifier: manifest.Identifier}
	if prior != nil {
		record = *prior
	} else {
		this.logger.Info("not installed, removing cleanup paths only", "package", manifest.Identifier)
	}

	err = this.installer.Uninstall(record, resolved.ResolvedCleanupPaths)
	if err != nil {
		return this.failure(contracts.PhaseUninstall, manifest, err)
	}
	if prior != nil {
		err = this.records.Delete(manifest.Identifier)
		if err != nil {
			return this.failure(contracts.PhaseUninstall, manifest, err)
		}
	}
	this.logState(manifest, contracts.NotInstalled)
	return nil
}

func (this *PackageResolver) CheckForUpdate(ctx context.Context, manifest contracts.PackageManifest) (string, bool) {
	return this.updates.CheckForUpdate(ctx, manifest)
}

func (this *PackageResolver) install(ctx context.Context, manifest contracts.PackageManifest, prior *contracts.InstalledRecord) (contracts.InstalledRecord, error) {
	resolved, err := this.resolver.Resolve(manifest)
	if err != nil {
		return contracts.InstalledRecord{}, this.failure(contracts.PhaseResolve, manifest, err)
	}

	localPath, err := this.fetcher.Fetch(ctx, resolved)
	if err != nil {
		return contracts.InstalledRecord{}, this.failure(contracts.PhaseFetch, manifest, err)
	}
	this.logState(manifest, contracts.Fetched)

	artifact, err := this.verifier.Verify(localPath, manifest.Checksum)
	if err != nil {
		return contracts.InstalledRecord{}, this.failure(contracts.PhaseVerify, manifest, err)
	}
	this.logState(manifest, contracts.Verified)

	pending, err := this.installer.Install(contracts.InstallationRequest{
		Artifact:        artifact,
		Manifest:        resolved,
		DestinationRoot: this.destinationRoot,
		Prior:           prior,
	})
	if err != nil {
		return contracts.InstalledRecord{}, this.failure(contracts.PhaseInstall, manifest, err)
	}

	record := pending.Record()
	err = this.records.Save(record)
	if err != nil {
		pending.Abort()
		return contracts.InstalledRecord{}, this.failure(contracts.PhaseInstall, manifest, err)
	}
	pending.Commit()
	this.logState(manifest, contracts.Installed)
	return record, nil
}

func (this *PackageResolver) loadPrior(manifest contracts.PackageManifest) (*contracts.InstalledRecord, error) {
	record, err := this.records.Load(manifest.Identifier)
	if errors.Is(err, contracts.ErrNotInstalled) {
		return nil, nil
	}
	if err != nil {
		return nil, this.failure(contracts.PhaseLoad, manifest, err)
	}
	return &record, nil
}

func (this *PackageResolver) isInstalledCorrectly(manifest contracts.PackageManifest, prior *contracts.InstalledRecord) bool {
	if prior == nil {
		return false
	}
	err := this.integrity.Verify(manifest, *prior)
	if err != nil {
		this.logger.Info("existing installation will be replaced", "package", manifest.Identifier, "version", manifest.Version, "reason", err)
		return false
	}
	return true
}

func (this *PackageResolver) failure(phase contracts.Phase, manifest contracts.PackageManifest, err error) error {
	this.logger.Error(string(phase)+" failed", "package", manifest.Identifier, "version", manifest.Version, "err", err)
	return &contracts.PhaseError{Phase: phase, Package: manifest.Identifier, Err: err}
}

func (this *PackageResolver) logState(manifest contracts.PackageManifest, state contracts.InstallState) {
	this.logger.Info(string(state), "package", manifest.Identifier, "version", manifest.Version)
}
