package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/package-url/packageurl-go"

	"github.com/smartystreets/keg/contracts"
)

type InstallerFileSystem interface {
	contracts.FileChecker
	contracts.DirectoryMaker
	contracts.TreeCopier
	contracts.Renamer
	contracts.Deleter
}

// PackageInstaller places the install targets of a verified artifact into a
// destination root. Either every target is placed or none are.
type PackageInstaller struct {
	fileSystem InstallerFileSystem
	opener     contracts.ArtifactOpener
	claims     *PathClaims
	now        func() time.Time
	logger     *log.Logger
}

func NewPackageInstaller(
	fileSystem InstallerFileSystem,
	opener contracts.ArtifactOpener,
	claims *PathClaims,
	now func() time.Time,
	logger *log.Logger,
) *PackageInstaller {
	return &PackageInstaller{fileSystem: fileSystem, opener: opener, claims: claims, now: now, logger: logger}
}

// Install places every target. Paths the targets replaced are kept aside until
// the returned installation is committed.
func (this *PackageInstaller) Install(request contracts.InstallationRequest) (contracts.PendingInstallation, error) {
	manifest := request.Manifest
	for _, target := range manifest.InstallTargets {
		if target.Kind != contracts.ApplicationTarget {
			return nil, &contracts.TargetKindError{SourcePath: target.SourcePath, Kind: target.Kind}
		}
	}

	root, release, err := this.opener.Open(request.Artifact.Path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact %q: %w", request.Artifact.Path, err)
	}
	defer func() {
		if err := release(); err != nil {
			this.logger.Warn("releasing artifact failed", "package", manifest.Identifier, "artifact", request.Artifact.Path, "err", err)
		}
	}()

	plan, err := this.plan(root, request)
	if err != nil {
		return nil, err
	}
	unclaim, err := this.claims.Claim(manifest.Identifier, plan.destinations())
	if err != nil {
		return nil, err
	}
	defer unclaim()

	err = this.checkConflicts(plan, request.Prior)
	if err != nil {
		return nil, err
	}
	err = this.place(request.DestinationRoot, plan)
	if err != nil {
		return nil, err
	}

	record := contracts.InstalledRecord{
		Identifier:  manifest.Identifier,
		Version:     manifest.Version,
		Checksum:    request.Artifact.Checksum,
		PackageURL:  packageURL(manifest, request.Artifact.Checksum),
		State:       contracts.Installed,
		InstalledAt: this.now().UTC(),
		Paths:       plan.destinations(),
	}
	return &pendingInstallation{installer: this, plan: plan, prior: request.Prior, record: record}, nil
}

func (this *PackageInstaller) Uninstall(record contracts.InstalledRecord, cleanupPaths []string) error {
	return Uninstall(record, cleanupPaths, this.fileSystem.Delete)
}

func (this *PackageInstaller) plan(root string, request contracts.InstallationRequest) (plan placementPlan, err error) {
	identifier := request.Manifest.Identifier
	destinations := make(map[string]string)
	for _, target := range request.Manifest.InstallTargets {
		relative := filepath.Clean(filepath.FromSlash(target.SourcePath))
		if filepath.IsAbs(relative) || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
			return nil, &contracts.ManifestError{Field: "install_targets", Reason: fmt.Sprintf("%q escapes the artifact", target.SourcePath)}
		}
		source := filepath.Join(root, relative)
		_, err = this.fileSystem.Stat(source)
		if err != nil {
			return nil, fmt.Errorf("install target %q not found in artifact: %w", target.SourcePath, err)
		}

		name := filepath.Base(relative)
		destination := filepath.Join(request.DestinationRoot, name)
		if previous, found := destinations[destination]; found {
			return nil, &contracts.ConflictError{Existing: previous, Incoming: source}
		}
		destinations[destination] = source

		plan = append(plan, &placement{
			source:      source,
			destination: destination,
			staging:     filepath.Join(request.DestinationRoot, ".keg-"+identifier+"-"+name),
			backup:      filepath.Join(request.DestinationRoot, ".keg-prior-"+identifier+"-"+name),
		})
	}
	return plan, nil
}

// checkConflicts runs before anything is written. A destination that exists
// may only be replaced when the package's previous installation wrote it.
func (this *PackageInstaller) checkConflicts(plan placementPlan, prior *contracts.InstalledRecord) error {
	for _, item := range plan {
		_, err := this.fileSystem.Stat(item.destination)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		if prior != nil && prior.Owns(item.destination) {
			item.replacesPrior = true
			continue
		}
		return &contracts.ConflictError{Existing: item.destination, Incoming: item.source}
	}
	return nil
}

func (this *PackageInstaller) place(destinationRoot string, plan placementPlan) error {
	err := this.fileSystem.MkdirAll(destinationRoot)
	if err != nil {
		return err
	}
	for x, item := range plan {
		err = this.placeOne(item)
		if err != nil {
			this.rollback(plan[:x+1])
			return fmt.Errorf("placing %q: %w", item.destination, err)
		}
		this.logger.Debug("placed install target", "source", item.source, "destination", item.destination)
	}
	return nil
}

func (this *PackageInstaller) placeOne(item *placement) error {
	_ = this.fileSystem.Delete(item.staging)
	err := this.fileSystem.CopyTree(item.source, item.staging)
	if err != nil {
		return err
	}
	if item.replacesPrior {
		_ = this.fileSystem.Delete(item.backup)
		err = this.fileSystem.Rename(item.destination, item.backup)
		if err != nil {
			return err
		}
		item.movedAside = true
	}
	err = this.fileSystem.Rename(item.staging, item.destination)
	if err != nil {
		return err
	}
	item.placed = true
	return nil
}

// rollback undoes placements newest first and puts moved-aside paths back.
func (this *PackageInstaller) rollback(plan placementPlan) {
	for x := len(plan) - 1; x >= 0; x-- {
		item := plan[x]
		if item.placed {
			this.warnOnFailure(this.fileSystem.Delete(item.destination), item.destination)
		}
		this.warnOnFailure(this.fileSystem.Delete(item.staging), item.staging)
		if item.movedAside {
			this.warnOnFailure(this.fileSystem.Rename(item.backup, item.destination), item.destination)
		}
	}
}

func (this *PackageInstaller) warnOnFailure(err error, path string) {
	if err != nil {
		this.logger.Warn("cleanup failed", "path", path, "err", err)
	}
}

func packageURL(manifest contracts.ResolvedManifest, checksum string) string {
	qualifiers := packageurl.QualifiersFromMap(map[string]string{
		"download_url": manifest.ResolvedDownloadURL.String(),
		"checksum":     "sha256:" + checksum,
	})
	return packageurl.NewPackageURL(packageurl.TypeGeneric, "", manifest.Identifier, manifest.Version, qualifiers, "").ToString()
}

// pendingInstallation keeps the moved-aside prior paths until Commit.
type pendingInstallation struct {
	installer *PackageInstaller
	plan      placementPlan
	prior     *contracts.InstalledRecord
	record    contracts.InstalledRecord
}

func (this *pendingInstallation) Record() contracts.InstalledRecord {
	return this.record
}

func (this *pendingInstallation) Commit() {
	for _, item := range this.plan {
		if item.movedAside {
			this.installer.warnOnFailure(this.installer.fileSystem.Delete(item.backup), item.backup)
		}
	}
	if this.prior == nil {
		return
	}
	for _, path := range this.prior.Paths {
		if !this.record.Owns(path) {
			this.installer.warnOnFailure(this.installer.fileSystem.Delete(path), path)
		}
	}
}

func (this *pendingInstallation) Abort() {
	this.installer.rollback(this.plan)
}

type placement struct {
	source      string
	destination string
	staging     string
	backup      string

	replacesPrior bool
	movedAside    bool
	placed        bool
}

type placementPlan []*placement

func (this placementPlan) destinations() (paths []string) {
	for _, item := range this {
		paths = append(paths, item.destination)
	}
	return paths
}

// PathClaims keeps concurrent installations in one process from writing the
// same destination.
type PathClaims struct {
	lock    sync.Mutex
	claimed map[string]string
}

func NewPathClaims() *PathClaims {
	return &PathClaims{claimed: make(map[string]string)}
}

func (this *PathClaims) Claim(owner string, paths []string) (release func(), err error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	for _, path := range paths {
		if holder, found := this.claimed[path]; found {
			return nil, &contracts.ConflictError{Existing: path, Incoming: path, Owner: holder}
		}
	}
	for _, path := range paths {
		this.claimed[path] = owner
	}
	return func() {
		this.lock.Lock()
		defer this.lock.Unlock()
		for _, path := range paths {
			if this.claimed[path] == owner {
				delete(this.claimed, path)
			}
		}
	}, nil
}
