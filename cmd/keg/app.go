package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/smartystreets/keg/contracts"
	"github.com/smartystreets/keg/core"
	"github.com/smartystreets/keg/shell"
)

type App struct {
	catalog  *core.Catalog
	records  *core.FileRecordStore
	resolver *core.PackageResolver
	logger   *log.Logger

	lock   sync.Mutex
	output io.Writer
}

func NewApp(config Config, home string, output io.Writer, logger *log.Logger) *App {
	disk := shell.NewDiskFileSystem()
	downloader := shell.NewHTTPDownloader(shell.NewHTTPClient(), "keg/"+ldflagsSoftwareVersion, logger)
	retry := core.NewRetryClient(downloader, config.MaxRetry, core.Sleep, logger)
	records := core.NewFileRecordStore(disk, config.State)
	installer := core.NewPackageInstaller(
		disk,
		shell.NewArtifactOpener(filepath.Join(config.Cache, ".scratch")),
		core.NewPathClaims(),
		time.Now,
		logger,
	)
	integrity := core.NewCompoundIntegrityCheck(
		core.NewVersionIntegrityCheck(),
		core.NewFileListingIntegrityChecker(disk),
	)
	resolver := core.NewPackageResolver(
		core.NewManifestResolver(home),
		core.NewArtifactFetcher(retry, disk, config.Cache, config.Timeout, logger),
		core.NewChecksumVerifier(sha256.New, disk),
		installer,
		records,
		integrity,
		core.NewLiveChecker(downloader, config.Timeout, logger),
		config.Applications,
		logger,
	)
	return &App{
		catalog:  core.NewCatalog(disk, config.Catalog),
		records:  records,
		resolver: resolver,
		logger:   logger,
		output:   output,
	}
}

func (this *App) Install(ctx context.Context, identifiers []string) error {
	return this.each(ctx, identifiers, func(ctx context.Context, manifest contracts.PackageManifest) error {
		record, err := this.resolver.Install(ctx, manifest)
		if err == nil {
			this.printf("%s %s installed\n", record.Identifier, record.Version)
		}
		return err
	})
}

func (this *App) Upgrade(ctx context.Context, identifiers []string) error {
	return this.each(ctx, identifiers, func(ctx context.Context, manifest contracts.PackageManifest) error {
		record, err := this.resolver.Upgrade(ctx, manifest)
		if err == nil {
			this.printf("%s %s installed\n", record.Identifier, record.Version)
		}
		return err
	})
}

func (this *App) Uninstall(ctx context.Context, identifiers []string) error {
	return this.each(ctx, identifiers, func(ctx context.Context, manifest contracts.PackageManifest) error {
		err := this.resolver.Uninstall(ctx, manifest)
		if err == nil {
			this.printf("%s uninstalled\n", manifest.Identifier)
		}
		return err
	})
}

// CheckForUpdate never fails for a package that loads; probe problems are
// only logged.
func (this *App) CheckForUpdate(ctx context.Context, identifiers []string) error {
	return this.each(ctx, identifiers, func(ctx context.Context, manifest contracts.PackageManifest) error {
		if latest, found := this.resolver.CheckForUpdate(ctx, manifest); found {
			this.printf("%s %s -> %s\n", manifest.Identifier, manifest.Version, latest)
		} else {
			this.printf("%s %s up to date\n", manifest.Identifier, manifest.Version)
		}
		return nil
	})
}

// List prints installed packages; with no identifiers every record is listed.
func (this *App) List(identifiers []string) error {
	records, err := this.records.List()
	if err != nil {
		return err
	}
	for _, record := range core.Filter(records, identifiers) {
		this.printf("%s %s %s %s\n", record.Identifier, record.Version, record.State, record.InstalledAt.Format(time.RFC3339))
	}
	return nil
}

// Available prints the identifiers present in the catalog.
func (this *App) Available() error {
	identifiers, err := this.catalog.Identifiers()
	if err != nil {
		return err
	}
	for _, identifier := range identifiers {
		this.printf("%s\n", identifier)
	}
	return nil
}

// each runs operation once for every distinct identifier concurrently and
// gathers the failures. One failure does not stop another.
func (this *App) each(ctx context.Context, identifiers []string, operation func(context.Context, contracts.PackageManifest) error) error {
	identifiers = distinct(identifiers)
	waiter := new(sync.WaitGroup)
	waiter.Add(len(identifiers))
	results := make(chan error)

	for _, identifier := range identifiers {
		go func(identifier string) {
			defer waiter.Done()
			manifest, err := this.catalog.Load(identifier)
			if err != nil {
				results <- &contracts.PhaseError{Phase: contracts.PhaseLoad, Package: identifier, Err: err}
				return
			}
			if err = operation(ctx, manifest); err != nil {
				results <- err
			}
		}(identifier)
	}
	go func() {
		waiter.Wait()
		close(results)
	}()

	var failures []error
	for err := range results {
		this.logger.Warn(err)
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		this.logger.Warn(fmt.Sprintf("%d of %d packages failed", len(failures), len(identifiers)))
	}
	return errors.Join(failures...)
}

// distinct keeps the first occurrence of each identifier, in order.
func distinct(identifiers []string) (unique []string) {
	seen := make(map[string]struct{}, len(identifiers))
	for _, identifier := range identifiers {
		if _, found := seen[identifier]; found {
			continue
		}
		seen[identifier] = struct{}{}
		unique = append(unique, identifier)
	}
	return unique
}

func (this *App) printf(format string, args ...interface{}) {
	this.lock.Lock()
	defer this.lock.Unlock()
	_, _ = fmt.Fprintf(this.output, format, args...)
}
