package core

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/smartystreets/keg/contracts"
)

const maxProbeResponseSize = 1 << 20

// LiveChecker asks a package's upstream which version is current. It never
// modifies anything and its failures are reported as warnings only.
type LiveChecker struct {
	downloader contracts.Downloader
	timeout    time.Duration
	logger     *log.Logger
}

func NewLiveChecker(downloader contracts.Downloader, timeout time.Duration, logger *log.Logger) *LiveChecker {
	return &LiveChecker{downloader: downloader, timeout: timeout, logger: logger}
}

func (this *LiveChecker) CheckForUpdate(ctx context.Context, manifest contracts.PackageManifest) (string, bool) {
	version, err := this.Probe(ctx, manifest)
	if err != nil {
		this.logger.Warn("live check failed", "package", manifest.Identifier, "version", manifest.Version, "err", err)
		return "", false
	}
	if version == "" {
		this.logger.Debug("no newer version found", "package", manifest.Identifier, "version", manifest.Version)
		return "", false
	}
	this.logger.Info("newer version available", "package", manifest.Identifier, "version", manifest.Version, "available", version)
	return version, true
}

// Probe returns the greatest version advertised upstream when it is newer
// than the manifest's version, or an empty string when it is not.
func (this *LiveChecker) Probe(ctx context.Context, manifest contracts.PackageManifest) (string, error) {
	check := manifest.LiveCheck
	if check == nil {
		return "", fmt.Errorf("%s declares no live check", manifest.Title())
	}
	pattern, err := compileVersionPattern(check.VersionPattern)
	if err != nil {
		return "", &contracts.ManifestError{Field: "live_check.version_pattern", Reason: err.Error()}
	}
	address, err := url.Parse(check.ProbeURL)
	if err != nil {
		return "", &contracts.ManifestError{Field: "live_check.probe_url", Reason: err.Error()}
	}

	if this.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, this.timeout)
		defer cancel()
	}
	body, err := this.downloader.Download(ctx, *address)
	if err != nil {
		return "", classifyFetchError(ctx, check.ProbeURL, err)
	}
	defer func() { _ = body.Close() }()

	response, err := io.ReadAll(io.LimitReader(body, maxProbeResponseSize))
	if err != nil {
		return "", classifyFetchError(ctx, check.ProbeURL, &contracts.NetworkError{Address: check.ProbeURL, Err: err})
	}

	greatest := ""
	for _, match := range pattern.FindAllStringSubmatch(string(response), -1) {
		candidate := match[1]
		if candidate == "" {
			continue
		}
		if greatest == "" || CompareVersions(candidate, greatest) > 0 {
			greatest = candidate
		}
	}
	if greatest == "" {
		return "", fmt.Errorf("pattern %q matched nothing at %s", check.VersionPattern, check.ProbeURL)
	}
	if CompareVersions(greatest, manifest.Version) <= 0 {
		return "", nil
	}
	return greatest, nil
}
