package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/smartystreets/keg/contracts"
)

type ManifestFormat string

const (
	JSONManifest ManifestFormat = "json"
	TOMLManifest ManifestFormat = "toml"
	YAMLManifest ManifestFormat = "yaml"
)

func ParseManifest(format ManifestFormat, raw []byte) (manifest contracts.PackageManifest, err error) {
	switch format {
	case JSONManifest:
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.DisallowUnknownFields()
		err = decoder.Decode(&manifest)
	case TOMLManifest:
		err = toml.Unmarshal(raw, &manifest)
	case YAMLManifest:
		err = yaml.Unmarshal(raw, &manifest)
	default:
		return contracts.PackageManifest{}, &contracts.ManifestError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format)}
	}
	if err != nil {
		return contracts.PackageManifest{}, &contracts.ManifestError{Field: "document", Reason: err.Error()}
	}

	manifest.Checksum = strings.ToLower(strings.TrimSpace(manifest.Checksum))
	err = ValidateManifest(manifest)
	if err != nil {
		return contracts.PackageManifest{}, err
	}
	return manifest, nil
}

func ValidateManifest(manifest contracts.PackageManifest) error {
	if !identifierPattern.MatchString(manifest.Identifier) {
		return &contracts.ManifestError{Field: "identifier", Reason: fmt.Sprintf("%q is not a valid identifier", manifest.Identifier)}
	}
	if strings.TrimSpace(manifest.Version) == "" {
		return &contracts.ManifestError{Field: "version", Reason: "version is required"}
	}
	if manifest.DownloadURL == "" {
		return &contracts.ManifestError{Field: "download_url", Reason: "download url is required"}
	}
	if !checksumPattern.MatchString(manifest.Checksum) {
		return &contracts.ManifestError{Field: "checksum", Reason: fmt.Sprintf("expected %d hex characters", checksumLength)}
	}
	if manifest.Homepage != "" && !isAbsoluteURL(manifest.Homepage) {
		return &contracts.ManifestError{Field: "homepage", Reason: fmt.Sprintf("%q is not an absolute url", manifest.Homepage)}
	}
	if len(manifest.InstallTargets) == 0 {
		return &contracts.ManifestError{Field: "install_targets", Reason: "at least one install target is required"}
	}
	for i, target := range manifest.InstallTargets {
		if strings.TrimSpace(target.SourcePath) == "" {
			return &contracts.ManifestError{Field: fmt.Sprintf("install_targets[%d].source_path", i), Reason: "source path is required"}
		}
		if target.Kind == "" {
			return &contracts.ManifestError{Field: fmt.Sprintf("install_targets[%d].kind", i), Reason: "kind is required"}
		}
	}
	for i, path := range manifest.CleanupPaths {
		if strings.TrimSpace(path) == "" {
			return &contracts.ManifestError{Field: fmt.Sprintf("cleanup_paths[%d]", i), Reason: "path is empty"}
		}
	}
	if manifest.LiveCheck != nil {
		return validateLiveCheck(manifest)
	}
	return nil
}

func validateLiveCheck(manifest contracts.PackageManifest) error {
	check := manifest.LiveCheck
	if !isAbsoluteURL(check.ProbeURL) {
		return &contracts.ManifestError{Field: "live_check.probe_url", Reason: fmt.Sprintf("%q is not an absolute url", check.ProbeURL)}
	}
	pattern, err := compileVersionPattern(check.VersionPattern)
	if err != nil {
		return &contracts.ManifestError{Field: "live_check.version_pattern", Reason: err.Error()}
	}
	if pattern.NumSubexp() != 1 {
		return &contracts.ManifestError{
			Field:  "live_check.version_pattern",
			Reason: fmt.Sprintf("expected exactly one capture group, found %d", pattern.NumSubexp()),
		}
	}
	match := pattern.FindStringSubmatch(manifest.Version)
	if len(match) != 2 || match[1] != manifest.Version {
		return &contracts.ManifestError{
			Field:  "live_check.version_pattern",
			Reason: fmt.Sprintf("pattern does not extract the declared version %q", manifest.Version),
		}
	}
	return nil
}

// compileVersionPattern treats ^ and $ as line anchors so that a pattern can
// be applied to a multi-line probe response.
func compileVersionPattern(expression string) (*regexp.Regexp, error) {
	if expression == "" {
		return nil, fmt.Errorf("pattern is required")
	}
	return regexp.Compile("(?m)" + expression)
}

func isAbsoluteURL(raw string) bool {
	address, err := url.Parse(raw)
	return err == nil && address.Scheme != "" && (address.Host != "" || address.Scheme == "file")
}

const checksumLength = 64

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
	checksumPattern   = regexp.MustCompile(fmt.Sprintf("^[0-9a-f]{%d}$", checksumLength))
)
