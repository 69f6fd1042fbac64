package contracts

import (
	"fmt"
	"net/url"
)

type TargetKind string

const (
	ApplicationTarget TargetKind = "app"
)

type PackageManifest struct {
	Identifier     string          `json:"identifier" toml:"identifier" yaml:"identifier"`
	Version        string          `json:"version" toml:"version" yaml:"version"`
	DisplayName    string          `json:"display_name" toml:"display_name" yaml:"display_name"`
	Description    string          `json:"description" toml:"description" yaml:"description"`
	Homepage       string          `json:"homepage" toml:"homepage" yaml:"homepage"`
	DownloadURL    string          `json:"download_url" toml:"download_url" yaml:"download_url"`
	Checksum       string          `json:"checksum" toml:"checksum" yaml:"checksum"`
	InstallTargets []InstallTarget `json:"install_targets" toml:"install_targets" yaml:"install_targets"`
	CleanupPaths   []string        `json:"cleanup_paths" toml:"cleanup_paths" yaml:"cleanup_paths"`
	LiveCheck      *LiveCheck      `json:"live_check,omitempty" toml:"live_check,omitempty" yaml:"live_check,omitempty"`
}

type InstallTarget struct {
	SourcePath string     `json:"source_path" toml:"source_path" yaml:"source_path"`
	Kind       TargetKind `json:"kind" toml:"kind" yaml:"kind"`
}

type LiveCheck struct {
	ProbeURL       string `json:"probe_url" toml:"probe_url" yaml:"probe_url"`
	VersionPattern string `json:"version_pattern" toml:"version_pattern" yaml:"version_pattern"`
}

func (this PackageManifest) Title() string {
	return fmt.Sprintf("[%s @ %s]", this.Identifier, this.Version)
}

// ResolvedManifest is a PackageManifest whose templated fields have been
// expanded into concrete values.
type ResolvedManifest struct {
	PackageManifest
	ResolvedDownloadURL  url.URL
	ResolvedCleanupPaths []string
}
