package core

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/smartystreets/keg/contracts"
)

type ManifestResolver struct {
	home string
}

func NewManifestResolver(home string) *ManifestResolver {
	return &ManifestResolver{home: home}
}

func (this *ManifestResolver) Resolve(manifest contracts.PackageManifest) (contracts.ResolvedManifest, error) {
	variables := this.variables(manifest)

	rawURL, unbound := Expand(manifest.DownloadURL, variables)
	if unbound != "" {
		return contracts.ResolvedManifest{}, &contracts.TemplateError{Field: "download_url", Placeholder: unbound}
	}
	address, err := parseDownloadURL(rawURL)
	if err != nil {
		return contracts.ResolvedManifest{}, err
	}

	cleanup := make([]string, 0, len(manifest.CleanupPaths))
	for i, template := range manifest.CleanupPaths {
		path, unbound := Expand(this.expandHome(template), variables)
		if unbound != "" {
			return contracts.ResolvedManifest{}, &contracts.TemplateError{
				Field:       fmt.Sprintf("cleanup_paths[%d]", i),
				Placeholder: unbound,
			}
		}
		cleanup = append(cleanup, filepath.Clean(path))
	}

	return contracts.ResolvedManifest{
		PackageManifest:      manifest,
		ResolvedDownloadURL:  *address,
		ResolvedCleanupPaths: cleanup,
	}, nil
}

func (this *ManifestResolver) variables(manifest contracts.PackageManifest) map[string]string {
	variables := map[string]string{
		"version":    manifest.Version,
		"identifier": manifest.Identifier,
	}
	if this.home != "" {
		variables["home"] = this.home
	}
	return variables
}

func (this *ManifestResolver) expandHome(path string) string {
	if path == "~" {
		return "{home}"
	}
	if strings.HasPrefix(path, "~/") {
		return "{home}/" + path[2:]
	}
	return path
}

func parseDownloadURL(raw string) (*url.URL, error) {
	address, err := url.Parse(raw)
	if err != nil {
		return nil, &contracts.ManifestError{Field: "download_url", Reason: err.Error()}
	}
	switch address.Scheme {
	case "http", "https":
		if address.Host == "" {
			return nil, &contracts.ManifestError{Field: "download_url", Reason: fmt.Sprintf("%q has no host", raw)}
		}
	case "file":
	default:
		return nil, &contracts.ManifestError{Field: "download_url", Reason: fmt.Sprintf("%q is not an http(s) or file url", raw)}
	}
	return address, nil
}
