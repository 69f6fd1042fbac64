package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/smartystreets/keg/contracts"
)

type CatalogFileSystem interface {
	contracts.FileReader
	contracts.DirectoryLister
}

// Catalog is a directory of manifest files named after their identifiers.
type Catalog struct {
	fileSystem CatalogFileSystem
	root       string
}

func NewCatalog(fileSystem CatalogFileSystem, root string) *Catalog {
	return &Catalog{fileSystem: fileSystem, root: root}
}

func (this *Catalog) Load(identifier string) (contracts.PackageManifest, error) {
	if !identifierPattern.MatchString(identifier) {
		return contracts.PackageManifest{}, fmt.Errorf("%w: %q", contracts.ErrUnknownPackage, identifier)
	}
	for _, extension := range catalogExtensions {
		path := filepath.Join(this.root, identifier+extension)
		raw, err := this.fileSystem.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return contracts.PackageManifest{}, err
		}
		manifest, err := ParseManifest(catalogFormats[extension], raw)
		if err != nil {
			return contracts.PackageManifest{}, fmt.Errorf("%s: %w", path, err)
		}
		if manifest.Identifier != identifier {
			return contracts.PackageManifest{}, &contracts.ManifestError{
				Field:  "identifier",
				Reason: fmt.Sprintf("%s declares %q", path, manifest.Identifier),
			}
		}
		return manifest, nil
	}
	return contracts.PackageManifest{}, fmt.Errorf("%w: %q in %s", contracts.ErrUnknownPackage, identifier, this.root)
}

func (this *Catalog) Identifiers() ([]string, error) {
	names, err := this.fileSystem.ReadDir(this.root)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]struct{})
	for _, name := range names {
		extension := filepath.Ext(name)
		if _, found := catalogFormats[extension]; found {
			unique[strings.TrimSuffix(name, extension)] = struct{}{}
		}
	}
	identifiers := make([]string, 0, len(unique))
	for identifier := range unique {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers, nil
}

var (
	catalogExtensions = []string{".json", ".toml", ".yaml", ".yml"}
	catalogFormats    = map[string]ManifestFormat{
		".json": JSONManifest,
		".toml": TOMLManifest,
		".yaml": YAMLManifest,
		".yml":  YAMLManifest,
	}
)
