package shell

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mholt/archiver"
)

// ArtifactOpener exposes a fetched artifact as a directory: disk images are
// attached with hdiutil, archives are extracted into a scratch directory and
// anything else is treated as a bare file in its cache directory.
type ArtifactOpener struct {
	scratch string
	run     func(name string, args ...string) ([]byte, error)
}

func NewArtifactOpener(scratch string) *ArtifactOpener {
	return &ArtifactOpener{scratch: scratch, run: runCommand}
}

func (this *ArtifactOpener) Open(artifactPath string) (string, func() error, error) {
	if strings.EqualFold(filepath.Ext(artifactPath), ".dmg") {
		return this.attach(artifactPath)
	}
	format, err := this.format(artifactPath)
	if err != nil {
		return filepath.Dir(artifactPath), func() error { return nil }, nil
	}
	return this.extract(artifactPath, format)
}

func (this *ArtifactOpener) format(artifactPath string) (interface{}, error) {
	format, err := archiver.ByExtension(filepath.Base(artifactPath))
	if err == nil {
		return format, nil
	}
	file, err := os.Open(artifactPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return archiver.ByHeader(file)
}

func (this *ArtifactOpener) extract(artifactPath string, format interface{}) (string, func() error, error) {
	err := os.MkdirAll(this.scratch, 0755)
	if err != nil {
		return "", nil, err
	}
	workspace, err := os.MkdirTemp(this.scratch, "extract-")
	if err != nil {
		return "", nil, err
	}
	release := func() error { return os.RemoveAll(workspace) }

	switch format := format.(type) {
	case archiver.Unarchiver:
		err = format.Unarchive(artifactPath, workspace)
	case archiver.Decompressor:
		name := strings.TrimSuffix(filepath.Base(artifactPath), filepath.Ext(artifactPath))
		err = archiver.DecompressFile(artifactPath, filepath.Join(workspace, name))
	default:
		err = fmt.Errorf("no extractor for %T", format)
	}
	if err != nil {
		_ = release()
		return "", nil, fmt.Errorf("extracting %q: %w", artifactPath, err)
	}
	return workspace, release, nil
}

func (this *ArtifactOpener) attach(artifactPath string) (string, func() error, error) {
	err := os.MkdirAll(this.scratch, 0755)
	if err != nil {
		return "", nil, err
	}
	mountPoint, err := os.MkdirTemp(this.scratch, "mount-")
	if err != nil {
		return "", nil, err
	}
	output, err := this.run("hdiutil", "attach", "-nobrowse", "-readonly", "-noautoopen", "-mountpoint", mountPoint, artifactPath)
	if err != nil {
		_ = os.Remove(mountPoint)
		return "", nil, fmt.Errorf("hdiutil attach %q: %w: %s", artifactPath, err, bytes.TrimSpace(output))
	}
	release := func() error {
		output, err := this.run("hdiutil", "detach", mountPoint, "-quiet")
		if err != nil {
			return fmt.Errorf("hdiutil detach %q: %w: %s", mountPoint, err, bytes.TrimSpace(output))
		}
		return os.Remove(mountPoint)
	}
	return mountPoint, release, nil
}

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}
