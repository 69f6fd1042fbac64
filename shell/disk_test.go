package shell

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
)

func TestDiskFileSystemFixture(t *testing.T) {
	gunit.Run(new(DiskFileSystemFixture), t)
}

type DiskFileSystemFixture struct {
	*gunit.Fixture

	root       string
	fileSystem *DiskFileSystem
}

func (this *DiskFileSystemFixture) Setup() {
	this.root, _ = os.MkdirTemp("", "keg-disk-")
	this.fileSystem = NewDiskFileSystem()
}

func (this *DiskFileSystemFixture) Teardown() {
	_ = os.RemoveAll(this.root)
}

func (this *DiskFileSystemFixture) path(parts ...string) string {
	return filepath.Join(append([]string{this.root}, parts...)...)
}

func (this *DiskFileSystemFixture) TestWriteFileCreatesParentsAndLeavesNoTemporaryFiles() {
	err := this.fileSystem.WriteFile(this.path("state", "bined.json"), []byte("{}"))

	this.So(err, should.BeNil)
	raw, _ := this.fileSystem.ReadFile(this.path("state", "bined.json"))
	this.So(string(raw), should.Equal, "{}")
	names, _ := this.fileSystem.ReadDir(this.path("state"))
	this.So(names, should.Resemble, []string{"bined.json"})
}

func (this *DiskFileSystemFixture) TestWriteFileReplacesExistingContent() {
	_ = this.fileSystem.WriteFile(this.path("bined.json"), []byte("old"))
	_ = this.fileSystem.WriteFile(this.path("bined.json"), []byte("new"))

	raw, _ := this.fileSystem.ReadFile(this.path("bined.json"))
	this.So(string(raw), should.Equal, "new")
}

func (this *DiskFileSystemFixture) TestCreateTempUsesPrefix() {
	temp, err := this.fileSystem.CreateTemp(this.root, ".download-")

	this.So(err, should.BeNil)
	_, _ = io.WriteString(temp, "partial")
	this.So(temp.Close(), should.BeNil)
	this.So(filepath.Dir(temp.Name()), should.Equal, this.root)
	this.So(strings.HasPrefix(filepath.Base(temp.Name()), ".download-"), should.BeTrue)
}

func (this *DiskFileSystemFixture) TestDeleteRemovesTreesAndToleratesMissingPaths() {
	_ = this.fileSystem.WriteFile(this.path("BinEd.app", "Contents", "Info.plist"), []byte("plist"))

	this.So(this.fileSystem.Delete(this.path("BinEd.app")), should.BeNil)
	this.So(this.fileSystem.Delete(this.path("BinEd.app")), should.BeNil)

	_, err := this.fileSystem.Stat(this.path("BinEd.app"))
	this.So(errors.Is(err, os.ErrNotExist), should.BeTrue)
}

func (this *DiskFileSystemFixture) TestReadDirIsSorted() {
	_ = this.fileSystem.WriteFile(this.path("catalog", "iterm2.json"), nil)
	_ = this.fileSystem.WriteFile(this.path("catalog", "bined.json"), nil)
	_ = this.fileSystem.MkdirAll(this.path("catalog", "drafts"))

	names, err := this.fileSystem.ReadDir(this.path("catalog"))

	this.So(err, should.BeNil)
	this.So(names, should.Resemble, []string{"bined.json", "drafts", "iterm2.json"})
}

func (this *DiskFileSystemFixture) TestCopyTreePreservesModesAndSymlinks() {
	source := this.path("mnt", "BinEd.app")
	_ = this.fileSystem.WriteFile(filepath.Join(source, "Contents", "Info.plist"), []byte("plist"))
	_ = this.fileSystem.WriteFile(filepath.Join(source, "Contents", "MacOS", "bined"), []byte("#!/bin/sh"))
	_ = os.Chmod(filepath.Join(source, "Contents", "MacOS", "bined"), 0755)
	_ = os.Symlink("MacOS/bined", filepath.Join(source, "Contents", "launcher"))
	target := this.path("Applications", ".keg-bined-BinEd.app")

	err := this.fileSystem.CopyTree(source, target)

	this.So(err, should.BeNil)
	raw, _ := this.fileSystem.ReadFile(filepath.Join(target, "Contents", "Info.plist"))
	this.So(string(raw), should.Equal, "plist")
	info, _ := this.fileSystem.Stat(filepath.Join(target, "Contents", "MacOS", "bined"))
	this.So(info.Mode().Perm(), should.Equal, os.FileMode(0755))
	link, _ := os.Readlink(filepath.Join(target, "Contents", "launcher"))
	this.So(link, should.Equal, "MacOS/bined")
}

func (this *DiskFileSystemFixture) TestCopyTreeOfSingleFile() {
	_ = this.fileSystem.WriteFile(this.path("cache", "tool"), []byte("binary"))

	err := this.fileSystem.CopyTree(this.path("cache", "tool"), this.path("bin", "tool"))

	this.So(err, should.BeNil)
	raw, _ := this.fileSystem.ReadFile(this.path("bin", "tool"))
	this.So(string(raw), should.Equal, "binary")
}

func (this *DiskFileSystemFixture) TestCopyTreeOfMissingSource() {
	err := this.fileSystem.CopyTree(this.path("missing"), this.path("target"))

	this.So(errors.Is(err, os.ErrNotExist), should.BeTrue)
}

func (this *DiskFileSystemFixture) TestRenameMovesDirectories() {
	_ = this.fileSystem.WriteFile(this.path("staging", "Info.plist"), []byte("plist"))

	err := this.fileSystem.Rename(this.path("staging"), this.path("BinEd.app"))

	this.So(err, should.BeNil)
	raw, _ := this.fileSystem.ReadFile(this.path("BinEd.app", "Info.plist"))
	this.So(string(raw), should.Equal, "plist")
}

func (this *DiskFileSystemFixture) TestStatDoesNotFollowSymlinks() {
	_ = os.Symlink("/nonexistent/target", this.path("dangling"))

	info, err := this.fileSystem.Stat(this.path("dangling"))

	this.So(err, should.BeNil)
	this.So(info.Mode()&os.ModeSymlink, should.Equal, os.ModeSymlink)
}
