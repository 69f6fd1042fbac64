package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mholt/archiver"
	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"
)

func TestKegFixture(t *testing.T) {
	gunit.Run(new(KegFixture), t)
}

type KegFixture struct {
	*gunit.Fixture

	root     string
	checksum string
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func (this *KegFixture) Setup() {
	this.root, _ = os.MkdirTemp("", "keg-main-")
	this.stdout = new(bytes.Buffer)
	this.stderr = new(bytes.Buffer)

	bundle := this.path("build", "BinEd.app", "Contents")
	_ = os.MkdirAll(bundle, 0755)
	_ = os.WriteFile(filepath.Join(bundle, "Info.plist"), []byte("plist"), 0644)
	_ = os.MkdirAll(this.path("dist"), 0755)
	err := archiver.Archive([]string{this.path("build", "BinEd.app")}, this.path("dist", "bined-0.2.3.zip"))
	this.So(err, should.BeNil)

	raw, _ := os.ReadFile(this.path("dist", "bined-0.2.3.zip"))
	sum := sha256.Sum256(raw)
	this.checksum = hex.EncodeToString(sum[:])

	_ = os.MkdirAll(this.path("prefs"), 0755)
	_ = os.WriteFile(this.path("prefs", "org.exbin.bined.plist"), []byte("prefs"), 0644)
	_ = os.MkdirAll(this.path("catalog"), 0755)
	this.writeManifest("bined", this.checksum)
	_ = os.WriteFile(this.path("keg.toml"), []byte("max-retry = 0\n"), 0644)
}

func (this *KegFixture) Teardown() {
	_ = os.RemoveAll(this.root)
}

func (this *KegFixture) path(elements ...string) string {
	return filepath.Join(append([]string{this.root}, elements...)...)
}

func (this *KegFixture) writeManifest(identifier, checksum string) {
	manifest := fmt.Sprintf(`{
  "identifier": %q,
  "version": "0.2.3",
  "display_name": "BinEd",
  "download_url": "file://%s/bined-{version}.zip",
  "checksum": %q,
  "install_targets": [{"source_path": "BinEd.app", "kind": "app"}],
  "cleanup_paths": [%q]
}`, identifier, this.path("dist"), checksum, this.path("prefs", "org.exbin.bined.plist"))
	_ = os.WriteFile(this.path("catalog", identifier+".json"), []byte(manifest), 0644)
}

func (this *KegFixture) keg(args ...string) int {
	this.stdout.Reset()
	return run(context.Background(), append([]string{
		"--config", this.path("keg.toml"),
		"--catalog", this.path("catalog"),
		"--applications", this.path("Applications"),
		"--state", this.path("state"),
		"--cache", this.path("cache"),
	}, args...), this.stdout, this.stderr)
}

func (this *KegFixture) exists(elements ...string) bool {
	_, err := os.Stat(this.path(elements...))
	return err == nil
}

func (this *KegFixture) TestVersion() {
	code := this.keg("version")

	this.So(code, should.Equal, 0)
	this.So(this.stdout.String(), should.Equal, "keg [debug]\n")
}

func (this *KegFixture) TestInstallListUninstall() {
	this.So(this.keg("install", "bined"), should.Equal, 0)
	this.So(this.stdout.String(), should.Equal, "bined 0.2.3 installed\n")
	this.So(this.exists("Applications", "BinEd.app", "Contents", "Info.plist"), should.BeTrue)
	this.So(this.exists("state", "bined.json"), should.BeTrue)

	this.So(this.keg("list"), should.Equal, 0)
	this.So(this.stdout.String(), should.StartWith, "bined 0.2.3 installed ")

	this.So(this.keg("install", "bined"), should.Equal, 0)
	this.So(this.stderr.String(), should.ContainSubstring, "already installed")

	this.So(this.keg("uninstall", "bined"), should.Equal, 0)
	this.So(this.stdout.String(), should.Equal, "bined uninstalled\n")
	this.So(this.exists("Applications", "BinEd.app"), should.BeFalse)
	this.So(this.exists("prefs", "org.exbin.bined.plist"), should.BeFalse)
	this.So(this.exists("state", "bined.json"), should.BeFalse)
}

func (this *KegFixture) TestAvailable() {
	this.writeManifest("hexedit", this.checksum)

	this.So(this.keg("available"), should.Equal, 0)
	this.So(this.stdout.String(), should.Equal, "bined\nhexedit\n")
}

func (this *KegFixture) TestChecksumMismatchInstallsNothing() {
	this.writeManifest("bined", strings.Repeat("0", 64))

	code := this.keg("install", "bined")

	this.So(code, should.Equal, 3)
	this.So(this.exists("Applications", "BinEd.app"), should.BeFalse)
	this.So(this.exists("state", "bined.json"), should.BeFalse)
}

func (this *KegFixture) TestMalformedManifest() {
	this.writeManifest("bined", "not-a-checksum")

	this.So(this.keg("install", "bined"), should.Equal, 5)
}

func (this *KegFixture) TestUnknownPackage() {
	this.So(this.keg("install", "nope"), should.Equal, 1)
}

func (this *KegFixture) TestMissingDownload() {
	_ = os.Remove(this.path("dist", "bined-0.2.3.zip"))

	this.So(this.keg("install", "bined"), should.Equal, 2)
}

func (this *KegFixture) TestOneFailureDoesNotStopOthers() {
	code := this.keg("install", "bined", "nope")

	this.So(code, should.Equal, 1)
	this.So(this.exists("Applications", "BinEd.app"), should.BeTrue)
}

func (this *KegFixture) TestRepeatedIdentifierInstallsOnce() {
	code := this.keg("install", "bined", "bined")

	this.So(code, should.Equal, 0)
	this.So(this.stdout.String(), should.Equal, "bined 0.2.3 installed\n")
	this.So(this.stderr.String(), should.NotContainSubstring, "already installed")
	this.So(this.exists("Applications", "BinEd.app", "Contents", "Info.plist"), should.BeTrue)
}

func (this *KegFixture) TestDistinctKeepsFirstOccurrenceOrder() {
	this.So(distinct([]string{"b", "a", "b", "c", "a"}), should.Resemble, []string{"b", "a", "c"})
}

func (this *KegFixture) TestIdentifiersRequired() {
	this.So(this.keg("install"), should.Equal, 1)
}
