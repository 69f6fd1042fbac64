package core

import (
	"errors"
	"testing"

	"github.com/smartystreets/assertions/should"
	"github.com/smartystreets/gunit"

	"github.com/smartystreets/keg/contracts"
)

func TestCompoundIntegrityCheckFixture(t *testing.T) {
	gunit.Run(new(CompoundIntegrityCheckFixture), t)
}

type CompoundIntegrityCheckFixture struct {
	*gunit.Fixture

	checker  *CompoundIntegrityCheck
	innerA   *FakeIntegrityCheck
	innerB   *FakeIntegrityCheck
	manifest contracts.PackageManifest
	record   contracts.InstalledRecord
}

func (this *CompoundIntegrityCheckFixture) Setup() {
	this.innerA = &FakeIntegrityCheck{}
	this.innerB = &FakeIntegrityCheck{}
	this.checker = NewCompoundIntegrityCheck(this.innerA, this.innerB)
	this.manifest = contracts.PackageManifest{Identifier: "bined"}
	this.record = contracts.InstalledRecord{Identifier: "bined", Paths: []string{"/Applications/BinEd.app"}}
}

func (this *CompoundIntegrityCheckFixture) TestAllInnerIntegrityTestsPass() {
	this.So(this.checker.Verify(this.manifest, this.record), should.BeNil)
}

func (this *CompoundIntegrityCheckFixture) TestAnyIntegrityTestsFail() {
	this.innerB.err = errors.New("test")

	this.So(this.checker.Verify(this.manifest, this.record), should.Equal, this.innerB.err)
	this.So(this.innerA.manifest, should.Resemble, this.manifest)
	this.So(this.innerA.record, should.Resemble, this.record)
	this.So(this.innerB.manifest, should.Resemble, this.manifest)
	this.So(this.innerB.record, should.Resemble, this.record)
}

func (this *CompoundIntegrityCheckFixture) TestFirstFailureStopsTheChain() {
	this.innerA.err = errors.New("test")

	this.So(this.checker.Verify(this.manifest, this.record), should.Equal, this.innerA.err)
	this.So(this.innerB.calls, should.Equal, 0)
}

//////////////////////////////////////////////////////////////////////

type FakeIntegrityCheck struct {
	err      error
	calls    int
	manifest contracts.PackageManifest
	record   contracts.InstalledRecord
}

func (this *FakeIntegrityCheck) Verify(manifest contracts.PackageManifest, record contracts.InstalledRecord) error {
	this.calls++
	this.manifest = manifest
	this.record = record
	return this.err
}
