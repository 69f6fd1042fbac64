package core

import "github.com/smartystreets/keg/contracts"

type CompoundIntegrityCheck struct {
	inners []contracts.IntegrityCheck
}

func NewCompoundIntegrityCheck(inners ...contracts.IntegrityCheck) *CompoundIntegrityCheck {
	return &CompoundIntegrityCheck{inners: inners}
}

func (this *CompoundIntegrityCheck) Verify(manifest contracts.PackageManifest, record contracts.InstalledRecord) error {
	for _, inner := range this.inners {
		err := inner.Verify(manifest, record)
		if err != nil {
			return err
		}
	}
	return nil
}
