package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/smartystreets/keg/contracts"
)

type RecordStoreFileSystem interface {
	contracts.FileReader
	contracts.FileWriter
	contracts.Deleter
	contracts.DirectoryMaker
	contracts.DirectoryLister
}

// FileRecordStore keeps one JSON document per installed package.
type FileRecordStore struct {
	fileSystem RecordStoreFileSystem
	root       string
}

func NewFileRecordStore(fileSystem RecordStoreFileSystem, root string) *FileRecordStore {
	return &FileRecordStore{fileSystem: fileSystem, root: root}
}

func (this *FileRecordStore) Load(identifier string) (record contracts.InstalledRecord, err error) {
	path := this.path(identifier)
	raw, err := this.fileSystem.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return contracts.InstalledRecord{}, fmt.Errorf("%w: %s", contracts.ErrNotInstalled, identifier)
	}
	if err != nil {
		return contracts.InstalledRecord{}, err
	}
	err = json.Unmarshal(raw, &record)
	if err == nil {
		return record, nil
	}
	return contracts.InstalledRecord{}, fmt.Errorf(
		"existing record found but malformed at %q (%s);"+
			" the corresponding package must be removed manually"+
			" before %q can be installed again",
		path, err, identifier)
}

func (this *FileRecordStore) Save(record contracts.InstalledRecord) error {
	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	err = this.fileSystem.MkdirAll(this.root)
	if err != nil {
		return err
	}
	return this.fileSystem.WriteFile(this.path(record.Identifier), raw)
}

func (this *FileRecordStore) Delete(identifier string) error {
	return this.fileSystem.Delete(this.path(identifier))
}

func (this *FileRecordStore) List() (records []contracts.InstalledRecord, err error) {
	names, err := this.fileSystem.ReadDir(this.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if filepath.Ext(name) != recordExtension {
			continue
		}
		record, err := this.Load(strings.TrimSuffix(name, recordExtension))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (this *FileRecordStore) path(identifier string) string {
	return filepath.Join(this.root, identifier+recordExtension)
}

const recordExtension = ".json"
