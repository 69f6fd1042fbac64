package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/smartystreets/keg/contracts"
)

type inMemoryFileSystem struct {
	lock        sync.Mutex
	fileSystem  map[string]*file
	directories map[string]struct{}
	tempCounter int

	errReadFile map[string]error
	errRename   map[string]error
	errCopyTree map[string]error
	errCreate   error
	deleted     []string
}

func newInMemoryFileSystem() *inMemoryFileSystem {
	return &inMemoryFileSystem{
		fileSystem:  make(map[string]*file),
		directories: make(map[string]struct{}),
		errReadFile: make(map[string]error),
		errRename:   make(map[string]error),
		errCopyTree: make(map[string]error),
	}
}

func (this *inMemoryFileSystem) Open(name string) (io.ReadCloser, error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	target, found := this.fileSystem[name]
	if !found {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(target.contents)), nil
}

func (this *inMemoryFileSystem) CreateTemp(dir, prefix string) (contracts.TempFile, error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	if this.errCreate != nil {
		return nil, this.errCreate
	}
	this.tempCounter++
	name := path.Join(dir, fmt.Sprintf("%s%d", prefix, this.tempCounter))
	created := &file{path: name, mod: InMemoryModTime, mode: 0644}
	this.fileSystem[name] = created
	return &tempFile{file: created}, nil
}

func (this *inMemoryFileSystem) ReadFile(name string) ([]byte, error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	target, found := this.fileSystem[name]
	if !found {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return target.contents, this.errReadFile[name]
}

func (this *inMemoryFileSystem) WriteFile(name string, content []byte) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	this.writeFile(name, content)
	return nil
}

func (this *inMemoryFileSystem) writeFile(name string, content []byte) {
	this.fileSystem[name] = &file{path: name, contents: content, mod: InMemoryModTime, mode: 0644}
}

func (this *inMemoryFileSystem) Delete(name string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	this.deleted = append(this.deleted, name)
	for _, key := range this.beneath(name) {
		delete(this.fileSystem, key)
	}
	for directory := range this.directories {
		if directory == name || strings.HasPrefix(directory, name+"/") {
			delete(this.directories, directory)
		}
	}
	return nil
}

func (this *inMemoryFileSystem) Rename(source, target string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if err := this.errRename[target]; err != nil {
		delete(this.errRename, target)
		return err
	}
	moved := this.beneath(source)
	if len(moved) == 0 {
		return &os.LinkError{Op: "rename", Old: source, New: target, Err: os.ErrNotExist}
	}
	for _, key := range this.beneath(target) {
		delete(this.fileSystem, key)
	}
	for _, key := range moved {
		item := this.fileSystem[key]
		delete(this.fileSystem, key)
		item.path = target + strings.TrimPrefix(key, source)
		this.fileSystem[item.path] = item
	}
	return nil
}

func (this *inMemoryFileSystem) MkdirAll(name string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	this.directories[name] = struct{}{}
	return nil
}

func (this *inMemoryFileSystem) CopyTree(source, target string) error {
	this.lock.Lock()
	defer this.lock.Unlock()

	if err := this.errCopyTree[source]; err != nil {
		return err
	}
	copied := this.beneath(source)
	if len(copied) == 0 {
		return &os.PathError{Op: "copy", Path: source, Err: os.ErrNotExist}
	}
	for _, key := range copied {
		original := this.fileSystem[key]
		name := target + strings.TrimPrefix(key, source)
		this.fileSystem[name] = &file{path: name, contents: append([]byte(nil), original.contents...), mod: original.mod, mode: original.mode}
	}
	return nil
}

func (this *inMemoryFileSystem) ReadDir(name string) (names []string, err error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	unique := make(map[string]struct{})
	for key := range this.fileSystem {
		if strings.HasPrefix(key, name+"/") {
			unique[strings.SplitN(strings.TrimPrefix(key, name+"/"), "/", 2)[0]] = struct{}{}
		}
	}
	if len(unique) == 0 {
		if _, found := this.directories[name]; !found {
			return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrNotExist}
		}
	}
	for entry := range unique {
		names = append(names, entry)
	}
	sort.Strings(names)
	return names, nil
}

func (this *inMemoryFileSystem) Stat(name string) (os.FileInfo, error) {
	this.lock.Lock()
	defer this.lock.Unlock()

	if item, found := this.fileSystem[name]; found {
		return item, nil
	}
	if len(this.beneath(name)) > 0 {
		return &file{path: name, mod: InMemoryModTime, mode: os.ModeDir | 0755}, nil
	}
	if _, found := this.directories[name]; found {
		return &file{path: name, mod: InMemoryModTime, mode: os.ModeDir | 0755}, nil
	}
	return nil, &os.PathError{Op: "stat", Path: name, Err: os.ErrNotExist}
}

// beneath returns the keys of every file at or below name.
func (this *inMemoryFileSystem) beneath(name string) (keys []string) {
	for key := range this.fileSystem {
		if key == name || strings.HasPrefix(key, name+"/") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (this *inMemoryFileSystem) exists(name string) bool {
	_, err := this.Stat(name)
	return err == nil
}

func (this *inMemoryFileSystem) contents(name string) string {
	raw, _ := this.ReadFile(name)
	return string(raw)
}

func (this *inMemoryFileSystem) Listing() (paths []string) {
	this.lock.Lock()
	defer this.lock.Unlock()

	for key := range this.fileSystem {
		paths = append(paths, key)
	}
	sort.Strings(paths)
	return paths
}

/////////////////////////////////////////////////

// tempFile reports its full path as its name, like *os.File.
type tempFile struct {
	*file
}

func (this *tempFile) Name() string { return this.path }

type file struct {
	path     string
	contents []byte
	mod      time.Time
	mode     os.FileMode
	closed   bool
	errWrite error
}

func (this *file) Write(p []byte) (n int, err error) {
	if this.closed {
		return 0, errors.New("write to closed file")
	}
	if this.errWrite != nil {
		return 0, this.errWrite
	}
	this.contents = append(this.contents, p...)
	return len(p), nil
}

var InMemoryModTime = time.Now()

func (this *file) Close() error       { this.closed = true; return nil }
func (this *file) Name() string       { return path.Base(this.path) }
func (this *file) Size() int64        { return int64(len(this.contents)) }
func (this *file) Mode() os.FileMode  { return this.mode }
func (this *file) ModTime() time.Time { return this.mod }
func (this *file) IsDir() bool        { return this.mode.IsDir() }
func (this *file) Sys() interface{}   { return nil }
