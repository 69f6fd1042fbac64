package shell

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/smartystreets/keg/contracts"
)

type DiskFileSystem struct{ fs afero.Fs }

func NewDiskFileSystem() *DiskFileSystem {
	return &DiskFileSystem{fs: afero.NewOsFs()}
}

func (this *DiskFileSystem) Open(path string) (io.ReadCloser, error) {
	return this.fs.Open(path)
}

func (this *DiskFileSystem) CreateTemp(dir, prefix string) (contracts.TempFile, error) {
	return afero.TempFile(this.fs, dir, prefix+"*")
}

func (this *DiskFileSystem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(this.fs, path)
}

// WriteFile writes to a sibling temporary file and renames it over path.
func (this *DiskFileSystem) WriteFile(path string, content []byte) error {
	directory := filepath.Dir(path)
	err := this.fs.MkdirAll(directory, 0755)
	if err != nil {
		return err
	}
	temp, err := afero.TempFile(this.fs, directory, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	_, err = temp.Write(content)
	if err == nil {
		err = temp.Sync()
	}
	if closeErr := temp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = this.fs.Chmod(temp.Name(), 0644)
	}
	if err == nil {
		err = this.fs.Rename(temp.Name(), path)
	}
	if err != nil {
		_ = this.fs.Remove(temp.Name())
	}
	return err
}

func (this *DiskFileSystem) Delete(path string) error {
	return this.fs.RemoveAll(path)
}

func (this *DiskFileSystem) Rename(source, target string) error {
	return this.fs.Rename(source, target)
}

func (this *DiskFileSystem) MkdirAll(path string) error {
	return this.fs.MkdirAll(path, 0755)
}

func (this *DiskFileSystem) ReadDir(path string) (names []string, err error) {
	entries, err := afero.ReadDir(this.fs, path)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names, nil
}

func (this *DiskFileSystem) Stat(path string) (os.FileInfo, error) {
	if lstater, ok := this.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(path)
		return info, err
	}
	return this.fs.Stat(path)
}

// CopyTree copies regular files with their permissions and recreates
// symlinks as symlinks, which application bundles rely on.
func (this *DiskFileSystem) CopyTree(source, target string) error {
	return afero.Walk(this.fs, source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		destination := filepath.Join(target, relative)

		switch mode := info.Mode(); {
		case mode.IsDir():
			return this.fs.MkdirAll(destination, mode.Perm()|0700)
		case mode&os.ModeSymlink != 0:
			return this.copySymlink(path, destination)
		case mode.IsRegular():
			return this.copyFile(path, destination, mode.Perm())
		default:
			return fmt.Errorf("cannot copy %q: unsupported file mode %s", path, mode)
		}
	})
}

func (this *DiskFileSystem) copySymlink(source, destination string) error {
	linker, ok := this.fs.(afero.Symlinker)
	if !ok {
		return errors.New("symlinks are not supported by this file system")
	}
	link, err := linker.ReadlinkIfPossible(source)
	if err != nil {
		return err
	}
	err = this.fs.MkdirAll(filepath.Dir(destination), 0755)
	if err != nil {
		return err
	}
	return linker.SymlinkIfPossible(link, destination)
}

func (this *DiskFileSystem) copyFile(source, destination string, mode os.FileMode) error {
	err := this.fs.MkdirAll(filepath.Dir(destination), 0755)
	if err != nil {
		return err
	}
	reader, err := this.fs.Open(source)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	writer, err := this.fs.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	_, err = io.Copy(writer, reader)
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = this.fs.Chmod(destination, mode)
	}
	return err
}
