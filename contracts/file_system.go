package contracts

import (
	"io"
	"os"
)

type FileOpener interface {
	Open(path string) (io.ReadCloser, error)
}

type FileCreator interface {
	// CreateTemp creates a new file in dir whose name starts with prefix.
	CreateTemp(dir, prefix string) (TempFile, error)
}

type TempFile interface {
	io.WriteCloser
	Name() string
}

type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

type FileWriter interface {
	// WriteFile replaces the file at path so that readers never observe a
	// partially written file.
	WriteFile(path string, content []byte) error
}

type Deleter interface {
	// Delete removes path and anything beneath it. A missing path is not an error.
	Delete(path string) error
}

type Renamer interface {
	Rename(source, target string) error
}

type DirectoryMaker interface {
	MkdirAll(path string) error
}

type TreeCopier interface {
	// CopyTree copies a file, symlink or directory tree from source to target.
	CopyTree(source, target string) error
}

type DirectoryLister interface {
	// ReadDir returns the names of the entries in path, sorted.
	ReadDir(path string) ([]string, error)
}

type FileChecker interface {
	Stat(path string) (os.FileInfo, error)
}

type FileSystem interface {
	FileOpener
	FileCreator
	FileReader
	FileWriter
	Deleter
	Renamer
	DirectoryMaker
	TreeCopier
	DirectoryLister
	FileChecker
}
