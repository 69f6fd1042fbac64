package core

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/smartystreets/keg/contracts"
)

type FetcherFileSystem interface {
	contracts.FileCreator
	contracts.FileChecker
	contracts.DirectoryMaker
	contracts.Renamer
	contracts.Deleter
}

// ArtifactFetcher downloads an artifact into the cache directory. The final
// cache path only ever holds a complete download.
type ArtifactFetcher struct {
	downloader       contracts.Downloader
	fileSystem       FetcherFileSystem
	cacheDirectory   string
	timeout          time.Duration
	progressInterval time.Duration
	logger           *log.Logger
}

func NewArtifactFetcher(
	downloader contracts.Downloader,
	fileSystem FetcherFileSystem,
	cacheDirectory string,
	timeout time.Duration,
	logger *log.Logger,
) *ArtifactFetcher {
	return &ArtifactFetcher{
		downloader:       downloader,
		fileSystem:       fileSystem,
		cacheDirectory:   cacheDirectory,
		timeout:          timeout,
		progressInterval: time.Second * 5,
		logger:           logger,
	}
}

func (this *ArtifactFetcher) Fetch(ctx context.Context, manifest contracts.ResolvedManifest) (string, error) {
	directory := filepath.Join(this.cacheDirectory, manifest.Identifier, manifest.Version)
	target := filepath.Join(directory, artifactFilename(manifest.ResolvedDownloadURL.Path))

	if info, err := this.fileSystem.Stat(target); err == nil && !info.IsDir() {
		this.logger.Info("using cached artifact", "package", manifest.Identifier, "version", manifest.Version, "path", target)
		return target, nil
	}
	if err := this.fileSystem.MkdirAll(directory); err != nil {
		return "", err
	}

	if this.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, this.timeout)
		defer cancel()
	}

	address := manifest.ResolvedDownloadURL
	this.logger.Info("downloading", "package", manifest.Identifier, "version", manifest.Version, "address", address.String())

	body, err := this.downloader.Download(ctx, address)
	if err != nil {
		return "", classifyFetchError(ctx, address.String(), err)
	}
	defer func() { _ = body.Close() }()

	temp, err := this.fileSystem.CreateTemp(directory, ".download-")
	if err != nil {
		return "", err
	}

	err = this.copy(ctx, temp, body, manifest)
	closeErr := temp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil {
		err = this.fileSystem.Rename(temp.Name(), target)
	}
	if err != nil {
		_ = this.fileSystem.Delete(temp.Name())
		return "", classifyFetchError(ctx, address.String(), err)
	}
	return target, nil
}

func (this *ArtifactFetcher) copy(ctx context.Context, destination io.Writer, body io.Reader, manifest contracts.ResolvedManifest) error {
	progress := newDownloadProgressCounter(this.progressInterval, func(written string, done bool) {
		if done {
			this.logger.Info("download finished", "package", manifest.Identifier, "version", manifest.Version, "size", written)
		} else {
			this.logger.Info("download in progress", "package", manifest.Identifier, "version", manifest.Version, "size", written)
		}
	})
	defer func() { _ = progress.Close() }()

	source := &trackingReader{ctx: ctx, inner: body}
	_, err := io.Copy(io.MultiWriter(destination, progress), source)
	if err != nil && source.err != nil {
		return &contracts.NetworkError{Address: manifest.ResolvedDownloadURL.String(), Err: source.err}
	}
	return err
}

// classifyFetchError reports an expired deadline as a timeout regardless of
// how the transport phrased it.
func classifyFetchError(ctx context.Context, address string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, contracts.ErrTimeout) {
		return &contracts.NetworkError{Address: address, Timeout: true, Err: err}
	}
	return err
}

func artifactFilename(urlPath string) string {
	name := path.Base(urlPath)
	if name == "." || name == "/" || name == "" {
		return "artifact"
	}
	return name
}

// trackingReader remembers failures of the remote body so they can be told
// apart from failures writing the local file.
type trackingReader struct {
	ctx   context.Context
	inner io.Reader
	err   error
}

func (this *trackingReader) Read(buffer []byte) (int, error) {
	if err := this.ctx.Err(); err != nil {
		this.err = err
		return 0, err
	}
	count, err := this.inner.Read(buffer)
	if err != nil && err != io.EOF {
		this.err = err
	}
	return count, err
}
