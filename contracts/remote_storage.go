package contracts

import (
	"context"
	"io"
	"net/url"
)

type Downloader interface {
	Download(ctx context.Context, address url.URL) (io.ReadCloser, error)
}
