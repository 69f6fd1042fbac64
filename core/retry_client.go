package core

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenk/backoff"
	"github.com/charmbracelet/log"

	"github.com/smartystreets/keg/contracts"
)

type RetryClient struct {
	inner    contracts.Downloader
	maxRetry int
	sleep    func(ctx context.Context, duration time.Duration) error
	logger   *log.Logger
}

func NewRetryClient(
	inner contracts.Downloader,
	maxRetry int,
	sleep func(ctx context.Context, duration time.Duration) error,
	logger *log.Logger,
) *RetryClient {
	return &RetryClient{inner: inner, maxRetry: maxRetry, sleep: sleep, logger: logger}
}

// Download retries network and timeout failures up to maxRetry times. Any
// other failure, or a finished context, ends the attempts immediately. Each
// call keeps its own delays so concurrent downloads do not share state.
func (this *RetryClient) Download(ctx context.Context, address url.URL) (body io.ReadCloser, err error) {
	delays := newRetryDelays()
	for x := 0; x <= this.maxRetry; x++ {
		body, err = this.inner.Download(ctx, address)
		if err == nil {
			return body, nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
		if x < this.maxRetry {
			delay := delays.NextBackOff()
			this.logger.Warn("download failed, retry imminent", "address", address.String(), "attempt", x+1, "delay", delay, "err", err)
			if this.sleep(ctx, delay) != nil {
				return nil, err
			}
		}
	}
	return nil, err
}

func newRetryDelays() *backoff.ExponentialBackOff {
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = time.Second
	delays.Multiplier = 2
	delays.MaxInterval = time.Second * 30
	delays.RandomizationFactor = 0
	delays.MaxElapsedTime = 0
	delays.Reset()
	return delays
}

// Sleep waits for duration unless ctx finishes first.
func Sleep(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client errors other than 408 and 429 are final.
func isRetryable(err error) bool {
	var failure *contracts.NetworkError
	if errors.As(err, &failure) && failure.Status >= 400 && failure.Status < 500 {
		return failure.Status == http.StatusRequestTimeout || failure.Status == http.StatusTooManyRequests
	}
	return errors.Is(err, contracts.ErrNetwork) || errors.Is(err, contracts.ErrTimeout)
}
