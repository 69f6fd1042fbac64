package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/charmbracelet/log"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/rs/dnscache"

	"github.com/smartystreets/keg/contracts"
)

// NewHTTPClient returns a client that caches DNS lookups and also serves
// file:// URLs so that local mirrors can stand in for remote hosts.
func NewHTTPClient() *http.Client {
	resolver := &dnscache.Resolver{}
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			resolver.Refresh(true)
		}
	}()

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, address string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(address)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("failed to dial any resolved address for %s", host)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &http.Client{Transport: transport}
}

// HTTPDownloader issues GET requests, one circuit breaker per host. Redirects
// are followed by the client.
type HTTPDownloader struct {
	client    *http.Client
	userAgent string
	logger    *log.Logger

	lock     sync.Mutex
	breakers map[string]*circuit.Breaker
}

func NewHTTPDownloader(client *http.Client, userAgent string, logger *log.Logger) *HTTPDownloader {
	return &HTTPDownloader{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		breakers:  make(map[string]*circuit.Breaker),
	}
}

func (this *HTTPDownloader) Download(ctx context.Context, address url.URL) (io.ReadCloser, error) {
	breaker := this.breaker(address.Host)
	if !breaker.Ready() {
		return nil, &contracts.NetworkError{Address: address.String(), Err: circuit.ErrBreakerOpen}
	}

	var body io.ReadCloser
	var rejected error
	err := breaker.Call(func() error {
		response, err := this.get(ctx, address)
		if err != nil {
			return err
		}
		if response.StatusCode >= 200 && response.StatusCode < 300 {
			body = response.Body
			return nil
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4096))
		_ = response.Body.Close()
		failure := &contracts.NetworkError{Address: address.String(), Status: response.StatusCode}
		if response.StatusCode >= 500 {
			return failure
		}
		rejected = failure
		return nil
	}, 0)

	if errors.Is(err, circuit.ErrBreakerOpen) {
		this.logger.Warn("circuit open", "host", address.Host)
		return nil, &contracts.NetworkError{Address: address.String(), Err: err}
	}
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	return body, nil
}

func (this *HTTPDownloader) get(ctx context.Context, address url.URL) (*http.Response, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, address.String(), nil)
	if err != nil {
		return nil, &contracts.NetworkError{Address: address.String(), Err: err}
	}
	if this.userAgent != "" {
		request.Header.Set("User-Agent", this.userAgent)
	}
	response, err := this.client.Do(request)
	if err != nil {
		return nil, &contracts.NetworkError{Address: address.String(), Timeout: isTimeout(ctx, err), Err: err}
	}
	return response, nil
}

func (this *HTTPDownloader) breaker(host string) *circuit.Breaker {
	this.lock.Lock()
	defer this.lock.Unlock()

	if breaker, found := this.breakers[host]; found {
		return breaker
	}
	delays := backoff.NewExponentialBackOff()
	delays.InitialInterval = 30 * time.Second
	delays.MaxInterval = 5 * time.Minute
	delays.Multiplier = 2.0
	delays.Reset()

	breaker := circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    delays,
		ShouldTrip: circuit.ThresholdTripFunc(5),
	})
	this.breakers[host] = breaker
	return breaker
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
