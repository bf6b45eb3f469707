// Package http holds the shared client for every outgoing call (payment
// processor, image host). SDK clients are built on top of it:
//
//	backendClient := http.Client("stripe", http.DefaultClient)
//
// Tests swap the transport of DefaultClient and every derived client
// follows:
//
//	http.DefaultClient.Transport = mockTransport
//	defer http.ResetTransport()
package http

import (
	"fmt"
	gohttp "net/http"
	"time"

	"github.com/shashiranjanraj/coursemart/pkg/logger"
)

// Timeout bounds one outgoing request. Calls are made once, without retries.
const Timeout = 30 * time.Second

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is the base client of Client when no other is given.
var DefaultClient = &gohttp.Client{
	Transport: defaultTransport,
}

// ResetTransport restores the production transport on DefaultClient.
func ResetTransport() {
	DefaultClient.Transport = defaultTransport
}

// Client returns a client for the named upstream that sends through the
// current transport of base, logs every call and applies Timeout.
func Client(name string, base *gohttp.Client) *gohttp.Client {
	if base == nil {
		base = DefaultClient
	}
	return &gohttp.Client{
		Transport: &Transport{Name: name, base: base},
		Timeout:   Timeout,
	}
}

// Transport logs each round trip and forwards it to the transport base has
// at call time.
type Transport struct {
	Name string
	base *gohttp.Client
}

func (t *Transport) RoundTrip(req *gohttp.Request) (*gohttp.Response, error) {
	next := t.base.Transport
	if next == nil {
		next = gohttp.DefaultTransport
	}

	start := time.Now()
	resp, err := next.RoundTrip(req)
	log := logger.WithCtx(req.Context()).With(
		"upstream", t.Name,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if err != nil {
		log.Warn("http: outgoing request failed", "error", err)
		return nil, fmt.Errorf("http: %s %s: %w", req.Method, req.URL.Host, err)
	}
	if resp.StatusCode >= 500 {
		log.Warn("http: upstream error", "status", resp.StatusCode)
	} else {
		log.Debug("http: outgoing request", "status", resp.StatusCode)
	}
	return resp, nil
}
