package testkit

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MockTransport is an http.RoundTripper answering outgoing calls from the
// "httprequest" steps of a scenario. Steps are tried in order; the first
// whose URL prefix and method match answers.
//
//	mt := testkit.NewMockTransport(scenario)
//	client := &http.Client{Transport: mt}
type MockTransport struct {
	mu       sync.Mutex
	steps    []httpMockEntry
	require  bool
	requests []RecordedRequest
}

// RecordedRequest is an outgoing call seen by the transport.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

type httpMockEntry struct {
	step      MockStep
	callCount int
}

// NewMockTransport builds a transport from the scenario's mock steps.
func NewMockTransport(s *Scenario) *MockTransport {
	mt := &MockTransport{require: s.IsMockRequired}
	for _, step := range s.NetUtilMockStep {
		if step.Method == "httprequest" && step.IsMock {
			mt.steps = append(mt.steps, httpMockEntry{step: step})
		}
	}
	return mt
}

// Stub returns a transport with a single step answering every call.
func Stub(status int, body string) *MockTransport {
	return NewMockTransport(&Scenario{NetUtilMockStep: []MockStep{{
		Method: "httprequest",
		IsMock: true,
		ReturnData: MockReturnData{
			StatusCode: status,
			Body:       base64.StdEncoding.EncodeToString([]byte(body)),
		},
	}}})
}

// RoundTrip records req and returns the matching synthetic response.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}

	mt.mu.Lock()
	defer mt.mu.Unlock()

	mt.requests = append(mt.requests, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})

	for i := range mt.steps {
		entry := &mt.steps[i]
		if !matches(req, entry.step) {
			continue
		}
		entry.callCount++
		return buildHTTPResponse(req, entry.step.ReturnData)
	}

	if mt.require {
		return nil, fmt.Errorf("testkit: unexpected outgoing HTTP call %s %s", req.Method, req.URL)
	}

	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader(`{"error":"no mock configured"}`)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

// Requests returns every call seen so far, in order.
func (mt *MockTransport) Requests() []RecordedRequest {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]RecordedRequest(nil), mt.requests...)
}

// AssertAllCalled lists the steps that were never triggered.
func (mt *MockTransport) AssertAllCalled() []error {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	var errs []error
	for _, e := range mt.steps {
		if e.callCount == 0 {
			errs = append(errs, fmt.Errorf("testkit: mock step %s %q was never called",
				e.step.MatchMethod, e.step.MatchURL))
		}
	}
	return errs
}

func matches(req *http.Request, step MockStep) bool {
	if step.MatchMethod != "" && !strings.EqualFold(step.MatchMethod, req.Method) {
		return false
	}
	return step.MatchURL == "" || strings.HasPrefix(req.URL.String(), step.MatchURL)
}

func buildHTTPResponse(req *http.Request, rd MockReturnData) (*http.Response, error) {
	code := rd.StatusCode
	if code == 0 {
		code = http.StatusOK
	}

	var bodyBytes []byte
	if rd.Body != "" {
		decoded, err := base64.StdEncoding.DecodeString(rd.Body)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(rd.Body)
			if err != nil {
				return nil, fmt.Errorf("testkit: base64 decode mock body: %w", err)
			}
		}
		bodyBytes = decoded
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")

	return &http.Response{
		StatusCode: code,
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(bodyBytes)),
		Request:    req,
	}, nil
}
