package testkit

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	httpc "github.com/shashiranjanraj/coursemart/pkg/http"
)

// Vars are substituted for "{{name}}" placeholders in a scenario.
type Vars map[string]string

func (v Vars) apply(s string) string {
	for k, val := range v {
		s = strings.ReplaceAll(s, "{{"+k+"}}", val)
	}
	return s
}

// Run executes one scenario file against handler as a subtest.
//
// Per scenario: read the request body, install the mock transport on the
// shared outgoing client, fire the request, assert status and body, check
// every mock step was called, and restore the transport.
func Run(t *testing.T, handler http.Handler, scenarioPath string, vars ...Vars) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", scenarioPath, err)
	}

	t.Run(s.Name, func(t *testing.T) {
		runScenario(t, handler, s, merge(vars))
	})
}

// RunDir runs every *.json scenario in dir, in file-name order. Request and
// response body files must therefore not end in .json; by convention they
// use *.req and *.res.
func RunDir(t *testing.T, handler http.Handler, dir string, vars ...Vars) {
	t.Helper()

	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		t.Fatalf("testkit: no scenario files found in %q", dir)
	}

	v := merge(vars)
	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			t.Errorf("testkit: load %q: %v", path, err)
			continue
		}

		t.Run(s.Name, func(t *testing.T) {
			runScenario(t, handler, s, v)
		})
	}
}

func merge(all []Vars) Vars {
	out := Vars{}
	for _, v := range all {
		for k, val := range v {
			out[k] = val
		}
	}
	return out
}

func runScenario(t *testing.T, handler http.Handler, s *Scenario, vars Vars) {
	t.Helper()

	var reqBody io.Reader
	if p := s.RequestBodyPath(); p != "" {
		data, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("[%s] read request file %q: %v", s.Name, p, err)
		}
		reqBody = bytes.NewReader([]byte(vars.apply(string(data))))
	}

	mt := NewMockTransport(s)
	original := httpc.DefaultClient.Transport
	httpc.DefaultClient.Transport = mt
	defer func() { httpc.DefaultClient.Transport = original }()

	method := strings.ToUpper(s.RequestMethod)
	req := httptest.NewRequest(method, vars.apply(s.RequestURL), reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range s.Headers {
		req.Header.Set(k, vars.apply(v))
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	AssertStatusCode(t, s, rec.Code)

	if p := s.ResponseBodyPath(); p != "" {
		expected, err := os.ReadFile(p)
		if err != nil {
			t.Errorf("[%s] read response file %q: %v", s.Name, p, err)
		} else {
			AssertJSONBody(t, s, []byte(vars.apply(string(expected))), rec.Body.Bytes())
		}
	}

	AssertMocksAllCalled(t, s, mt)
}
