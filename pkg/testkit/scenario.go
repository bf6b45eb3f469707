// Package testkit drives REST API tests from JSON scenario files.
//
// Each scenario describes the request to fire, the expected status and body,
// and the outgoing HTTP calls (payment processor, image host) to intercept:
//
//	testdata/
//	  signup_ok.json   ← scenario
//	  signup_ok.req    ← request body (JSON)
//	  signup_ok.res    ← expected response body (JSON)
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata", testkit.Vars{"adminToken": tok})
//	}
//
// "{{name}}" placeholders in the URL, headers and request body are replaced
// from Vars before the request is fired.
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Scenario is a single REST API test case.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	RequestMethod   string            `json:"requestMethod"`
	RequestURL      string            `json:"requestUrl"`
	RequestFileName string            `json:"requestFileName"`
	Headers         map[string]string `json:"headers"`

	ResponseFileName string `json:"responseFileName"`
	ExpectedCode     int    `json:"expectedCode"`
	// PartialMatch compares only the keys present in the expected body, so
	// generated ids and timestamps can be left out of fixtures.
	PartialMatch bool `json:"partialMatch"`

	// IsMockRequired fails the scenario on an outgoing call no step matches.
	IsMockRequired  bool       `json:"isMockRequired"`
	NetUtilMockStep []MockStep `json:"netUtilMockStep"`

	dir string
}

// MockStep describes one intercepted outgoing HTTP call.
type MockStep struct {
	// Method must be "httprequest".
	Method string `json:"method"`
	IsMock bool   `json:"isMock"`

	// MatchURL is a prefix of the outgoing URL; empty matches anything.
	MatchURL string `json:"matchUrl"`
	// MatchMethod restricts the step to one HTTP verb; empty matches any.
	MatchMethod string `json:"matchMethod"`

	ReturnData MockReturnData `json:"returnData"`
}

// MockReturnData is the synthetic response of a mock step.
type MockReturnData struct {
	StatusCode int `json:"statusCode"`
	// Body is base64-encoded.
	Body string `json:"body"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	for i, step := range s.NetUtilMockStep {
		if step.Method != "httprequest" {
			return fmt.Errorf("netUtilMockStep[%d].method must be \"httprequest\"", i)
		}
	}
	return nil
}

// RequestBodyPath resolves RequestFileName against the scenario directory.
func (s *Scenario) RequestBodyPath() string { return s.resolve(s.RequestFileName) }

// ResponseBodyPath resolves ResponseFileName against the scenario directory.
func (s *Scenario) ResponseBodyPath() string { return s.resolve(s.ResponseFileName) }

func (s *Scenario) resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}
