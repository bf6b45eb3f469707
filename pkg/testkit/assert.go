package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertStatusCode checks the response code.
func AssertStatusCode(t *testing.T, scenario *Scenario, got int) {
	t.Helper()
	assert.Equal(t, scenario.ExpectedCode, got, "[%s] HTTP status code mismatch", scenario.Name)
}

// AssertJSONBody compares the actual body to the expected fixture after
// decoding both, so key order and whitespace never matter. With
// PartialMatch only the expected keys are compared.
func AssertJSONBody(t *testing.T, scenario *Scenario, expected, actual []byte) {
	t.Helper()
	if len(expected) == 0 {
		return
	}

	var expVal, actVal interface{}
	require.NoError(t, json.Unmarshal(expected, &expVal),
		"[%s] expected response file is not valid JSON", scenario.Name)

	if !assert.NoError(t, json.Unmarshal(actual, &actVal),
		"[%s] actual response is not valid JSON\nbody: %s", scenario.Name, string(actual)) {
		return
	}

	if scenario.PartialMatch {
		actVal = project(expVal, actVal)
	}
	assert.Equal(t, expVal, actVal, "[%s] response body mismatch", scenario.Name)
}

// AssertMocksAllCalled fails the test for every mock step never triggered.
func AssertMocksAllCalled(t *testing.T, scenario *Scenario, mt *MockTransport) {
	t.Helper()
	for _, err := range mt.AssertAllCalled() {
		assert.NoError(t, err, "[%s]", scenario.Name)
	}
}

// project trims actual down to the shape of expected: objects keep only the
// expected keys, arrays are projected element-wise.
func project(expected, actual interface{}) interface{} {
	switch exp := expected.(type) {
	case map[string]interface{}:
		act, ok := actual.(map[string]interface{})
		if !ok {
			return actual
		}
		out := make(map[string]interface{}, len(exp))
		for k, ev := range exp {
			if av, found := act[k]; found {
				out[k] = project(ev, av)
			}
		}
		return out
	case []interface{}:
		act, ok := actual.([]interface{})
		if !ok || len(act) != len(exp) {
			return actual
		}
		out := make([]interface{}, len(act))
		for i := range act {
			out[i] = project(exp[i], act[i])
		}
		return out
	default:
		return actual
	}
}
