package testkit_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpc "github.com/shashiranjanraj/coursemart/pkg/http"
	"github.com/shashiranjanraj/coursemart/pkg/testkit"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestRunDirWithVarsAndMock(t *testing.T) {
	dir := t.TempDir()
	// base64({"status":"ok"})
	writeFile(t, dir, "ping.json", `{
		"name": "ping upstream",
		"requestMethod": "POST",
		"requestUrl": "/ping/{{id}}",
		"requestFileName": "ping.req",
		"headers": {"Authorization": "Bearer {{token}}"},
		"responseFileName": "ping.res",
		"expectedCode": 200,
		"partialMatch": true,
		"isMockRequired": true,
		"netUtilMockStep": [{
			"method": "httprequest", "isMock": true,
			"matchUrl": "https://upstream.test/", "matchMethod": "GET",
			"returnData": {"statusCode": 200, "body": "eyJzdGF0dXMiOiJvayJ9"}
		}]
	}`)
	writeFile(t, dir, "ping.req", `{"who":"{{id}}"}`)
	writeFile(t, dir, "ping.res", `{"id":"42","upstream":"ok"}`)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		body, _ := io.ReadAll(r.Body)
		req, _ := http.NewRequestWithContext(r.Context(), http.MethodGet, "https://upstream.test/health", nil)
		resp, err := httpc.Client("upstream", nil).Do(req)
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		var up struct{ Status string }
		_ = json.NewDecoder(resp.Body).Decode(&up)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + strings.TrimPrefix(r.URL.Path, "/ping/") +
			`","upstream":"` + up.Status + `","echo":` + string(body) + `}`))
	})

	testkit.RunDir(t, handler, dir, testkit.Vars{"id": "42", "token": "tok"})
}

func TestMockTransportMethodMatching(t *testing.T) {
	s := &testkit.Scenario{
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{
			{Method: "httprequest", IsMock: true, MatchURL: "https://api.test/v1/items", MatchMethod: "POST",
				ReturnData: testkit.MockReturnData{StatusCode: 201}},
			{Method: "httprequest", IsMock: true, MatchURL: "https://api.test/v1/items", MatchMethod: "GET",
				ReturnData: testkit.MockReturnData{StatusCode: 200}},
		},
	}
	mt := testkit.NewMockTransport(s)

	resp, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://api.test/v1/items/1", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Len(t, mt.AssertAllCalled(), 1, "POST step still pending")

	resp, err = mt.RoundTrip(httptest.NewRequest(http.MethodPost, "https://api.test/v1/items", strings.NewReader("a=b")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, mt.AssertAllCalled())

	reqs := mt.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "a=b", string(reqs[1].Body))
}

func TestMockTransportUnmatchedCallFails(t *testing.T) {
	mt := testkit.NewMockTransport(&testkit.Scenario{
		IsMockRequired: true,
		NetUtilMockStep: []testkit.MockStep{
			{Method: "httprequest", IsMock: true, MatchURL: "https://expected.test/"},
		},
	})

	_, err := mt.RoundTrip(httptest.NewRequest(http.MethodGet, "https://unexpected.test/api", nil))
	assert.Error(t, err)
}

func TestAssertJSONBodyIgnoresOrder(t *testing.T) {
	s := &testkit.Scenario{Name: "json assert"}
	testkit.AssertJSONBody(t, s, []byte(`{"name":"Ann","age":30}`), []byte(`{"age":  30, "name": "Ann"}`))
}
