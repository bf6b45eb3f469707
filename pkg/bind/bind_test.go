package bind

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type courseUpdate struct {
	Title       *string `form:"title"`
	Description *string `form:"description"`
	Price       *int64  `form:"price"`
}

func multipartRequest(t *testing.T, fields map[string]string, files ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, name := range files {
		fw, err := mw.CreateFormFile("image", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestFormLeavesAbsentPointersNil(t *testing.T) {
	var in courseUpdate
	errs, err := Form(multipartRequest(t, map[string]string{"title": "  Go 2 ", "price": "25"}), &in)
	require.NoError(t, err)
	assert.Empty(t, errs)

	require.NotNil(t, in.Title)
	assert.Equal(t, "Go 2", *in.Title)
	require.NotNil(t, in.Price)
	assert.Equal(t, int64(25), *in.Price)
	assert.Nil(t, in.Description)
}

func TestFormReportsUnparsableNumber(t *testing.T) {
	var in courseUpdate
	errs, err := Form(multipartRequest(t, map[string]string{"price": "twenty"}), &in)
	require.NoError(t, err)
	assert.Equal(t, "The price field has an invalid value.", errs["price"])
	assert.Nil(t, in.Price)
}

func TestFormRunsValidation(t *testing.T) {
	var in struct {
		Title string `form:"title" validate:"required"`
		Price int64  `form:"price" validate:"required"`
	}
	errs, err := Form(multipartRequest(t, map[string]string{"price": "x"}), &in)
	require.NoError(t, err)
	assert.Contains(t, errs, "title")
	assert.Equal(t, "The price field has an invalid value.", errs["price"])
}

func TestFormURLEncoded(t *testing.T) {
	body := url.Values{"title": {"Go"}, "price": {"20"}}.Encode()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var in courseUpdate
	errs, err := Form(req, &in)
	require.NoError(t, err)
	assert.Empty(t, errs)
	assert.Equal(t, "Go", *in.Title)
	assert.Equal(t, int64(20), *in.Price)

	files, err := Files(req, "image")
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestFilesKeepClientOrder(t *testing.T) {
	req := multipartRequest(t, map[string]string{"title": "Go"}, "c.png", "a.png", "b.png")

	var in courseUpdate
	_, err := Form(req, &in)
	require.NoError(t, err)

	files, err := Files(req, "image")
	require.NoError(t, err)
	names := make([]string, len(files))
	for i, fh := range files {
		names[i] = fh.Filename
	}
	assert.Equal(t, []string{"c.png", "a.png", "b.png"}, names)
}

func TestFormNeedsStructPointer(t *testing.T) {
	var in courseUpdate
	_, err := Form(multipartRequest(t, nil), in)
	assert.Error(t, err)
}
