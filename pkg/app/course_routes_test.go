package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
)

type upload struct {
	name, contentType, body string
}

func courseForm(t *testing.T, fields map[string]string, files ...upload) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

type courseClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func (c courseClient) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func decodeCourse(t *testing.T, rec *httptest.ResponseRecorder) models.Course {
	t.Helper()
	var out struct {
		Course models.Course `json:"course"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out.Course
}

// imageBodies fetches every course image from the local storage mount.
func imageBodies(t *testing.T, c courseClient, course models.Course) []string {
	t.Helper()
	bodies := make([]string, len(course.Images))
	for i, img := range course.Images {
		rec := c.do(http.MethodGet, "/storage/"+img.PublicID, nil, "")
		require.Equal(t, http.StatusOK, rec.Code, img.PublicID)
		bodies[i] = rec.Body.String()
	}
	return bodies
}

func adminClient(t *testing.T, email string) (courseClient, courseClient) {
	t.Helper()
	a := newApp(t, testSettings(t))
	handler, err := a.Handler()
	require.NoError(t, err)

	token := func(email string) string {
		acc, err := a.Auth.Signup(context.Background(), auth.RoleAdmin, services.SignupInput{
			FirstName: "Admin", LastName: "Person", Email: email, Password: "secret1",
		})
		require.NoError(t, err)
		tok, err := a.Issuer.Issue(auth.RoleAdmin, acc.ID)
		require.NoError(t, err)
		return tok
	}

	return courseClient{t: t, handler: handler, token: token(email)},
		courseClient{t: t, handler: handler, token: token("other-" + email)}
}

func TestCourseLifecycleOverHTTP(t *testing.T) {
	owner, other := adminClient(t, "owner@example.com")

	body, ct := courseForm(t, map[string]string{"title": "Go basics", "description": "Learn Go", "price": "20"},
		upload{"a.png", "image/png", "first"},
		upload{"b.jpg", "image/jpeg", "second"},
	)
	rec := owner.do(http.MethodPost, "/api/v1/course/create", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeCourse(t, rec)
	assert.Equal(t, "Go basics", created.Title)
	assert.Equal(t, int64(20), created.Price)
	require.Len(t, created.Images, 2)
	assert.Equal(t, []string{"first", "second"}, imageBodies(t, owner, created))

	// Fields only: images stay.
	body, ct = courseForm(t, map[string]string{"price": "25"})
	rec = owner.do(http.MethodPut, "/api/v1/course/update/"+created.ID, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeCourse(t, rec)
	assert.Equal(t, "Go basics", updated.Title)
	assert.Equal(t, int64(25), updated.Price)
	assert.Equal(t, created.Images, updated.Images)

	// New image replaces the whole set.
	body, ct = courseForm(t, map[string]string{"title": "Go 2"}, upload{"c.png", "image/png", "third"})
	rec = owner.do(http.MethodPut, "/api/v1/course/update/"+created.ID, body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = decodeCourse(t, rec)
	assert.Equal(t, "Go 2", updated.Title)
	assert.Equal(t, "Learn Go", updated.Description)
	require.Len(t, updated.Images, 1)
	assert.Equal(t, []string{"third"}, imageBodies(t, owner, updated))

	rec = owner.do(http.MethodGet, "/api/v1/course/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Go 2", decodeCourse(t, rec).Title)

	rec = other.do(http.MethodDelete, "/api/v1/course/delete/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "created by other admin")

	body, ct = courseForm(t, map[string]string{"title": "Hijack"})
	rec = other.do(http.MethodPut, "/api/v1/course/update/"+created.ID, body, ct)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = owner.do(http.MethodDelete, "/api/v1/course/delete/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = owner.do(http.MethodGet, "/api/v1/course/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateCourseRejectsBadUploadsOverHTTP(t *testing.T) {
	owner, _ := adminClient(t, "owner@example.com")

	body, ct := courseForm(t, map[string]string{"title": "Go", "description": "Learn Go", "price": "20"},
		upload{"a.png", "image/png", "ok"},
		upload{"notes.pdf", "application/pdf", "nope"},
	)
	rec := owner.do(http.MethodPost, "/api/v1/course/create", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"ValidationError"`)
	assert.Contains(t, rec.Body.String(), "Invalid file format")

	body, ct = courseForm(t, map[string]string{"title": "Go", "description": "Learn Go", "price": "twenty"},
		upload{"a.png", "image/png", "ok"},
	)
	rec = owner.do(http.MethodPost, "/api/v1/course/create", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price"`)

	body, ct = courseForm(t, map[string]string{"title": "Go", "description": "Learn Go", "price": "20"})
	rec = owner.do(http.MethodPost, "/api/v1/course/create", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No file uploaded")

	rec = owner.do(http.MethodGet, "/api/v1/course/courses", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"courses":[]`), rec.Body.String())
}
