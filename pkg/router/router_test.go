package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/pkg/router"
)

func ok(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte(body)) }
}

func TestGroupMiddlewareOrderAndStaticBeforeParam(t *testing.T) {
	r := router.New()
	var trail []string
	mark := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				trail = append(trail, tag)
				next.ServeHTTP(w, req)
			})
		}
	}

	course := r.Group("/api/v1").Group("/course", mark("group"))
	course.Get("/courses", "course.index", ok("index"))
	course.Delete("/delete/{courseId}", "course.delete", ok("deleted"), mark("route"))
	course.Get("/{courseId}", "course.show", ok("show"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/course/courses", nil))
	assert.Equal(t, "index", rec.Body.String())

	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/course/abc", nil))
	assert.Equal(t, "show", rec.Body.String())

	trail = nil
	rec = httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/course/delete/abc", nil))
	assert.Equal(t, "deleted", rec.Body.String())
	assert.Equal(t, []string{"group", "route"}, trail)
}

func TestNotFoundIsJSON(t *testing.T) {
	r := router.New()
	r.Get("/", "home", ok("hi"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"NotFoundError"`)
}

func TestURLAndRoutes(t *testing.T) {
	r := router.New()
	g := r.Group("/api/v1/course")
	g.Put("/update/{courseId}", "course.update", ok(""))
	g.Post("/create", "course.create", ok(""))

	u, err := r.URL("course.update", map[string]string{"courseId": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/course/update/42", u)

	_, err = r.URL("course.update", nil)
	assert.Error(t, err)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, router.RouteInfo{Method: http.MethodPost, Path: "/api/v1/course/create", Name: "course.create"}, routes[0])
}
