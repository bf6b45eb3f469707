package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
)

type stubCatalog struct {
	courses []models.Course
}

func (s stubCatalog) ListCourses(context.Context) ([]models.Course, error) { return s.courses, nil }

func (s stubCatalog) GetCourse(_ context.Context, id string) (*models.Course, error) {
	for _, c := range s.courses {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, services.NotFound("Course not found")
}

func postGraphQL(t *testing.T, h *GraphQLController, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ctx.Wrap(h.Query)(rec, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func newGraphQL(t *testing.T) *GraphQLController {
	t.Helper()
	h, err := NewGraphQLController(stubCatalog{courses: []models.Course{{
		ID:        "c1",
		Title:     "Go in Production",
		Price:     4999,
		CreatorID: "a1",
		Images:    []models.Image{{PublicID: "courses/c1", URL: "https://img.test/c1.png"}},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}})
	require.NoError(t, err)
	return h
}

func TestGraphQLListsCourses(t *testing.T) {
	rec, out := postGraphQL(t, newGraphQL(t), `{"query":"{ courses { id title price createdAt images { url } } }"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{
		"courses": []any{map[string]any{
			"id":        "c1",
			"title":     "Go in Production",
			"price":     float64(4999),
			"createdAt": "2026-01-02T03:04:05Z",
			"images":    []any{map[string]any{"url": "https://img.test/c1.png"}},
		}},
	}, out["data"])
}

func TestGraphQLMissingCourseIsNull(t *testing.T) {
	rec, out := postGraphQL(t, newGraphQL(t),
		`{"query":"query($id: ID!) { course(id: $id) { title } }","variables":{"id":"nope"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"course": nil}, out["data"])
	assert.Nil(t, out["errors"])
}

func TestGraphQLRejectsEmptyQuery(t *testing.T) {
	rec, out := postGraphQL(t, newGraphQL(t), `{"query":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationError", out["error"])
}

func TestGraphQLSyntaxErrorIsBadRequest(t *testing.T) {
	rec, out := postGraphQL(t, newGraphQL(t), `{"query":"{ courses { "}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, out["errors"])
}
