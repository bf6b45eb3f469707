package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
	gql "github.com/shashiranjanraj/coursemart/pkg/graphql"
)

// CatalogReader is the read side of the catalog exposed over GraphQL.
type CatalogReader interface {
	ListCourses(ctx context.Context) ([]models.Course, error)
	GetCourse(ctx context.Context, id string) (*models.Course, error)
}

// GraphQLController answers read-only catalog queries:
//
//	{ courses { id title price images { url } } }
//	{ course(id: "...") { title description } }
type GraphQLController struct {
	schema graphql.Schema
}

func NewGraphQLController(catalog CatalogReader) (*GraphQLController, error) {
	schema, err := gql.NewSchema(catalogQuery(catalog))
	if err != nil {
		return nil, err
	}
	return &GraphQLController{schema: schema}, nil
}

func (h *GraphQLController) Query(c *ctx.Context) {
	var req gql.Request
	if !c.DecodeJSON(&req) {
		return
	}
	if req.Query == "" {
		c.Fail(services.Validation("Validation failed", map[string]string{"query": "The query field is required."}))
		return
	}

	result := gql.Execute(c.Context(), h.schema, req)
	status := http.StatusOK
	if result.HasErrors() && result.Data == nil {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

var imageType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Image",
	Fields: graphql.Fields{
		"publicId": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.Image).PublicID, nil
			},
		},
		"url": &graphql.Field{
			Type: graphql.String,
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(models.Image).URL, nil
			},
		},
	},
})

func courseField(typ graphql.Output, get func(models.Course) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return get(p.Source.(models.Course)), nil
		},
	}
}

var courseType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Course",
	Fields: graphql.Fields{
		"id":          courseField(graphql.NewNonNull(graphql.ID), func(c models.Course) interface{} { return c.ID }),
		"title":       courseField(graphql.String, func(c models.Course) interface{} { return c.Title }),
		"description": courseField(graphql.String, func(c models.Course) interface{} { return c.Description }),
		"price":       courseField(graphql.Int, func(c models.Course) interface{} { return c.Price }),
		"creatorId":   courseField(graphql.String, func(c models.Course) interface{} { return c.CreatorID }),
		"images":      courseField(graphql.NewList(imageType), func(c models.Course) interface{} { return c.Images }),
		"createdAt": courseField(graphql.String, func(c models.Course) interface{} {
			return c.CreatedAt.UTC().Format(time.RFC3339)
		}),
	},
})

func catalogQuery(catalog CatalogReader) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"courses": &graphql.Field{
				Type: graphql.NewList(courseType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return catalog.ListCourses(p.Context)
				},
			},
			"course": &graphql.Field{
				Type: courseType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					course, err := catalog.GetCourse(p.Context, id)
					if services.IsKind(err, services.NotFoundError) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return *course, nil
				},
			},
		},
	})
}
