package controllers

import (
	"mime/multipart"
	"net/http"

	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/collection"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
	"github.com/shashiranjanraj/coursemart/pkg/imagehost"
)

// ImageField is the multipart field carrying course images. It may repeat.
const ImageField = "image"

type CourseController struct {
	catalog  *services.CatalogService
	checkout *services.CheckoutService
}

func NewCourseController(catalog *services.CatalogService, checkout *services.CheckoutService) *CourseController {
	return &CourseController{catalog: catalog, checkout: checkout}
}

func principalID(c *ctx.Context) string {
	p, _ := auth.PrincipalFrom(c.Context())
	return p.ID
}

func uploads(c *ctx.Context) ([]imagehost.File, bool) {
	headers, ok := c.FormFiles(ImageField)
	if !ok {
		return nil, false
	}
	return collection.Map(headers, func(fh *multipart.FileHeader) imagehost.File {
		return imagehost.FromMultipart(fh)
	}), true
}

func (h *CourseController) Create(c *ctx.Context) {
	var input services.CourseInput
	if !c.BindForm(&input) {
		return
	}
	files, ok := uploads(c)
	if !ok {
		return
	}

	course, err := h.catalog.CreateCourse(c.Context(), principalID(c), input, files)
	if err != nil {
		c.Fail(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]any{
		"message": "Course created successfully",
		"course":  course,
	})
}

func (h *CourseController) Update(c *ctx.Context) {
	var input services.CourseUpdate
	if !c.BindForm(&input) {
		return
	}
	files, ok := uploads(c)
	if !ok {
		return
	}

	course, err := h.catalog.UpdateCourse(c.Context(), principalID(c), c.Param("courseId"), input, files)
	if err != nil {
		c.Fail(err)
		return
	}

	c.JSON(http.StatusOK, map[string]any{
		"message": "Course updated successfully",
		"course":  course,
	})
}

func (h *CourseController) Delete(c *ctx.Context) {
	if err := h.catalog.DeleteCourse(c.Context(), principalID(c), c.Param("courseId")); err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"message": "Course deleted successfully"})
}

func (h *CourseController) Index(c *ctx.Context) {
	courses, err := h.catalog.ListCourses(c.Context())
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"courses": courses})
}

func (h *CourseController) Show(c *ctx.Context) {
	course, err := h.catalog.GetCourse(c.Context(), c.Param("courseId"))
	if err != nil {
		c.Fail(err)
		return
	}
	c.JSON(http.StatusOK, map[string]any{"course": course})
}

// Buy starts checkout. The browser confirms the payment with clientSecret
// and then posts the order.
func (h *CourseController) Buy(c *ctx.Context) {
	res, err := h.checkout.InitiateBuy(c.Context(), principalID(c), c.Param("courseId"))
	if err != nil {
		c.Fail(err)
		return
	}

	c.JSON(http.StatusCreated, map[string]any{
		"message":      "Course purchased successfully",
		"course":       res.Course,
		"clientSecret": res.ClientSecret,
	})
}
