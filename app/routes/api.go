package routes

import (
	"github.com/shashiranjanraj/coursemart/app/controllers"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/ctx"
	"github.com/shashiranjanraj/coursemart/pkg/middleware"
	"github.com/shashiranjanraj/coursemart/pkg/router"
)

// Handlers are the controllers mounted by RegisterAPI. A zero Handlers
// registers every route without serving them, which is enough for
// route:list.
type Handlers struct {
	Issuer  *auth.Issuer
	Users   *controllers.AuthController
	Admins  *controllers.AuthController
	Courses *controllers.CourseController
	Orders  *controllers.OrderController
	GraphQL *controllers.GraphQLController
	Health  *controllers.HealthController
}

func RegisterAPI(r *router.Router, h Handlers) {
	userOnly := router.Middleware(middleware.RequireUser(h.Issuer))
	adminOnly := router.Middleware(middleware.RequireAdmin(h.Issuer))

	r.Get("/", "home", ctx.Wrap(h.Health.Root))
	r.Get("/healthz", "health", ctx.Wrap(h.Health.Healthz))
	r.Post("/graphql", "graphql", ctx.Wrap(h.GraphQL.Query))

	api := r.Group("/api/v1")

	user := api.Group("/user")
	user.Post("/signup", "user.signup", ctx.Wrap(h.Users.Signup))
	user.Post("/login", "user.login", ctx.Wrap(h.Users.Login))
	user.Get("/logout", "user.logout", ctx.Wrap(h.Users.Logout))
	user.Get("/purchases", "user.purchases", ctx.Wrap(h.Orders.Purchases), userOnly)
	user.Get("/orders", "user.orders", ctx.Wrap(h.Orders.Orders), userOnly)

	admin := api.Group("/admin")
	admin.Post("/signup", "admin.signup", ctx.Wrap(h.Admins.Signup))
	admin.Post("/login", "admin.login", ctx.Wrap(h.Admins.Login))
	admin.Get("/logout", "admin.logout", ctx.Wrap(h.Admins.Logout))

	api.Post("/order", "order.store", ctx.Wrap(h.Orders.Store), userOnly)

	course := api.Group("/course")
	course.Post("/create", "course.create", ctx.Wrap(h.Courses.Create), adminOnly)
	course.Put("/update/{courseId}", "course.update", ctx.Wrap(h.Courses.Update), adminOnly)
	course.Delete("/delete/{courseId}", "course.delete", ctx.Wrap(h.Courses.Delete), adminOnly)
	course.Get("/courses", "course.index", ctx.Wrap(h.Courses.Index))
	course.Post("/buy/{courseId}", "course.buy", ctx.Wrap(h.Courses.Buy), userOnly)
	// Registered after every static /course/* path.
	course.Get("/{courseId}", "course.show", ctx.Wrap(h.Courses.Show))
}
