package app

import (
	"context"
	"net/http"

	"github.com/shashiranjanraj/coursemart/app/controllers"
	"github.com/shashiranjanraj/coursemart/app/routes"
	"github.com/shashiranjanraj/coursemart/internal/kernel"
	"github.com/shashiranjanraj/coursemart/internal/server"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/router"
)

// Handler builds the HTTP handler: global middleware, static mounts and the
// API routes. The kernel is released by Close.
func (a *App) Handler() (http.Handler, error) {
	h, err := a.handlers()
	if err != nil {
		return nil, err
	}
	k := kernel.NewHTTPKernel(kernel.Config{
		FrontendURL: a.Settings.FrontendURL,
		RateLimit:   a.Settings.RateLimit,
		Mounts:      a.mounts,
	}, func(r *router.Router) { routes.RegisterAPI(r, h) })
	a.kernel = k
	return k.Handler(), nil
}

func (a *App) handlers() (routes.Handlers, error) {
	secure := a.Settings.Production()
	gql, err := controllers.NewGraphQLController(a.Catalog)
	if err != nil {
		return routes.Handlers{}, err
	}
	return routes.Handlers{
		Issuer:  a.Issuer,
		Users:   controllers.NewAuthController(auth.RoleUser, a.Auth, secure, true),
		Admins:  controllers.NewAuthController(auth.RoleAdmin, a.Auth, secure, a.Settings.AdminSignupEnabled),
		Courses: controllers.NewCourseController(a.Catalog, a.Checkout),
		Orders:  controllers.NewOrderController(a.Checkout),
		GraphQL: gql,
		Health:  controllers.NewHealthController(a.Store),
	}, nil
}

// Serve runs the HTTP server, the gRPC health endpoint and the queue workers
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	handler, err := a.Handler()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(ctx)
	a.StartWorkers(ctx, a.Settings.QueueWorkers)
	defer func() {
		cancel()
		a.Queue.Wait()
	}()

	return server.Run(ctx, server.Config{
		Port:     a.Settings.Port,
		Handler:  handler,
		GRPCPort: a.Settings.GRPCPort,
		Health:   a.Ping,
	})
}

// StartWorkers consumes background jobs with n goroutines until ctx is done.
func (a *App) StartWorkers(ctx context.Context, n int) {
	if n <= 0 {
		n = 1
	}
	a.Queue.Start(ctx, n)
}

// RouteList returns every registered route without connecting to anything.
func RouteList() []router.RouteInfo {
	r := router.New()
	routes.RegisterAPI(r, routes.Handlers{})
	return r.Routes()
}
