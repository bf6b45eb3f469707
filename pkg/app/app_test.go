package app_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/services"
	"github.com/shashiranjanraj/coursemart/config"
	"github.com/shashiranjanraj/coursemart/pkg/app"
	"github.com/shashiranjanraj/coursemart/pkg/auth"
	"github.com/shashiranjanraj/coursemart/pkg/cache"
	"github.com/shashiranjanraj/coursemart/pkg/testkit"
)

func testSettings(t *testing.T) config.Settings {
	t.Helper()
	return config.Settings{
		Env:                "testing",
		Port:               "0",
		DBDriver:           "memory",
		CacheTTL:           time.Minute,
		UserTokenSecret:    "user-secret-for-tests",
		AdminTokenSecret:   "admin-secret-for-tests",
		TokenTTL:           time.Hour,
		StripeSecretKey:    "sk_test_123",
		StripeAPIBase:      "https://stripe.test",
		Currency:           "usd",
		ImageHost:          "local",
		ImageFolder:        "courses",
		UploadConcurrency:  2,
		StorageLocalRoot:   t.TempDir(),
		StorageURL:         "http://localhost/storage",
		FrontendURL:        "http://localhost:5173",
		AdminSignupEnabled: true,
		QueueDriver:        "memory",
		QueueWorkers:       1,
	}
}

func newApp(t *testing.T, s config.Settings) *app.App {
	t.Helper()
	a, err := app.New(context.Background(), s)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestAPIScenarios(t *testing.T) {
	a := newApp(t, testSettings(t))
	ctx := context.Background()

	buyer, err := a.Auth.Signup(ctx, auth.RoleUser, services.SignupInput{
		FirstName: "Buyer", LastName: "Person", Email: "buyer@example.com", Password: "secret1",
	})
	require.NoError(t, err)
	admin, err := a.Auth.Signup(ctx, auth.RoleAdmin, services.SignupInput{
		FirstName: "Admin", LastName: "Person", Email: "admin@example.com", Password: "secret1",
	})
	require.NoError(t, err)

	course := &models.Course{
		Title:       "Go in Production",
		Description: "Services, queues and storage.",
		Price:       4999,
		CreatorID:   admin.ID,
		Images:      []models.Image{{PublicID: "courses/cover.png", URL: "http://localhost/storage/courses/cover.png"}},
	}
	require.NoError(t, a.Store.Courses().Create(ctx, course))

	userToken, err := a.Issuer.Issue(auth.RoleUser, buyer.ID)
	require.NoError(t, err)

	handler, err := a.Handler()
	require.NoError(t, err)

	testkit.RunDir(t, handler, "testdata/api", testkit.Vars{
		"userToken": userToken,
		"userId":    buyer.ID,
		"adminId":   admin.ID,
		"courseId":  course.ID,
	})
}

func TestNewRejectsUnknownDrivers(t *testing.T) {
	s := testSettings(t)
	s.DBDriver = "cassandra"
	_, err := app.New(context.Background(), s)
	assert.Error(t, err)

	s = testSettings(t)
	s.ImageHost = "ftp"
	_, err = app.New(context.Background(), s)
	assert.Error(t, err)
}

func TestZeroCacheTTLDisablesCache(t *testing.T) {
	s := testSettings(t)
	s.CacheTTL = 0
	a := newApp(t, s)
	assert.IsType(t, cache.Nop{}, a.Cache)

	a = newApp(t, testSettings(t))
	assert.IsType(t, &cache.Memory{}, a.Cache)
}

func TestMigrateNeedsSQL(t *testing.T) {
	a := newApp(t, testSettings(t))
	assert.ErrorIs(t, a.Migrate(&bytes.Buffer{}), app.ErrNotSQL)
}

func TestCreateAdmin(t *testing.T) {
	a := newApp(t, testSettings(t))
	var out bytes.Buffer

	in := services.SignupInput{FirstName: "Root", LastName: "Admin", Email: "root@example.com", Password: "secret1"}
	require.NoError(t, a.CreateAdmin(context.Background(), in, &out))
	assert.Contains(t, out.String(), "root@example.com")

	err := a.CreateAdmin(context.Background(), in, &out)
	assert.True(t, services.IsKind(err, services.ConflictError))
}

func TestRouteListNeedsNoBackends(t *testing.T) {
	names := map[string]bool{}
	for _, r := range app.RouteList() {
		names[r.Name] = true
	}
	for _, want := range []string{"user.signup", "admin.login", "course.create", "course.buy", "order.store", "graphql"} {
		assert.True(t, names[want], "missing route %s", want)
	}
}
