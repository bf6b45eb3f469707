package repositories_test

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	_ "github.com/shashiranjanraj/coursemart/database/migrations"
	"github.com/shashiranjanraj/coursemart/pkg/database"
	"github.com/shashiranjanraj/coursemart/pkg/migration"
	"github.com/shashiranjanraj/coursemart/pkg/mongodb"
)

const missingID = "0123456789abcdef01234567"

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) repositories.Store {
		return repositories.NewMemoryStore()
	})
}

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) repositories.Store {
		ctx := context.Background()
		db, err := database.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "coursemart.db"))
		if err != nil {
			t.Skipf("sqlite unavailable: %v", err)
		}
		require.NoError(t, migration.New(db, io.Discard).Run())

		store := repositories.NewSQLStore(db, "sqlite")
		t.Cleanup(func() { _ = store.Close(ctx) })
		return store
	})
}

// TestMongoStore runs against a live server named by MONGO_TEST_URI.
func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	runStoreContract(t, func(t *testing.T) repositories.Store {
		ctx := context.Background()
		name := fmt.Sprintf("coursemart_test_%d", time.Now().UnixNano())
		client, db, err := mongodb.Connect(ctx, uri, name)
		require.NoError(t, err)

		store := repositories.NewMongoStore(client, db)
		require.NoError(t, store.EnsureIndexes(ctx))
		t.Cleanup(func() {
			_ = db.Drop(ctx)
			_ = store.Close(ctx)
		})
		return store
	})
}

func runStoreContract(t *testing.T, open func(t *testing.T) repositories.Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, open(t)) })
	t.Run("admins", func(t *testing.T) { testAdmins(t, open(t)) })
	t.Run("courses", func(t *testing.T) { testCourses(t, open(t)) })
	t.Run("purchases", func(t *testing.T) { testPurchases(t, open(t)) })
}

func testUsers(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	u := &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "hash"}
	require.NoError(t, s.Users().Create(ctx, u))
	require.NotEmpty(t, u.ID)

	err := s.Users().Create(ctx, &models.User{FirstName: "Other", LastName: "Person", Email: "ada@example.com", Password: "hash"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	byEmail, err := s.Users().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.Password)

	byID, err := s.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", byID.FirstName)

	_, err = s.Users().FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	_, err = s.Users().FindByID(ctx, missingID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func testAdmins(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	require.NoError(t, s.Users().Create(ctx, &models.User{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "hash"}))

	// The user and admin namespaces are separate.
	a := &models.Admin{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "hash"}
	require.NoError(t, s.Admins().Create(ctx, a))

	err := s.Admins().Create(ctx, &models.Admin{FirstName: "Dup", LastName: "Admin", Email: "ada@example.com", Password: "hash"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	got, err := s.Admins().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.Admins().FindByID(ctx, missingID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func newCourse(title, creator string) *models.Course {
	return &models.Course{
		Title:       title,
		Description: title + " description",
		Price:       1000,
		CreatorID:   creator,
		Images:      []models.Image{{PublicID: "courses/" + title, URL: "https://img.test/" + title}},
	}
}

func ids(courses []models.Course) []string {
	out := make([]string, len(courses))
	for i, c := range courses {
		out[i] = c.ID
	}
	return out
}

func testCourses(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	courses := s.Courses()

	first := newCourse("first", "admin-1")
	require.NoError(t, courses.Create(ctx, first))
	time.Sleep(5 * time.Millisecond)
	second := newCourse("second", "admin-2")
	require.NoError(t, courses.Create(ctx, second))

	list, err := courses.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID, first.ID}, ids(list), "newest first")

	found, err := courses.FindByIDs(ctx, []string{first.ID, missingID})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, ids(found))

	empty, err := courses.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	got, err := courses.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Images, got.Images)

	_, err = courses.FindOwned(ctx, first.ID, "admin-2")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	owned, err := courses.FindOwned(ctx, first.ID, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "first", owned.Title)

	t.Run("update only by owner", func(t *testing.T) {
		foreign := *first
		foreign.CreatorID = "admin-2"
		foreign.Title = "stolen"
		assert.ErrorIs(t, courses.UpdateOwned(ctx, &foreign), repositories.ErrNotFound)

		update := *first
		update.Title = "renamed"
		update.Price = 2500
		update.Images = []models.Image{{PublicID: "courses/new", URL: "https://img.test/new"}}
		require.NoError(t, courses.UpdateOwned(ctx, &update))

		got, err := courses.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Title)
		assert.Equal(t, int64(2500), got.Price)
		assert.Equal(t, "admin-1", got.CreatorID)
		assert.Equal(t, update.Images, got.Images)
	})

	t.Run("delete only by owner", func(t *testing.T) {
		assert.ErrorIs(t, courses.DeleteOwned(ctx, second.ID, "admin-1"), repositories.ErrNotFound)
		require.NoError(t, courses.DeleteOwned(ctx, second.ID, "admin-2"))

		_, err := courses.FindByID(ctx, second.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, courses.DeleteOwned(ctx, second.ID, "admin-2"), repositories.ErrNotFound)
	})
}

func order(userID, courseID, paymentID string) *models.Order {
	return &models.Order{
		UserID: userID, CourseID: courseID, PaymentID: paymentID,
		Amount: 1000, Currency: "usd", Status: "succeeded",
	}
}

func testPurchases(t *testing.T, s repositories.Store) {
	ctx := context.Background()

	owned, err := s.Purchases().Exists(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.False(t, owned)

	require.NoError(t, s.RecordPurchase(ctx, order("user-1", "course-1", "pi_1"),
		&models.Purchase{UserID: "user-1", CourseID: "course-1"}))

	owned, err = s.Purchases().Exists(ctx, "user-1", "course-1")
	require.NoError(t, err)
	assert.True(t, owned)

	t.Run("second purchase of the same course", func(t *testing.T) {
		err := s.RecordPurchase(ctx, order("user-1", "course-1", "pi_2"),
			&models.Purchase{UserID: "user-1", CourseID: "course-1"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		orders, err := s.Orders().ListByUser(ctx, "user-1")
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})

	t.Run("replayed payment id writes nothing", func(t *testing.T) {
		err := s.RecordPurchase(ctx, order("user-1", "course-2", "pi_1"),
			&models.Purchase{UserID: "user-1", CourseID: "course-2"})
		assert.ErrorIs(t, err, repositories.ErrDuplicate)

		owned, err := s.Purchases().Exists(ctx, "user-1", "course-2")
		require.NoError(t, err)
		assert.False(t, owned)
	})

	purchases, err := s.Purchases().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, "course-1", purchases[0].CourseID)

	others, err := s.Purchases().ListByUser(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, others)
}
