package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/pkg/payment"
)

type checkoutFixture struct {
	svc    *CheckoutService
	store  *repositories.MemoryStore
	proc   *fakeProcessor
	course *models.Course
}

func newCheckout(t *testing.T, verify bool) checkoutFixture {
	t.Helper()
	f := checkoutFixture{store: repositories.NewMemoryStore(), proc: newFakeProcessor()}
	f.svc = NewCheckoutService(f.store, f.proc, "USD", verify)

	f.course = &models.Course{
		Title:       "Go",
		Description: "Learn Go",
		Price:       20,
		Images:      []models.Image{{PublicID: "courses/go.png", URL: "https://img.test/courses/go.png"}},
		CreatorID:   "admin-1",
	}
	require.NoError(t, f.store.Courses().Create(context.Background(), f.course))
	return f
}

// paidOrder runs InitiateBuy, marks the intent paid and returns the order
// body the browser would send.
func (f checkoutFixture) paidOrder(t *testing.T, userID string) OrderInput {
	t.Helper()
	res, err := f.svc.InitiateBuy(context.Background(), userID, f.course.ID)
	require.NoError(t, err)

	id := res.ClientSecret[:len(res.ClientSecret)-len("_secret")]
	f.proc.succeed(id)
	return OrderInput{
		CourseID:  f.course.ID,
		PaymentID: id,
		Amount:    20,
		Status:    payment.StatusSucceeded,
		Email:     "a@x.com",
	}
}

func TestInitiateBuyReturnsClientSecret(t *testing.T) {
	f := newCheckout(t, true)

	res, err := f.svc.InitiateBuy(context.Background(), "user-1", f.course.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, int64(20), res.Course.Price)

	intent, err := f.proc.GetIntent(context.Background(), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, "usd", intent.Currency)
	assert.Equal(t, int64(20), intent.Amount)
	assert.Equal(t, map[string]string{"userId": "user-1", "courseId": f.course.ID}, intent.Metadata)
}

func TestInitiateBuyTwiceBeforeOrder(t *testing.T) {
	f := newCheckout(t, true)
	ctx := context.Background()

	first, err := f.svc.InitiateBuy(ctx, "user-1", f.course.ID)
	require.NoError(t, err)
	second, err := f.svc.InitiateBuy(ctx, "user-1", f.course.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ClientSecret, second.ClientSecret)

	purchases, err := f.store.Purchases().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, purchases)
}

func TestInitiateBuyUnknownCourse(t *testing.T) {
	f := newCheckout(t, true)

	_, err := f.svc.InitiateBuy(context.Background(), "user-1", "0123456789abcdef01234567")
	se := requireKind(t, err, NotFoundError)
	assert.Equal(t, "Course not found", se.Message)
}

func TestInitiateBuyAfterPurchase(t *testing.T) {
	f := newCheckout(t, true)
	ctx := context.Background()

	_, err := f.svc.RecordOrder(ctx, "user-1", f.paidOrder(t, "user-1"))
	require.NoError(t, err)

	_, err = f.svc.InitiateBuy(ctx, "user-1", f.course.ID)
	requireKind(t, err, ConflictError)
}

func TestInitiateBuyProcessorFailure(t *testing.T) {
	f := newCheckout(t, true)
	f.proc.err = errors.New("connection refused")

	_, err := f.svc.InitiateBuy(context.Background(), "user-1", f.course.ID)
	se := requireKind(t, err, PaymentError)
	assert.Equal(t, 500, se.StatusCode())
}

func TestRecordOrderOnce(t *testing.T) {
	f := newCheckout(t, true)
	ctx := context.Background()
	in := f.paidOrder(t, "user-1")

	order, err := f.svc.RecordOrder(ctx, "user-1", in)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "usd", order.Currency)
	assert.Equal(t, "a@x.com", order.Email)

	_, err = f.svc.RecordOrder(ctx, "user-1", in)
	se := requireKind(t, err, ConflictError)
	assert.Equal(t, "Course already purchased", se.Message)

	purchases, err := f.store.Purchases().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, purchases, 1)
	orders, err := f.svc.ListOrders(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestRecordOrderRejectsUnfinishedPayment(t *testing.T) {
	f := newCheckout(t, false)
	in := f.paidOrder(t, "user-1")
	in.Status = "requires_action"

	_, err := f.svc.RecordOrder(context.Background(), "user-1", in)
	se := requireKind(t, err, ValidationError)
	assert.Contains(t, se.Fields, "status")
}

func TestRecordOrderMissingFields(t *testing.T) {
	f := newCheckout(t, false)

	_, err := f.svc.RecordOrder(context.Background(), "user-1", OrderInput{CourseID: f.course.ID, Status: "succeeded"})
	se := requireKind(t, err, ValidationError)
	assert.Equal(t, "Missing required fields", se.Message)
	assert.Contains(t, se.Fields, "paymentId")
	assert.Contains(t, se.Fields, "amount")
}

func TestRecordOrderNeedsUser(t *testing.T) {
	f := newCheckout(t, false)

	_, err := f.svc.RecordOrder(context.Background(), "", OrderInput{})
	requireKind(t, err, AuthError)
}

func TestRecordOrderVerifiesIntent(t *testing.T) {
	ctx := context.Background()

	t.Run("amount mismatch", func(t *testing.T) {
		f := newCheckout(t, true)
		in := f.paidOrder(t, "user-1")
		in.Amount = 1

		_, err := f.svc.RecordOrder(ctx, "user-1", in)
		se := requireKind(t, err, ValidationError)
		assert.Contains(t, se.Fields, "amount")
	})

	t.Run("intent of another user", func(t *testing.T) {
		f := newCheckout(t, true)
		in := f.paidOrder(t, "user-2")

		_, err := f.svc.RecordOrder(ctx, "user-1", in)
		se := requireKind(t, err, ValidationError)
		assert.Contains(t, se.Fields, "paymentId")
	})

	t.Run("intent not paid", func(t *testing.T) {
		f := newCheckout(t, true)
		res, err := f.svc.InitiateBuy(ctx, "user-1", f.course.ID)
		require.NoError(t, err)

		_, err = f.svc.RecordOrder(ctx, "user-1", OrderInput{
			CourseID: f.course.ID, PaymentID: "pi_1", Amount: 20, Status: payment.StatusSucceeded,
		})
		se := requireKind(t, err, ValidationError)
		assert.Contains(t, se.Fields, "status")
		assert.NotEmpty(t, res.ClientSecret)
	})

	t.Run("processor down", func(t *testing.T) {
		f := newCheckout(t, true)
		in := f.paidOrder(t, "user-1")
		f.proc.err = errors.New("timeout")

		_, err := f.svc.RecordOrder(ctx, "user-1", in)
		requireKind(t, err, PaymentError)
	})

	t.Run("verification disabled trusts the client", func(t *testing.T) {
		f := newCheckout(t, false)
		_, err := f.svc.RecordOrder(ctx, "user-1", OrderInput{
			CourseID: f.course.ID, PaymentID: "pi_unknown", Amount: 20, Status: payment.StatusSucceeded,
		})
		require.NoError(t, err)
	})
}

func TestRecordOrderReusedPayment(t *testing.T) {
	f := newCheckout(t, false)
	ctx := context.Background()

	other := &models.Course{Title: "Rust", Description: "Learn Rust", Price: 20, CreatorID: "admin-1"}
	require.NoError(t, f.store.Courses().Create(ctx, other))

	in := OrderInput{CourseID: f.course.ID, PaymentID: "pi_same", Amount: 20, Status: payment.StatusSucceeded}
	_, err := f.svc.RecordOrder(ctx, "user-1", in)
	require.NoError(t, err)

	in.CourseID = other.ID
	_, err = f.svc.RecordOrder(ctx, "user-1", in)
	se := requireKind(t, err, ConflictError)
	assert.Equal(t, "Payment already recorded", se.Message)
}

func TestPurchasesSurviveCourseDeletion(t *testing.T) {
	f := newCheckout(t, false)
	ctx := context.Background()

	kept := &models.Course{Title: "Rust", Description: "Learn Rust", Price: 30, CreatorID: "admin-1"}
	require.NoError(t, f.store.Courses().Create(ctx, kept))

	_, err := f.svc.RecordOrder(ctx, "user-1", OrderInput{CourseID: f.course.ID, PaymentID: "pi_a", Amount: 20, Status: "succeeded"})
	require.NoError(t, err)
	_, err = f.svc.RecordOrder(ctx, "user-1", OrderInput{CourseID: kept.ID, PaymentID: "pi_b", Amount: 30, Status: "succeeded"})
	require.NoError(t, err)

	require.NoError(t, f.store.Courses().DeleteOwned(ctx, f.course.ID, "admin-1"))

	history, err := f.svc.ListPurchases(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, history.Purchased, 2)
	require.Len(t, history.CourseData, 1)
	assert.Equal(t, kept.ID, history.CourseData[0].ID)

	orders, err := f.svc.ListOrders(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestListPurchasesEmpty(t *testing.T) {
	f := newCheckout(t, false)

	history, err := f.svc.ListPurchases(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, history.Purchased)
	assert.NotNil(t, history.CourseData)
}
