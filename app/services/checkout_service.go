package services

import (
	"context"
	"errors"
	"strings"

	"github.com/shashiranjanraj/coursemart/app/models"
	"github.com/shashiranjanraj/coursemart/app/repositories"
	"github.com/shashiranjanraj/coursemart/pkg/collection"
	"github.com/shashiranjanraj/coursemart/pkg/logger"
	"github.com/shashiranjanraj/coursemart/pkg/metrics"
	"github.com/shashiranjanraj/coursemart/pkg/payment"
	"github.com/shashiranjanraj/coursemart/pkg/validate"
)

// OrderInput is the body of POST /order, sent by the browser once the
// payment intent is confirmed.
type OrderInput struct {
	CourseID  string `json:"courseId" validate:"required"`
	PaymentID string `json:"paymentId" validate:"required"`
	Amount    int64  `json:"amount" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Email     string `json:"email" validate:"nullable,email"`
}

// BuyResult is what the browser needs to confirm the card payment.
type BuyResult struct {
	Course       *models.Course
	ClientSecret string
}

// PurchaseHistory lists a user's purchases and the courses that still exist.
type PurchaseHistory struct {
	Purchased  []models.Purchase `json:"purchased"`
	CourseData []models.Course   `json:"courseData"`
}

// CheckoutService runs the buy flow: intent first, then the order once the
// browser reports the payment succeeded.
type CheckoutService struct {
	store    repositories.Store
	payments payment.Processor
	currency string
	// verify re-reads the intent from the processor before recording an
	// order.
	verify bool
}

func NewCheckoutService(store repositories.Store, payments payment.Processor, currency string, verify bool) *CheckoutService {
	if currency == "" {
		currency = "usd"
	}
	return &CheckoutService{
		store:    store,
		payments: payments,
		currency: strings.ToLower(currency),
		verify:   verify,
	}
}

func checkout(stage, outcome string) {
	metrics.Checkout.WithLabelValues(stage, outcome).Inc()
}

// InitiateBuy creates a payment intent for the course price. Nothing is
// persisted; calling it twice creates two intents.
func (s *CheckoutService) InitiateBuy(ctx context.Context, userID, courseID string) (*BuyResult, error) {
	if userID == "" {
		return nil, Auth("Unauthorized")
	}
	if !validID(courseID) {
		checkout("intent", "not_found")
		return nil, NotFound("Course not found")
	}

	course, err := s.store.Courses().FindByID(ctx, courseID)
	if errors.Is(err, repositories.ErrNotFound) {
		checkout("intent", "not_found")
		return nil, NotFound("Course not found")
	}
	if err != nil {
		return nil, Internal("Error in course buying", err)
	}

	owned, err := s.store.Purchases().Exists(ctx, userID, courseID)
	if err != nil {
		return nil, Internal("Error in course buying", err)
	}
	if owned {
		checkout("intent", "conflict")
		return nil, Conflict("User has already purchased this course")
	}

	intent, err := s.payments.CreateIntent(ctx, payment.IntentParams{
		Amount:   course.Price,
		Currency: s.currency,
		Metadata: map[string]string{"userId": userID, "courseId": courseID},
	})
	if err != nil {
		checkout("intent", "error")
		logger.WithCtx(ctx).Error("checkout: create intent failed", "course_id", courseID, "error", err)
		return nil, Payment("Error in course buying", err)
	}

	checkout("intent", "created")
	logger.WithCtx(ctx).Info("checkout: intent created", "course_id", courseID, "user_id", userID, "intent_id", intent.ID)
	return &BuyResult{Course: course, ClientSecret: intent.ClientSecret}, nil
}

// RecordOrder stores the Order and its Purchase for a succeeded payment.
func (s *CheckoutService) RecordOrder(ctx context.Context, userID string, in OrderInput) (*models.Order, error) {
	if userID == "" {
		return nil, Auth("Unauthorized")
	}
	in.CourseID = strings.TrimSpace(in.CourseID)
	in.PaymentID = strings.TrimSpace(in.PaymentID)
	in.Email = normalizeEmail(in.Email)

	if errs := validate.Struct(in); validate.HasErrors(errs) {
		checkout("order", "invalid")
		return nil, Validation("Missing required fields", errs)
	}
	if in.Status != payment.StatusSucceeded {
		checkout("order", "invalid")
		return nil, Validation("Payment has not succeeded", map[string]string{
			"status": "The status must be " + payment.StatusSucceeded + ".",
		})
	}
	if !validID(in.CourseID) {
		checkout("order", "not_found")
		return nil, NotFound("Course not found")
	}

	course, err := s.store.Courses().FindByID(ctx, in.CourseID)
	if errors.Is(err, repositories.ErrNotFound) {
		checkout("order", "not_found")
		return nil, NotFound("Course not found")
	}
	if err != nil {
		return nil, Internal("Error in order creating", err)
	}

	owned, err := s.store.Purchases().Exists(ctx, userID, in.CourseID)
	if err != nil {
		return nil, Internal("Error in order creating", err)
	}
	if owned {
		checkout("order", "conflict")
		return nil, Conflict("Course already purchased")
	}

	currency := s.currency
	if s.verify {
		intent, err := s.payments.GetIntent(ctx, in.PaymentID)
		if err != nil {
			checkout("order", "error")
			return nil, Payment("Could not verify payment", err)
		}
		if fields := mismatches(intent, in, userID, course); len(fields) > 0 {
			checkout("order", "mismatch")
			logger.WithCtx(ctx).Warn("checkout: intent does not match order",
				"payment_id", in.PaymentID, "user_id", userID, "fields", fields)
			return nil, Validation("Payment does not match this order", fields)
		}
		currency = strings.ToLower(intent.Currency)
	}

	order := &models.Order{
		Email:     in.Email,
		UserID:    userID,
		CourseID:  in.CourseID,
		PaymentID: in.PaymentID,
		Amount:    in.Amount,
		Currency:  currency,
		Status:    in.Status,
	}
	purchase := &models.Purchase{UserID: userID, CourseID: in.CourseID}

	err = s.store.RecordPurchase(ctx, order, purchase)
	if errors.Is(err, repositories.ErrDuplicate) {
		checkout("order", "conflict")
		if owned, _ := s.store.Purchases().Exists(ctx, userID, in.CourseID); owned {
			return nil, Conflict("Course already purchased")
		}
		return nil, Conflict("Payment already recorded")
	}
	if err != nil {
		return nil, Internal("Error in order creating", err)
	}

	checkout("order", "recorded")
	logger.WithCtx(ctx).Info("checkout: order recorded",
		"order_id", order.ID, "course_id", order.CourseID, "user_id", userID, "payment_id", order.PaymentID)
	return order, nil
}

func mismatches(intent *payment.Intent, in OrderInput, userID string, course *models.Course) map[string]string {
	fields := map[string]string{}
	if intent.Status != payment.StatusSucceeded {
		fields["status"] = "The payment has status " + intent.Status + "."
	}
	if intent.Amount != in.Amount || intent.Amount != course.Price {
		fields["amount"] = "The amount does not match the course price."
	}
	if intent.Metadata["userId"] != userID || intent.Metadata["courseId"] != in.CourseID {
		fields["paymentId"] = "The payment was made for another purchase."
	}
	return fields
}

// ListPurchases returns the user's purchases with the courses they name.
// Deleted courses are omitted from CourseData.
func (s *CheckoutService) ListPurchases(ctx context.Context, userID string) (*PurchaseHistory, error) {
	purchased, err := s.store.Purchases().ListByUser(ctx, userID)
	if err != nil {
		return nil, Internal("Error in purchase", err)
	}

	ids := collection.Unique(collection.Pluck(purchased, func(p models.Purchase) string { return p.CourseID }))
	courses := []models.Course{}
	if len(ids) > 0 {
		courses, err = s.store.Courses().FindByIDs(ctx, ids)
		if err != nil {
			return nil, Internal("Error in purchase", err)
		}
	}

	if purchased == nil {
		purchased = []models.Purchase{}
	}
	if courses == nil {
		courses = []models.Course{}
	}
	return &PurchaseHistory{Purchased: purchased, CourseData: courses}, nil
}

// ListOrders returns the user's payment receipts, newest first.
func (s *CheckoutService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.store.Orders().ListByUser(ctx, userID)
	if err != nil {
		return nil, Internal("Error in getting orders", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}
