package models

import "time"

// Purchase records that a user owns a course. (UserID, CourseID) is unique
// in every store.
type Purchase struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"_id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:idx_purchases_user_course" bson:"userId" json:"userId"`
	CourseID  string    `gorm:"size:64;not null;uniqueIndex:idx_purchases_user_course" bson:"courseId" json:"courseId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Order is the payment receipt written together with its Purchase.
type Order struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"_id"`
	Email     string    `gorm:"size:255" bson:"email,omitempty" json:"email,omitempty"`
	UserID    string    `gorm:"size:64;not null;index" bson:"userId" json:"userId"`
	CourseID  string    `gorm:"size:64;not null;index" bson:"courseId" json:"courseId"`
	PaymentID string    `gorm:"size:255;not null;uniqueIndex" bson:"paymentId" json:"paymentId"`
	Amount    int64     `gorm:"not null" bson:"amount" json:"amount"`
	Currency  string    `gorm:"size:10;not null" bson:"currency" json:"currency"`
	Status    string    `gorm:"size:50;not null" bson:"status" json:"status"`
	CreatedAt time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
