package models

import "time"

// User is an end user who browses and buys courses.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"_id"`
	FirstName string    `gorm:"size:255;not null" bson:"firstName" json:"firstName"`
	LastName  string    `gorm:"size:255;not null" bson:"lastName" json:"lastName"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	Password  string    `gorm:"size:255;not null" bson:"password" json:"-"` // hashed, never serialised
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Admin manages the catalog. Admins live apart from users; the same email
// may exist in both.
type Admin struct {
	ID        string    `gorm:"primaryKey;size:64" bson:"_id" json:"_id"`
	FirstName string    `gorm:"size:255;not null" bson:"firstName" json:"firstName"`
	LastName  string    `gorm:"size:255;not null" bson:"lastName" json:"lastName"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" bson:"email" json:"email"`
	Password  string    `gorm:"size:255;not null" bson:"password" json:"-"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
