package models

import "time"

// Image is a hosted course image. PublicID is the host's id used to
// destroy it.
type Image struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
}

// Course is a purchasable catalog item owned by exactly one admin. Price is
// in the smallest currency unit.
type Course struct {
	ID          string    `gorm:"primaryKey;size:64" bson:"_id" json:"_id"`
	Title       string    `gorm:"size:255;not null" bson:"title" json:"title"`
	Description string    `gorm:"type:text;not null" bson:"description" json:"description"`
	Price       int64     `gorm:"not null;default:0" bson:"price" json:"price"`
	Images      []Image   `gorm:"type:text;serializer:json" bson:"images" json:"images"`
	CreatorID   string    `gorm:"size:64;not null;index" bson:"creatorId" json:"creatorId"`
	CreatedAt   time.Time `gorm:"index" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PublicIDs lists the host ids of the course images, in order.
func (c Course) PublicIDs() []string {
	ids := make([]string, len(c.Images))
	for i, img := range c.Images {
		ids[i] = img.PublicID
	}
	return ids
}
