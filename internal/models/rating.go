package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Rating bounds and review length
const (
	MinRating       = 1
	MaxRating       = 5
	MinReviewLength = 10
)

// Rating is a score plus review; one per (user, recipe)
type Rating struct {
	ID        uuid.UUID `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID    uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ratings_user_recipe" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:varchar(36);not null;uniqueIndex:idx_recipe_ratings_user_recipe;index" json:"recipe_id"`
	Rating    int       `gorm:"not null;check:chk_recipe_ratings_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Review    string    `gorm:"type:text;not null" json:"review"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Author *AuthorSummary `gorm:"-" json:"author,omitempty"`
}

func (Rating) TableName() string {
	return "recipe_ratings"
}

func (r *Rating) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// RatingSummary aggregates all reviews of a recipe
type RatingSummary struct {
	Count   int64   `json:"count"`
	Average float64 `json:"average"`
}
