package models

import (
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// EmbeddingDimensions is the width of Recipe.Embedding
const EmbeddingDimensions = 64

type Recipe struct {
	ID          uuid.UUID       `gorm:"type:varchar(36);primarykey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Ingredients StringList      `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Steps       StringList      `gorm:"type:jsonb;not null;default:'[]'" json:"steps"`
	ImageURL    *string         `gorm:"size:1024" json:"image_url"`
	ImagePath   string          `gorm:"size:1024" json:"-"`
	Embedding   pgvector.Vector `gorm:"type:vector(64)" json:"-"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Author  *AuthorSummary `gorm:"-" json:"author,omitempty"`
	Ratings *RatingSummary `gorm:"-" json:"ratings,omitempty"`
	IsOwner bool           `gorm:"-" json:"is_owner"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// OwnedBy reports whether userID created the recipe
func (r *Recipe) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && r.UserID == userID
}
