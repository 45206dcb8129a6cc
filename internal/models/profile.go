package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Profile is the public metadata of a user, one per account
type Profile struct {
	UserID    uuid.UUID `gorm:"type:varchar(36);primarykey" json:"user_id"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
	Username  string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	DOB       *Date     `gorm:"column:dob;type:date" json:"dob"`
	Location  *string   `gorm:"size:255" json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuthorSummary is the slice of a profile embedded in recipes, comments and reviews
type AuthorSummary struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DisplayName string    `json:"display_name"`
}

// DisplayName joins first and last name, falling back to the username
func (p *Profile) DisplayName() string {
	name := TitleName(p.FirstName + " " + p.LastName)
	if name == "" {
		return p.Username
	}
	return name
}

// TitleName capitalizes words typed entirely in lower case and keeps
// every other word as written, so "McDonald" survives.
func TitleName(name string) string {
	words := strings.Fields(name)
	title := cases.Title(language.Und)
	for i, w := range words {
		if w == strings.ToLower(w) {
			words[i] = title.String(w)
		}
	}
	return strings.Join(words, " ")
}

// Summary returns the author view of the profile
func (p *Profile) Summary() *AuthorSummary {
	return &AuthorSummary{
		UserID:      p.UserID,
		Username:    p.Username,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		DisplayName: p.DisplayName(),
	}
}
