package types

import "github.com/google/uuid"

// RegisterRequest creates an account
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"max=255"`
}

// LoginRequest exchanges credentials for a token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// ProfileRequest is used by both profile setup and profile edit
type ProfileRequest struct {
	FirstName string  `json:"first_name" binding:"required,notblank,max=100"`
	LastName  string  `json:"last_name" binding:"required,notblank,max=100"`
	Username  string  `json:"username" binding:"required,notblank,max=50"`
	DOB       *string `json:"dob"`
	Location  *string `json:"location" binding:"omitempty,max=255"`
}

// RecipeInput is the normalized content of a recipe form
type RecipeInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Ingredients LineList `json:"ingredients"`
	Steps       LineList `json:"steps"`
}

// CommentRequest posts a comment
type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// RatingRequest creates or updates the caller's review
type RatingRequest struct {
	Rating int    `json:"rating" binding:"required"`
	Review string `json:"review" binding:"required"`
}

// DeleteUserRequest is the body of the account deletion endpoint
type DeleteUserRequest struct {
	UserID string `json:"user_id"`
}

// ChatRequest sends a message to the assistant
type ChatRequest struct {
	Message   string     `json:"message"`
	SessionID string     `json:"session_id"`
	RecipeID  *uuid.UUID `json:"recipe_id"`
}
