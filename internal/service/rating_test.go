package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/testhelpers"
	"github.com/resepia/backend/internal/types"
)

func TestValidateRating(t *testing.T) {
	tests := []struct {
		name  string
		req   types.RatingRequest
		field string
	}{
		{"valid", types.RatingRequest{Rating: 4, Review: "Really tasty dish"}, ""},
		{"too low", types.RatingRequest{Rating: 0, Review: "Really tasty dish"}, "rating"},
		{"too high", types.RatingRequest{Rating: 6, Review: "Really tasty dish"}, "rating"},
		{"short review", types.RatingRequest{Rating: 3, Review: "  meh    "}, "review"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.ValidateRating(&tt.req)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestRatingService(t *testing.T) {
	ctx := context.Background()
	db := testhelpers.NewSQLiteDB(t)
	svc := service.NewRatingService(db, nil, zap.NewNop())

	owner := testhelpers.CreateUser(t, db, "owner@example.com")
	reviewer := testhelpers.CreateUser(t, db, "reviewer@example.com")
	testhelpers.CreateProfile(t, db, reviewer.ID, "reviewer")
	second := testhelpers.CreateUser(t, db, "second@example.com")
	recipe := testhelpers.CreateRecipe(t, db, owner.ID, "Gado Gado")

	_, err := svc.GetRating(ctx, reviewer.ID, recipe.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.UpdateRating(ctx, reviewer.ID, recipe.ID, &types.RatingRequest{Rating: 3, Review: "Changed my mind"})
	assert.ErrorIs(t, err, service.ErrNotFound)

	created, err := svc.CreateRating(ctx, reviewer.ID, recipe.ID, &types.RatingRequest{Rating: 5, Review: "  Peanut sauce is perfect "})
	require.NoError(t, err)
	assert.Equal(t, 5, created.Rating)
	assert.Equal(t, "Peanut sauce is perfect", created.Review)
	require.NotNil(t, created.Author)
	assert.Equal(t, "reviewer", created.Author.Username)

	_, err = svc.CreateRating(ctx, reviewer.ID, recipe.ID, &types.RatingRequest{Rating: 1, Review: "Trying to rate twice"})
	assert.ErrorIs(t, err, service.ErrConflict)

	updated, err := svc.UpdateRating(ctx, reviewer.ID, recipe.ID, &types.RatingRequest{Rating: 4, Review: "A bit too sweet"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 4, updated.Rating)

	_, err = svc.CreateRating(ctx, second.ID, recipe.ID, &types.RatingRequest{Rating: 1, Review: "Not for me at all"})
	require.NoError(t, err)

	ratings, summary, err := svc.ListRatings(ctx, recipe.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 2)
	assert.Equal(t, int64(2), summary.Count)
	assert.InDelta(t, 2.5, summary.Average, 0.001)

	_, err = svc.CreateRating(ctx, reviewer.ID, uuid.New(), &types.RatingRequest{Rating: 4, Review: "Unknown recipe"})
	assert.ErrorIs(t, err, service.ErrNotFound)
}
