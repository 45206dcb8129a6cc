package main

import (
	"context"
	"errors"
	"log"

	"go.uber.org/zap"

	"github.com/resepia/backend/config"
	"github.com/resepia/backend/internal/database"
	"github.com/resepia/backend/internal/logger"
	"github.com/resepia/backend/internal/models"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

// seedPassword is shared by every seeded account
const seedPassword = "testpassword123"

var seedUsers = []types.RegisterRequest{
	{Email: "siti.aminah@example.com", FullName: "Siti Aminah"},
	{Email: "budi.santoso@example.com", FullName: "Budi Santoso"},
	{Email: "dewi.lestari@example.com", FullName: "Dewi Lestari"},
}

var seedRecipes = []types.RecipeInput{
	{
		Name:        "Nasi Goreng Kampung",
		Description: "Village style fried rice with shrimp paste and fried shallots.",
		Ingredients: []string{"3 cups day-old rice", "2 shallots", "2 cloves garlic", "1 tsp terasi", "2 tbsp kecap manis", "1 egg"},
		Steps:       []string{"Pound shallots, garlic and terasi into a paste", "Fry the paste until fragrant", "Add the rice and kecap manis", "Top with a fried egg"},
	},
	{
		Name:        "Soto Ayam",
		Description: "Turmeric chicken soup with glass noodles and lime.",
		Ingredients: []string{"1 whole chicken", "2 stalks lemongrass", "3 cm turmeric", "100 g glass noodles", "2 limes"},
		Steps:       []string{"Simmer the chicken with lemongrass", "Blend and fry the turmeric spice paste", "Stir the paste into the broth", "Serve over noodles with lime"},
	},
	{
		Name:        "Rendang Daging",
		Description: "Beef slow cooked in coconut milk and spices until dry and dark.",
		Ingredients: []string{"1 kg beef chuck", "1 l coconut milk", "10 shallots", "5 red chilies", "2 stalks lemongrass", "1 turmeric leaf"},
		Steps:       []string{"Blend shallots and chilies", "Bring coconut milk and paste to a boil", "Add beef and simmer for three hours", "Stir often until the sauce is dry"},
	},
	{
		Name:        "Es Cendol",
		Description: "Pandan jelly drink with coconut milk and palm sugar syrup.",
		Ingredients: []string{"200 g cendol jelly", "400 ml coconut milk", "150 g palm sugar", "crushed ice"},
		Steps:       []string{"Melt the palm sugar into a syrup", "Layer cendol, syrup and ice in a glass", "Pour over the coconut milk"},
	},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	db, err := database.New(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() { _ = database.Close(db) }()

	if err := database.RunMigrations(db, cfg.DBName, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	auth := service.NewAuthService(db, service.AuthConfig{JWTSecret: cfg.JWTSecret}, zapLogger)
	profiles := service.NewProfileService(db, zapLogger)
	recipes := service.NewRecipeService(db, nil, nil, zapLogger)
	ratings := service.NewRatingService(db, nil, zapLogger)
	comments := service.NewCommentService(db, nil, nil, zapLogger)

	users := make([]*models.User, 0, len(seedUsers))
	for _, req := range seedUsers {
		req.Password = seedPassword
		user, err := auth.Register(ctx, &req)
		if errors.Is(err, service.ErrConflict) {
			user, err = auth.Login(ctx, req.Email, seedPassword)
		}
		if err != nil {
			zapLogger.Fatal("Failed to seed user", zap.String("email", req.Email), zap.Error(err))
		}
		if _, _, err := profiles.EnsureProfile(ctx, user); err != nil {
			zapLogger.Fatal("Failed to seed profile", zap.String("email", req.Email), zap.Error(err))
		}
		users = append(users, user)
	}

	for i, in := range seedRecipes {
		owner := users[i%len(users)]
		recipe, err := recipes.CreateRecipe(ctx, owner.ID, &in, nil)
		if err != nil {
			zapLogger.Error("Failed to seed recipe", zap.String("name", in.Name), zap.Error(err))
			continue
		}

		// every other user reviews and comments
		for j, reviewer := range users {
			if reviewer.ID == owner.ID {
				continue
			}
			_, err := ratings.CreateRating(ctx, reviewer.ID, recipe.ID, &types.RatingRequest{
				Rating: 3 + (i+j)%3,
				Review: "Tried this at home and the family loved it.",
			})
			if err != nil && !errors.Is(err, service.ErrConflict) {
				zapLogger.Error("Failed to seed rating", zap.Error(err))
			}
			if _, err := comments.AddComment(ctx, reviewer.ID, recipe.ID, "Enak! Thanks for sharing."); err != nil {
				zapLogger.Error("Failed to seed comment", zap.Error(err))
			}
		}
		zapLogger.Info("Seeded recipe", zap.String("name", recipe.Name))
	}

	zapLogger.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("recipes", len(seedRecipes)),
		zap.String("password", seedPassword),
	)
}
