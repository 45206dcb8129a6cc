package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/resepia/backend/internal/middleware"
	"github.com/resepia/backend/internal/service"
	"github.com/resepia/backend/internal/types"
)

// multipart overhead allowed on top of the image itself
const formOverheadBytes = 1 << 20

type RecipeHandler struct {
	recipeService   service.IRecipeService
	authService     service.IAuthService
	creationLimiter *middleware.RateLimiter
	modifyLimiter   *middleware.RateLimiter
	maxImageBytes   int64
}

func NewRecipeHandler(recipeService service.IRecipeService, authService service.IAuthService, creationLimiter, modifyLimiter *middleware.RateLimiter, maxImageBytes int64) *RecipeHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 5 << 20
	}
	return &RecipeHandler{
		recipeService:   recipeService,
		authService:     authService,
		creationLimiter: creationLimiter,
		modifyLimiter:   modifyLimiter,
		maxImageBytes:   maxImageBytes,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := middleware.AuthMiddleware(h.authService)
	optionalAuth := middleware.OptionalAuth(h.authService)

	recipes := router.Group("/recipes")
	{
		recipes.GET("", optionalAuth, h.ListRecipes)
		recipes.GET("/mine", auth, h.ListMyRecipes)
		recipes.GET("/:id", optionalAuth, h.GetRecipe)
		recipes.POST("", auth, optional(h.creationLimiter, false), h.CreateRecipe)
		recipes.PUT("/:id", auth, optional(h.modifyLimiter, true), h.UpdateRecipe)
		recipes.DELETE("/:id", auth, h.DeleteRecipe)
	}
}

// ListRecipes returns every recipe newest first; q searches and
// user_id narrows to one author
func (h *RecipeHandler) ListRecipes(c *gin.Context) {
	viewer, _ := middleware.UserIDFromContext(c)
	filter := service.RecipeFilter{
		Query:  c.Query("q"),
		Viewer: viewer,
	}
	if raw := c.Query("user_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		filter.UserID = &id
	}

	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) ListMyRecipes(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	recipes, err := h.recipeService.ListRecipes(c.Request.Context(), service.RecipeFilter{
		UserID: &userID,
		Viewer: userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

func (h *RecipeHandler) GetRecipe(c *gin.Context) {
	id, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}
	viewer, _ := middleware.UserIDFromContext(c)

	recipe, err := h.recipeService.GetRecipe(c.Request.Context(), id, viewer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) CreateRecipe(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)

	in, img, ok := h.bindRecipe(c)
	if !ok {
		return
	}
	defer img.Close()

	recipe, err := h.recipeService.CreateRecipe(c.Request.Context(), userID, in, img.Upload())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) UpdateRecipe(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}

	in, img, ok := h.bindRecipe(c)
	if !ok {
		return
	}
	defer img.Close()

	recipe, err := h.recipeService.UpdateRecipe(c.Request.Context(), userID, id, in, img.Upload())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe": recipe})
}

func (h *RecipeHandler) DeleteRecipe(c *gin.Context) {
	userID, _ := middleware.UserIDFromContext(c)
	id, ok := parseID(c, "id", "recipe")
	if !ok {
		return
	}

	if err := h.recipeService.DeleteRecipe(c.Request.Context(), userID, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// formImage is an uploaded image file kept open for the request
type formImage struct {
	upload *service.ImageUpload
	file   multipart.File
}

// Upload returns nil when no image was sent
func (f *formImage) Upload() *service.ImageUpload {
	if f == nil {
		return nil
	}
	return f.upload
}

func (f *formImage) Close() {
	if f != nil {
		_ = f.file.Close()
	}
}

// bindRecipe reads a recipe from JSON or from a multipart form with an
// optional image file
func (h *RecipeHandler) bindRecipe(c *gin.Context) (*types.RecipeInput, *formImage, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var in types.RecipeInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondBindError(c, err)
			return nil, nil, false
		}
		return &in, nil, true
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+formOverheadBytes)
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Image is too large"})
			return nil, nil, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data"})
		return nil, nil, false
	}

	in := &types.RecipeInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Ingredients: types.SplitLines(c.PostForm("ingredients")),
		Steps:       types.SplitLines(c.PostForm("steps")),
	}

	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil, true
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image upload"})
		return nil, nil, false
	}
	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image upload"})
		return nil, nil, false
	}

	return in, &formImage{
		upload: &service.ImageUpload{
			Filename: header.Filename,
			Size:     header.Size,
			Body:     file,
		},
		file: file,
	}, true
}

// parseID reads a UUID path parameter, answering 400 when malformed
func parseID(c *gin.Context, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID"})
		return uuid.Nil, false
	}
	return id, true
}
