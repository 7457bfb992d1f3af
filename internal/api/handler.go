package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"recipebox/internal/ingredient"
	"recipebox/internal/platform/extractor"
	"recipebox/internal/platform/logging"
	"recipebox/internal/recipe"
)

// RecipeExtractor turns a web page URL into a recipe.
type RecipeExtractor interface {
	Extract(ctx context.Context, url string) (*recipe.Recipe, error)
}

// ImageCache downloads an image and returns the local path of its copy.
type ImageCache interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// RecipeStore defines the interface for recipe data operations.
type RecipeStore interface {
	Add(ctx context.Context, r *recipe.Recipe) error
	Get(ctx context.Context, id string) (*recipe.Recipe, error)
	List(ctx context.Context, filter recipe.Filter) ([]*recipe.Recipe, error)
	Update(ctx context.Context, r *recipe.Recipe) error
	Delete(ctx context.Context, id string) error
	ToggleFavourite(ctx context.Context, id string) (bool, error)
	GetEntitlement(ctx context.Context) (recipe.Entitlement, error)
	SetPro(ctx context.Context, pro bool) error
}

// Handler handles HTTP requests.
type Handler struct {
	Extractor   RecipeExtractor
	Fallback    RecipeExtractor
	Images      ImageCache
	RecipeStore RecipeStore
}

// NewHandler creates a new Handler. fallback and images may be nil.
func NewHandler(primary, fallback RecipeExtractor, images ImageCache, recipeStore RecipeStore) *Handler {
	return &Handler{Extractor: primary, Fallback: fallback, Images: images, RecipeStore: recipeStore}
}

const (
	importTimeout = 45 * time.Second
	storeTimeout  = 5 * time.Second
)

type importRequest struct {
	URL string `json:"url" binding:"required"`
}

// recipeInput is the editable part of a recipe. Nil fields are left as they are.
type recipeInput struct {
	Title        *string  `json:"title"`
	SourceURL    *string  `json:"source_url"`
	ImageURL     *string  `json:"image_url"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Cuisine      *string  `json:"cuisine"`
	CookingTime  *string  `json:"cooking_time"`
	Servings     *string  `json:"servings"`
	Notes        *string  `json:"notes"`
}

func (in *recipeInput) apply(r *recipe.Recipe) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&r.Title, in.Title)
	set(&r.SourceURL, in.SourceURL)
	set(&r.ImageURL, in.ImageURL)
	set(&r.Cuisine, in.Cuisine)
	set(&r.CookingTime, in.CookingTime)
	set(&r.Servings, in.Servings)
	set(&r.Notes, in.Notes)

	if in.Ingredients != nil {
		r.ApplyIngredientText(in.Ingredients)
	}
	if in.Instructions != nil {
		r.Instructions = in.Instructions
	}
}

// recipeFields drops the recipe's methods so its fields are flattened into
// recipeResponse.
type recipeFields recipe.Recipe

// recipeResponse is a recipe together with its display rows.
type recipeResponse struct {
	recipeFields
	Rows []ingredient.DisplayRow `json:"rows"`
}

func newRecipeResponse(r *recipe.Recipe) recipeResponse {
	return recipeResponse{recipeFields: recipeFields(*r), Rows: r.DisplayRows()}
}

// ImportRecipe extracts a recipe from a web page and stores it.
func (h *Handler) ImportRecipe(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}
	if !validURL(req.URL) {
		c.String(http.StatusBadRequest, "Invalid URL. Only http and https links can be imported.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), importTimeout)
	defer cancel()
	logger := logging.FromContext(ctx)

	ent, err := h.RecipeStore.GetEntitlement(ctx)
	if err != nil {
		h.fail(c, err, "database error")
		return
	}
	if !ent.CanAdd() {
		h.fail(c, recipe.ErrRecipeLimitReached, "")
		return
	}

	r, err := h.extract(ctx, req.URL)
	if err != nil {
		if errors.Is(err, extractor.ErrNoRecipe) {
			c.String(http.StatusUnprocessableEntity, "We couldn't find a recipe on that page.")
			return
		}
		h.fail(c, err, "extraction error")
		return
	}

	if r.ImageURL != "" && h.Images != nil {
		imagePath, err := h.Images.Fetch(ctx, r.ImageURL)
		if err != nil {
			logger.Warn().Err(err).Str("image_url", r.ImageURL).Msg("failed to cache recipe image")
		} else {
			r.ImagePath = imagePath
		}
	}

	if err := h.RecipeStore.Add(ctx, r); err != nil {
		h.fail(c, err, "failed to save recipe")
		return
	}

	logger.Info().Str("recipe_id", r.ID).Str("url", req.URL).Int("ingredients", len(r.Ingredients)).Msg("recipe imported")
	c.JSON(http.StatusCreated, newRecipeResponse(r))
}

func (h *Handler) extract(ctx context.Context, url string) (*recipe.Recipe, error) {
	r, err := h.Extractor.Extract(ctx, url)
	if err == nil || h.Fallback == nil || errors.Is(err, context.DeadlineExceeded) {
		return r, err
	}

	logging.FromContext(ctx).Warn().Err(err).Str("url", url).Msg("extraction API failed, falling back to Gemini")
	return h.Fallback.Extract(ctx, url)
}

// CreateRecipe stores a manually entered recipe.
func (h *Handler) CreateRecipe(c *gin.Context) {
	var in recipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		c.String(http.StatusBadRequest, "A recipe needs a title.")
		return
	}

	r := &recipe.Recipe{Ingredients: []string{}, Instructions: []string{}}
	in.apply(r)

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.RecipeStore.Add(ctx, r); err != nil {
		h.fail(c, err, "failed to save recipe")
		return
	}

	c.JSON(http.StatusCreated, newRecipeResponse(r))
}

// GetRecipes lists recipes, optionally searched by title and filtered by
// cuisine or favourite flag.
func (h *Handler) GetRecipes(c *gin.Context) {
	favourites, _ := strconv.ParseBool(c.Query("favourites"))
	filter := recipe.Filter{
		Query:          c.Query("q"),
		Cuisine:        c.Query("cuisine"),
		FavouritesOnly: favourites,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	recipes, err := h.RecipeStore.List(ctx, filter)
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	c.JSON(http.StatusOK, recipes)
}

// GetRecipe returns a single recipe with its display rows.
func (h *Handler) GetRecipe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	c.JSON(http.StatusOK, newRecipeResponse(r))
}

// UpdateRecipe saves an edited recipe. Edited ingredient text is parsed again.
func (h *Handler) UpdateRecipe(c *gin.Context) {
	var in recipeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		c.String(http.StatusBadRequest, "A recipe needs a title.")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	in.apply(r)
	if err := h.RecipeStore.Update(ctx, r); err != nil {
		h.fail(c, err, "failed to update recipe")
		return
	}

	c.JSON(http.StatusOK, newRecipeResponse(r))
}

// DeleteRecipe removes a recipe.
func (h *Handler) DeleteRecipe(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.RecipeStore.Delete(ctx, c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete recipe")
		return
	}

	c.Status(http.StatusNoContent)
}

// ToggleFavourite flips a recipe's favourite flag.
func (h *Handler) ToggleFavourite(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	favourite, err := h.RecipeStore.ToggleFavourite(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	c.JSON(http.StatusOK, gin.H{"favourite": favourite})
}

// GetIngredients returns the display rows of a recipe.
func (h *Handler) GetIngredients(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	lists := r.IngredientLists()
	c.JSON(http.StatusOK, gin.H{
		"rows":        ingredient.DisplayRows(lists),
		"ingredients": ingredient.DisplayIngredients(lists),
	})
}

// UpgradeIngredients migrates a stored recipe's ingredients to structured
// records and saves the result.
func (h *Handler) UpgradeIngredients(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	r, err := h.RecipeStore.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	r.UpgradeIngredients()
	if err := h.RecipeStore.Update(ctx, r); err != nil {
		h.fail(c, err, "failed to update recipe")
		return
	}

	logging.FromContext(ctx).Info().Str("recipe_id", r.ID).Int("ingredients", len(r.IngredientDetails)).Msg("ingredients upgraded")
	c.JSON(http.StatusOK, newRecipeResponse(r))
}

type parseRequest struct {
	Lines []string `json:"lines" binding:"required"`
}

// ParseIngredients parses free text lines without storing anything.
func (h *Handler) ParseIngredients(c *gin.Context) {
	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}

	details := ingredient.MigrateStrings(req.Lines)
	c.JSON(http.StatusOK, gin.H{
		"details": details,
		"rows":    ingredient.DisplayRows(ingredient.Lists{Details: ingredient.DetailEntries(details)}),
	})
}

type migrateRequest struct {
	Items []ingredient.Entry `json:"items" binding:"required"`
}

// MigrateIngredients upgrades a stored-shape ingredient list without storing
// anything.
func (h *Handler) MigrateIngredients(c *gin.Context) {
	var req migrateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}

	details := ingredient.MigrateEntries(req.Items)
	c.JSON(http.StatusOK, gin.H{
		"details": details,
		"rows":    ingredient.DisplayRows(ingredient.Lists{Details: ingredient.DetailEntries(details)}),
	})
}

// GetEntitlement reports the Pro flag and storage usage.
func (h *Handler) GetEntitlement(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	ent, err := h.RecipeStore.GetEntitlement(ctx)
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	c.JSON(http.StatusOK, ent)
}

type entitlementRequest struct {
	Pro *bool `json:"pro" binding:"required"`
}

// SetEntitlement turns Pro on or off.
func (h *Handler) SetEntitlement(c *gin.Context) {
	var req entitlementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), storeTimeout)
	defer cancel()

	if err := h.RecipeStore.SetPro(ctx, *req.Pro); err != nil {
		h.fail(c, err, "failed to save entitlement")
		return
	}

	ent, err := h.RecipeStore.GetEntitlement(ctx)
	if err != nil {
		h.fail(c, err, "database error")
		return
	}

	c.JSON(http.StatusOK, ent)
}

func (h *Handler) fail(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.String(http.StatusRequestTimeout, "Request timed out")
	case errors.Is(err, recipe.ErrNotFound):
		c.String(http.StatusNotFound, "Recipe not found")
	case errors.Is(err, recipe.ErrRecipeLimitReached):
		c.String(http.StatusPaymentRequired, "Your recipe box is full. Upgrade to Pro to save more recipes.")
	default:
		logging.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(what)
		c.String(http.StatusInternalServerError, fmt.Sprintf("%s: %s", what, err.Error()))
	}
}

func validURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
