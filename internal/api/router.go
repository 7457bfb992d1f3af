package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the handler's routes onto a gin engine.
func NewRouter(h *Handler, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.POST("/recipes/import", h.ImportRecipe)
	r.POST("/recipes", h.CreateRecipe)
	r.GET("/recipes", h.GetRecipes)
	r.GET("/recipes/:id", h.GetRecipe)
	r.PUT("/recipes/:id", h.UpdateRecipe)
	r.DELETE("/recipes/:id", h.DeleteRecipe)
	r.POST("/recipes/:id/favourite", h.ToggleFavourite)
	r.GET("/recipes/:id/ingredients", h.GetIngredients)
	r.POST("/recipes/:id/upgrade", h.UpgradeIngredients)

	r.POST("/ingredients/parse", h.ParseIngredients)
	r.POST("/ingredients/migrate", h.MigrateIngredients)

	r.GET("/entitlement", h.GetEntitlement)
	r.PUT("/entitlement", h.SetEntitlement)

	return r
}
